//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && !cgo

package clipboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
)

const supported = true

// readTimeout bounds how long a selection owner may take to answer.
const readTimeout = 3 * time.Second

func newBackend() backend { return &x11Backend{} }

// x11Backend speaks the X11 selection protocol directly so that builds
// without cgo still have a clipboard. It owns CLIPBOARD while it holds
// data and answers conversion requests from a background goroutine.
type x11Backend struct {
	conn   *xgb.Conn
	window xproto.Window
	atoms  x11Atoms

	mu    sync.RWMutex
	text  []byte
	image []byte
}

type x11Atoms struct {
	clipboard, targets, utf8, textPlain, png, property xproto.Atom
}

func (b *x11Backend) init() error {
	conn, err := xgb.NewConn()
	if err != nil {
		return err
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		conn.Close()
		return err
	}
	const mask = xproto.EventMaskPropertyChange | xproto.EventMaskStructureNotify
	if err := xproto.CreateWindowChecked(conn, screen.RootDepth, window, screen.Root,
		0, 0, 1, 1, 0, xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwEventMask, []uint32{mask}).Check(); err != nil {
		conn.Close()
		return err
	}
	atoms, err := internAtoms(conn)
	if err != nil {
		xproto.DestroyWindow(conn, window)
		conn.Close()
		return err
	}
	b.conn, b.window, b.atoms = conn, window, atoms
	go b.serve()
	return nil
}

func internAtoms(conn *xgb.Conn) (x11Atoms, error) {
	var a x11Atoms
	for name, dst := range map[string]*xproto.Atom{
		"CLIPBOARD":                &a.clipboard,
		"TARGETS":                  &a.targets,
		"UTF8_STRING":              &a.utf8,
		"text/plain;charset=utf-8": &a.textPlain,
		"image/png":                &a.png,
		"BOXMARK_CLIPBOARD":        &a.property,
	} {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			return x11Atoms{}, fmt.Errorf("intern %s: %w", name, err)
		}
		*dst = reply.Atom
	}
	return a, nil
}

func (b *x11Backend) writeText(data []byte) error {
	b.mu.Lock()
	b.text, b.image = append([]byte(nil), data...), nil
	b.mu.Unlock()
	return b.own()
}

func (b *x11Backend) writeImage(data []byte) error {
	b.mu.Lock()
	b.image, b.text = append([]byte(nil), data...), nil
	b.mu.Unlock()
	return b.own()
}

func (b *x11Backend) own() error {
	return xproto.SetSelectionOwnerChecked(b.conn, b.window, b.atoms.clipboard, xproto.TimeCurrentTime).Check()
}

func (b *x11Backend) readImage() ([]byte, error) { return b.read(b.atoms.png) }

func (b *x11Backend) readText() ([]byte, error) {
	data, err := b.read(b.atoms.utf8)
	if err != nil {
		return b.read(xproto.AtomString)
	}
	return data, nil
}

func (b *x11Backend) serve() {
	for {
		ev, err := b.conn.WaitForEvent()
		if err != nil {
			return
		}
		switch e := ev.(type) {
		case xproto.SelectionRequestEvent:
			b.answer(e)
		case xproto.SelectionClearEvent:
			b.mu.Lock()
			b.text, b.image = nil, nil
			b.mu.Unlock()
		}
	}
}

// answer replies to a conversion request for data this process owns.
func (b *x11Backend) answer(e xproto.SelectionRequestEvent) {
	property := e.Property
	if property == xproto.AtomNone {
		property = e.Target
	}
	b.mu.RLock()
	text, img := b.text, b.image
	b.mu.RUnlock()

	var (
		typ     xproto.Atom
		format  byte = 8
		payload []byte
	)
	switch e.Target {
	case b.atoms.targets:
		targets := []xproto.Atom{b.atoms.targets}
		if len(text) > 0 {
			targets = append(targets, b.atoms.utf8, xproto.AtomString, b.atoms.textPlain)
		}
		if len(img) > 0 {
			targets = append(targets, b.atoms.png)
		}
		payload = make([]byte, len(targets)*4)
		for i, t := range targets {
			xgb.Put32(payload[i*4:], uint32(t))
		}
		typ, format = xproto.AtomAtom, 32
	case b.atoms.utf8, xproto.AtomString, b.atoms.textPlain:
		payload, typ = text, b.atoms.utf8
	case b.atoms.png:
		payload, typ = img, b.atoms.png
	}
	if len(payload) == 0 {
		property = xproto.AtomNone
	} else {
		length := uint32(len(payload)) / uint32(format/8)
		xproto.ChangeProperty(b.conn, xproto.PropModeReplace, e.Requestor, property, typ, format, length, payload)
	}

	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	xproto.SendEvent(b.conn, false, e.Requestor, 0, string(notify.Bytes()))
}

// read converts the CLIPBOARD selection to target on a short-lived
// connection so it does not race with serve for events.
func (b *x11Backend) read(target xproto.Atom) ([]byte, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	screen := xproto.Setup(conn).DefaultScreen(conn)
	window, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}
	if err := xproto.CreateWindowChecked(conn, 0, window, screen.Root, 0, 0, 1, 1, 0,
		xproto.WindowClassInputOnly, 0, xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange}).Check(); err != nil {
		return nil, err
	}
	defer xproto.DestroyWindow(conn, window)

	if err := xproto.ConvertSelectionChecked(conn, window, b.atoms.clipboard, target, b.atoms.property, xproto.TimeCurrentTime).Check(); err != nil {
		return nil, err
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		for {
			ev, err := conn.WaitForEvent()
			if err != nil {
				done <- result{err: err}
				return
			}
			e, ok := ev.(xproto.SelectionNotifyEvent)
			if !ok {
				continue
			}
			if e.Property == xproto.AtomNone {
				done <- result{err: fmt.Errorf("clipboard target unavailable")}
				return
			}
			reply, rerr := xproto.GetProperty(conn, true, window, e.Property, xproto.GetPropertyTypeAny, 0, (1<<31)-1).Reply()
			if rerr != nil {
				done <- result{err: rerr}
				return
			}
			done <- result{data: append([]byte(nil), reply.Value...)}
			return
		}
	}()
	select {
	case r := <-done:
		return r.data, r.err
	case <-time.After(readTimeout):
		return nil, fmt.Errorf("clipboard owner did not respond within %v", readTimeout)
	}
}
