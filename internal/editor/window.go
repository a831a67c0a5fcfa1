package editor

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"
)

func (e *Editor) main(ctx context.Context, s screen.Screen) {
	width, height := canvasSize(e.surface.Bounds())
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: width, Height: height, Title: e.title})
	if err != nil {
		e.logger.Error("new window", "err", err)
		return
	}
	defer w.Release()

	e.mu.Lock()
	e.send = w.Send
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.send = nil
		e.mu.Unlock()
	}()

	bd := &backdrop{}
	dragging := false
	e.changed()

	for {
		switch ev := w.NextEvent().(type) {
		case uiEvent:
			ev.fn()
		case statusEvent:
			e.setMessage(ev.msg)
			if ev.close {
				return
			}
			w.Send(paint.Event{})
		case repaintEvent:
			w.Send(paint.Event{})
		case lifecycle.Event:
			if ev.To == lifecycle.StageDead {
				return
			}
		case size.Event:
			width, height = ev.WidthPx, ev.HeightPx
			w.Send(paint.Event{})
		case paint.Event:
			e.drawFrame(s, w, e.paintState(width, height), bd)
		case mouse.Event:
			if e.message != "" && ev.Direction == mouse.DirPress {
				e.message = ""
			}
			x, y := float64(ev.X), float64(ev.Y)
			switch {
			case ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirPress:
				dragging = true
				e.handlePointer(x, y, true, false)
			case ev.Button == mouse.ButtonLeft && ev.Direction == mouse.DirRelease:
				dragging = false
				e.handlePointer(x, y, false, true)
			case ev.Direction == mouse.DirNone && dragging:
				e.handlePointer(x, y, false, false)
			}
		case key.Event:
			action, ok := actionFor(ev)
			if !ok {
				continue
			}
			if e.perform(ctx, action) {
				return
			}
			w.Send(paint.Event{})
		}
	}
}

func (e *Editor) paintState(width, height int) paintState {
	e.mu.Lock()
	frame, loadErr := e.frame, e.loadErr
	e.mu.Unlock()
	st := paintState{
		width:        width,
		height:       height,
		frame:        frame,
		state:        e.ctrl.State(),
		boxes:        e.ctrl.Len(),
		loadErr:      loadErr,
		message:      e.message,
		messageUntil: e.messageUntil,
	}
	if cur, ok := e.session.Current(); ok {
		st.title = "unsaved"
		if cur.HasID() {
			st.title = fmt.Sprintf("#%d", cur.IDValue())
		}
	}
	return st
}

func (e *Editor) drawFrame(s screen.Screen, w screen.Window, st paintState, bd *backdrop) {
	if st.width <= 0 || st.height <= 0 {
		return
	}
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		e.logger.Error("new buffer", "err", err)
		return
	}
	defer b.Release()
	compose(b.RGBA(), st, e.theme, bd)
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
