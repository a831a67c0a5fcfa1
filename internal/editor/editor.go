// Package editor is the native window around the box editor: it feeds
// pointer and key events to the controller and shows the rendered surface.
package editor

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/clipboard"
	"github.com/example/boxmark/internal/notify"
	"github.com/example/boxmark/internal/raster"
	"github.com/example/boxmark/internal/render"
	"github.com/example/boxmark/internal/session"
	"github.com/example/boxmark/internal/store"
	"github.com/example/boxmark/internal/theme"
)

// Editor wires a controller, a surface and a session to a shiny window.
type Editor struct {
	theme       *theme.Theme
	strokeWidth int
	title       string
	notifier    *notify.Notifier
	logger      *slog.Logger
	ctrlOpts    []annotate.Option

	ctrl    *annotate.Controller
	surface *render.Surface
	session *session.Session

	mu      sync.Mutex
	send    func(any)
	frame   *image.RGBA
	loadErr error

	// Set from the event goroutine only.
	message      string
	messageUntil time.Time

	copyImage func(image.Image) error
	copyText  func(string) error
}

// Option configures an Editor.
type Option func(*Editor)

// WithTheme sets the window and overlay colours.
func WithTheme(t *theme.Theme) Option { return func(e *Editor) { e.theme = t } }

// WithStrokeWidth sets the box outline width in pixels.
func WithStrokeWidth(w int) Option { return func(e *Editor) { e.strokeWidth = w } }

// WithTitle sets the window title.
func WithTitle(title string) Option { return func(e *Editor) { e.title = title } }

// WithNotifier sends desktop notifications after saving and copying.
func WithNotifier(n *notify.Notifier) Option { return func(e *Editor) { e.notifier = n } }

// WithLogger sets the logger handed to the session.
func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

// WithControllerOptions configures the box controller.
func WithControllerOptions(opts ...annotate.Option) Option {
	return func(e *Editor) { e.ctrlOpts = append(e.ctrlOpts, opts...) }
}

// New builds an editor whose session saves to st.
func New(st store.Store, opts ...Option) *Editor {
	e := &Editor{
		theme:       theme.Default(),
		strokeWidth: render.DefaultStrokeWidth,
		title:       "Boxmark",
		logger:      slog.Default(),
		copyImage:   clipboard.WriteImage,
		copyText:    clipboard.WriteText,
	}
	for _, o := range opts {
		o(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.ctrl = annotate.NewController(append(e.ctrlOpts, annotate.WithOnChange(e.changed))...)
	e.surface = render.NewSurface(
		render.WithStyle(render.StyleFromTheme(e.theme, e.strokeWidth, int(e.ctrl.HandleSize()))),
		render.WithOnFrame(e.frameReady),
		render.WithOnError(e.loadFailed),
		render.WithOnLoad(func(image.Rectangle) { e.repaint() }),
	)
	e.session = session.New(st, e.surface, e.ctrl,
		session.WithLogger(e.logger),
		session.WithDispatch(e.dispatch),
		session.WithOnSaved(func(rec store.EditorImage) {
			e.notifier.Save(rec.String(), e.savedPreview(rec))
		}),
	)
	return e
}

// Session returns the session driving this editor.
func (e *Editor) Session() *session.Session { return e.session }

// Controller returns the box controller.
func (e *Editor) Controller() *annotate.Controller { return e.ctrl }

// Surface returns the render surface.
func (e *Editor) Surface() *render.Surface { return e.surface }

// uiEvent carries a function onto the window's event goroutine.
type uiEvent struct{ fn func() }

// statusEvent shows msg in the status bar; close also shuts the window.
type statusEvent struct {
	msg   string
	close bool
}

// dispatch runs fn on the event goroutine while the window is open and
// inline otherwise.
func (e *Editor) dispatch(fn func()) {
	e.mu.Lock()
	send := e.send
	e.mu.Unlock()
	if send == nil {
		fn()
		return
	}
	send(uiEvent{fn: fn})
}

func (e *Editor) post(ev any) {
	e.mu.Lock()
	send := e.send
	e.mu.Unlock()
	if send != nil {
		send(ev)
	}
}

func (e *Editor) repaint() { e.post(repaintEvent{}) }

type repaintEvent struct{}

// changed re-renders the surface from the controller.
func (e *Editor) changed() {
	e.surface.Render(render.SceneOf(e.ctrl))
}

func (e *Editor) frameReady(frame *image.RGBA) {
	cp := image.NewRGBA(frame.Bounds())
	copy(cp.Pix, frame.Pix)
	e.mu.Lock()
	e.frame = cp
	e.loadErr = nil
	e.mu.Unlock()
	e.repaint()
}

func (e *Editor) loadFailed(err error) {
	e.logger.Error("load image", "err", err)
	e.mu.Lock()
	e.frame = nil
	e.loadErr = err
	e.mu.Unlock()
	e.repaint()
}

// snapshot returns the last rendered frame.
func (e *Editor) snapshot() *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frame
}

// savedPreview decodes the flattened raster of a stored record for the save
// notification.
func (e *Editor) savedPreview(rec store.EditorImage) image.Image {
	img, err := raster.DecodeDataURL(rec.Image)
	if err != nil {
		e.logger.Warn("save preview", "err", err)
		return nil
	}
	return img
}

func (e *Editor) setMessage(msg string) {
	e.message = msg
	e.messageUntil = time.Now().Add(messageTTL)
	e.logger.Info(msg)
}

// handlePointer feeds a left-button mouse event to the controller. Surface
// pixels map one to one onto window pixels. Presses outside the image, such
// as on the status bar, are ignored; moves and releases are clamped to the
// image so a drag that leaves it still ends on its edge.
func (e *Editor) handlePointer(x, y float64, press, release bool) {
	b := e.surface.Bounds()
	if press {
		if b.Empty() || !image.Pt(int(math.Floor(x)), int(math.Floor(y))).In(b) {
			return
		}
		e.ctrl.PointerDown(x, y)
		return
	}
	if b.Empty() {
		return
	}
	x = clamp(x, float64(b.Min.X), float64(b.Max.X-1))
	y = clamp(y, float64(b.Min.Y), float64(b.Max.Y-1))
	if release {
		e.ctrl.PointerUp(x, y)
		return
	}
	e.ctrl.PointerMove(x, y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// perform runs a keyboard action. It reports whether the window should
// close.
func (e *Editor) perform(ctx context.Context, action string) bool {
	switch action {
	case ActionDelete:
		if !e.ctrl.Delete() {
			e.setMessage("select a box to delete")
		}
	case ActionCancel:
		e.ctrl.Cancel()
	case ActionCopy:
		img, err := e.surface.Flatten(e.ctrl.Export())
		if err != nil {
			e.logger.Error("copy", "err", err)
			return false
		}
		if err := e.copyImage(img); err != nil {
			e.logger.Error("copy", "err", err)
			return false
		}
		e.setMessage("image copied to clipboard")
		e.notifier.Copy("image")
	case ActionCopyBoxes:
		data, err := json.Marshal(e.ctrl.Export())
		if err != nil {
			e.logger.Error("copy boxes", "err", err)
			return false
		}
		if err := e.copyText(string(data)); err != nil {
			e.logger.Error("copy boxes", "err", err)
			return false
		}
		e.setMessage("boxes copied to clipboard")
		e.notifier.Copy("boxes")
	case ActionSave:
		e.save(ctx)
	case ActionClose:
		return true
	}
	return false
}

// save flattens on the event goroutine and commits in the background. A
// successful commit closes the window; a failure leaves the edits open.
func (e *Editor) save(ctx context.Context) {
	if _, ok := e.session.Current(); !ok {
		e.setMessage("nothing to save")
		return
	}
	boxes := e.ctrl.Export()
	img, err := e.surface.Flatten(boxes)
	if err != nil {
		e.logger.Error("save", "err", err)
		e.setMessage("save: " + err.Error())
		return
	}
	e.setMessage("saving...")
	go func() {
		saved, err := e.session.Commit(ctx, img, boxes)
		if err != nil {
			e.post(statusEvent{msg: "save failed: " + err.Error()})
			return
		}
		e.post(statusEvent{msg: "saved " + saved.String(), close: true})
	}()
}

// Run opens the window and blocks until it closes. The window is sized
// from the open image once it has decoded. Unsaved edits are discarded
// through the session on exit.
func (e *Editor) Run(ctx context.Context) error {
	if err := e.surface.Wait(ctx); err != nil {
		e.logger.Warn("base image", "err", err)
	}
	driver.Main(func(s screen.Screen) { e.main(ctx, s) })
	if _, ok := e.session.Current(); ok {
		if err := e.session.Close(ctx); err != nil {
			e.logger.Warn("close", "err", err)
		}
	}
	return nil
}
