// Package render paints a base image with box overlays.
package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/raster"
	"github.com/example/boxmark/internal/theme"
)

// ErrNoImage is returned by Flatten when no base image has loaded.
var ErrNoImage = errors.New("no base image loaded")

const (
	DefaultStrokeWidth = 3
)

// Style holds the colours and sizes used for overlays.
type Style struct {
	Stroke       color.RGBA
	Selected     color.RGBA
	Draft        color.RGBA
	HandleFill   color.RGBA
	HandleBorder color.RGBA
	Width        int
	HandleSize   int
}

// DefaultStyle returns the red/green overlay style.
func DefaultStyle() Style {
	return StyleFromTheme(theme.Default(), DefaultStrokeWidth, annotate.DefaultHandleSize)
}

// StyleFromTheme takes overlay colours from t.
func StyleFromTheme(t *theme.Theme, width, handleSize int) Style {
	if width <= 0 {
		width = DefaultStrokeWidth
	}
	if handleSize <= 0 {
		handleSize = annotate.DefaultHandleSize
	}
	return Style{
		Stroke:       t.Stroke,
		Selected:     t.StrokeSelected,
		Draft:        t.Draft,
		HandleFill:   t.HandleFill,
		HandleBorder: t.HandleBorder,
		Width:        width,
		HandleSize:   handleSize,
	}
}

// Scene is a read-only snapshot of everything drawn over the base image.
type Scene struct {
	Boxes    []annotate.Box
	Draft    *annotate.Box
	Selected *annotate.Box
	Handles  []annotate.Handle
}

// SceneOf snapshots c. While a resize is in progress the selected slot is
// shown with its draft geometry.
func SceneOf(c *annotate.Controller) Scene {
	sc := Scene{Boxes: c.Boxes()}
	draft, drafting := c.Draft()
	if drafting {
		sc.Draft = &draft
	}
	sel, ok := c.Selected()
	if !ok {
		return sc
	}
	if c.State() == annotate.StateResizing {
		kept := sc.Boxes[:0]
		for _, b := range sc.Boxes {
			if b.ID != sel.ID {
				kept = append(kept, b)
			}
		}
		sc.Boxes = kept
		sel = draft
	}
	sc.Selected = &sel
	sc.Handles = c.SelectedHandles()
	if c.State() == annotate.StateResizing {
		sc.Handles = annotate.Handles(sel, handlePositions(sc.Handles))
	}
	return sc
}

func handlePositions(hs []annotate.Handle) []annotate.HandlePosition {
	out := make([]annotate.HandlePosition, len(hs))
	for i, h := range hs {
		out[i] = h.Position
	}
	return out
}

// Paint clears dst and repaints base followed by the scene. Drawing order is
// committed boxes, the draft box, then the selected box and its handles.
func Paint(dst *image.RGBA, base image.Image, sc Scene, st Style) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	if base != nil {
		draw.Draw(dst, base.Bounds().Sub(base.Bounds().Min), base, base.Bounds().Min, draw.Src)
	}
	for _, b := range sc.Boxes {
		strokeBox(dst, b, st.Stroke, st.Width)
	}
	if sc.Draft != nil {
		strokeBox(dst, *sc.Draft, st.Draft, st.Width)
	}
	if sc.Selected != nil {
		strokeBox(dst, *sc.Selected, st.Selected, st.Width)
		for _, h := range sc.Handles {
			drawHandle(dst, h, st.HandleSize, st.HandleFill, st.HandleBorder, st.Width)
		}
	}
}

// Option configures a Surface.
type Option func(*Surface)

// WithStyle sets the overlay style.
func WithStyle(st Style) Option { return func(s *Surface) { s.style = st } }

// WithOnFrame registers fn to receive every repainted frame. The frame is
// owned by the Surface and only valid until the next Render.
func WithOnFrame(fn func(*image.RGBA)) Option { return func(s *Surface) { s.onFrame = fn } }

// WithOnError registers fn to receive base image decode failures.
func WithOnError(fn func(error)) Option { return func(s *Surface) { s.onError = fn } }

// WithOnLoad registers fn to run once a base image has decoded, with its
// bounds.
func WithOnLoad(fn func(image.Rectangle)) Option { return func(s *Surface) { s.onLoad = fn } }

// WithDecoder replaces the function used to resolve a source string.
func WithDecoder(fn func(context.Context, string) (image.Image, error)) Option {
	return func(s *Surface) { s.decode = fn }
}

// Surface owns the pixel canvas. The base image decodes in the background;
// Render calls made before it finishes are deferred and the latest one is
// painted once the image is ready. A newer SetSource supersedes any load
// still in flight.
type Surface struct {
	mu      sync.Mutex
	style   Style
	base    *image.RGBA
	frame   *image.RGBA
	src     string
	gen     uint64
	loading bool
	pending *Scene
	last    Scene
	err     error
	done    chan struct{}

	decode  func(context.Context, string) (image.Image, error)
	onFrame func(*image.RGBA)
	onError func(error)
	onLoad  func(image.Rectangle)
}

// NewSurface creates an empty Surface.
func NewSurface(opts ...Option) *Surface {
	s := &Surface{style: DefaultStyle(), decode: raster.Decode, done: closedChan()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func closedChan() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

// SetSource starts loading src as the base image. The previous base is
// dropped immediately so the surface stays blank until the new one decodes.
func (s *Surface) SetSource(ctx context.Context, src string) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.src = src
	s.base = nil
	s.frame = nil
	s.err = nil
	s.loading = true
	done := make(chan struct{})
	s.done = done
	decode := s.decode
	s.mu.Unlock()

	go func() {
		defer close(done)
		img, err := decode(ctx, src)
		s.finishLoad(gen, img, err)
	}()
}

// SetImage installs img as the base synchronously.
func (s *Surface) SetImage(img image.Image) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.src = ""
	s.err = nil
	s.done = closedChan()
	s.mu.Unlock()
	s.finishLoad(gen, img, nil)
}

func (s *Surface) finishLoad(gen uint64, img image.Image, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.err = err
		s.pending = nil
		onError := s.onError
		s.mu.Unlock()
		if onError != nil {
			onError(err)
		}
		return
	}
	s.base = raster.ToRGBA(img)
	s.frame = image.NewRGBA(s.base.Bounds())
	sc := s.last
	if s.pending != nil {
		sc = *s.pending
		s.pending = nil
	}
	onLoad := s.onLoad
	bounds := s.base.Bounds()
	s.mu.Unlock()

	if onLoad != nil {
		onLoad(bounds)
	}
	s.Render(sc)
}

// Render repaints the whole frame from sc. It reports false when the base
// image is not ready, in which case sc is kept and painted after loading.
func (s *Surface) Render(sc Scene) bool {
	s.mu.Lock()
	s.last = sc
	if s.base == nil {
		if s.loading {
			s.pending = &sc
		}
		s.mu.Unlock()
		return false
	}
	Paint(s.frame, s.base, sc, s.style)
	frame := s.frame
	onFrame := s.onFrame
	s.mu.Unlock()

	if onFrame != nil {
		onFrame(frame)
	}
	return true
}

// Flatten returns a new image with boxes burned into the base image.
// Selection and draft overlays are not included.
func (s *Surface) Flatten(boxes []annotate.Box) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base == nil {
		if s.err != nil {
			return nil, s.err
		}
		return nil, ErrNoImage
	}
	out := image.NewRGBA(s.base.Bounds())
	Paint(out, s.base, Scene{Boxes: boxes}, s.style)
	return out, nil
}

// Wait blocks until the current load has finished or ctx is done and
// returns the load error, if any.
func (s *Surface) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.Err()
}

// Loaded reports whether a base image is ready.
func (s *Surface) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base != nil
}

// Bounds returns the size of the base image, or an empty rectangle.
func (s *Surface) Bounds() image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.base == nil {
		return image.Rectangle{}
	}
	return s.base.Bounds()
}

// Source returns the source string of the current base image.
func (s *Surface) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// Err returns the decode error of the current source, if any.
func (s *Surface) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Clear drops the base image and any deferred scene.
func (s *Surface) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.base = nil
	s.frame = nil
	s.src = ""
	s.err = nil
	s.loading = false
	s.pending = nil
	s.last = Scene{}
	s.done = closedChan()
}
