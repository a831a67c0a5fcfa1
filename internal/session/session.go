// Package session keeps track of the image open in the editor and moves it
// between the controller, the surface and the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/raster"
	"github.com/example/boxmark/internal/store"
)

// ErrNoImage is returned by operations that need an open image.
var ErrNoImage = errors.New("no image open")

// Surface is the part of render.Surface the session drives.
type Surface interface {
	SetSource(ctx context.Context, src string)
	Flatten(boxes []annotate.Box) (*image.RGBA, error)
	Clear()
}

// Session holds at most one open EditorImage.
type Session struct {
	store   store.Store
	surface Surface
	ctrl    *annotate.Controller
	logger  *slog.Logger

	dispatch func(func())
	onList   func([]store.EditorImage)
	onSaved  func(store.EditorImage)
	onDelete func(id int64)
	format   raster.Format

	mu      sync.Mutex
	current *store.EditorImage
	list    []store.EditorImage
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

// WithDispatch runs controller and surface updates through fn, for example
// to hand them to a UI event loop. By default they run inline.
func WithDispatch(fn func(func())) Option { return func(s *Session) { s.dispatch = fn } }

// WithOnList is called with every refreshed overview.
func WithOnList(fn func([]store.EditorImage)) Option { return func(s *Session) { s.onList = fn } }

// WithOnSaved is called after the store accepted a commit.
func WithOnSaved(fn func(store.EditorImage)) Option { return func(s *Session) { s.onSaved = fn } }

// WithOnDelete is called after a record was deleted.
func WithOnDelete(fn func(int64)) Option { return func(s *Session) { s.onDelete = fn } }

// WithFormat selects the encoding of the flattened raster.
func WithFormat(f raster.Format) Option { return func(s *Session) { s.format = f } }

// New creates a session with no image open.
func New(st store.Store, surface Surface, ctrl *annotate.Controller, opts ...Option) *Session {
	s := &Session{
		store:    st,
		surface:  surface,
		ctrl:     ctrl,
		logger:   slog.Default(),
		dispatch: func(fn func()) { fn() },
		format:   raster.PNG,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Controller returns the controller the session seeds.
func (s *Session) Controller() *annotate.Controller { return s.ctrl }

// Current returns the open record.
func (s *Session) Current() (store.EditorImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return store.EditorImage{}, false
	}
	return *s.current, true
}

// List returns the last refreshed overview.
func (s *Session) List() []store.EditorImage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.EditorImage(nil), s.list...)
}

// Open makes rec the current image: its boxes seed the controller and its
// origin image becomes the surface's base.
func (s *Session) Open(ctx context.Context, rec store.EditorImage) {
	s.mu.Lock()
	s.current = &rec
	s.mu.Unlock()
	boxes := append([]annotate.Box(nil), rec.Boxes...)
	s.dispatch(func() {
		s.ctrl.SetBoxes(boxes)
		s.surface.SetSource(ctx, rec.OriginImage)
	})
	s.logger.Debug("opened", "image", rec.String())
}

// OpenSource opens an unsaved image from a raster source string.
func (s *Session) OpenSource(ctx context.Context, src string) {
	s.Open(ctx, store.NewImage(src))
}

// OpenFile reads an image file and opens it unsaved.
func (s *Session) OpenFile(ctx context.Context, path string) error {
	src, err := raster.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	s.OpenSource(ctx, src)
	return nil
}

// Load fetches a stored record and opens it. On failure the session is
// unchanged.
func (s *Session) Load(ctx context.Context, id int64) error {
	rec, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("load %d: %w", id, err)
	}
	s.Open(ctx, rec)
	return nil
}

// Close discards in-memory edits and refreshes the overview.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.dispatch(func() {
		s.ctrl.Reset()
		s.surface.Clear()
	})
	return s.Refresh(ctx)
}

// Refresh reloads the overview from the store.
func (s *Session) Refresh(ctx context.Context) error {
	list, err := s.store.List(ctx)
	if err != nil {
		s.logger.Warn("refresh list", "err", err)
		return fmt.Errorf("list: %w", err)
	}
	s.mu.Lock()
	s.list = list
	s.mu.Unlock()
	if s.onList != nil {
		s.onList(list)
	}
	return nil
}

// Commit saves the open image with snapshot as its flattened raster and
// boxes as its annotation, then closes it. If the store rejects the record
// the image stays open with its edits and the error is returned.
func (s *Session) Commit(ctx context.Context, snapshot image.Image, boxes []annotate.Box) (store.EditorImage, error) {
	cur, ok := s.Current()
	if !ok {
		return store.EditorImage{}, ErrNoImage
	}
	flat, err := raster.EncodeDataURL(snapshot, s.format)
	if err != nil {
		return store.EditorImage{}, err
	}
	rec := cur
	rec.Image = flat
	rec.Boxes = append([]annotate.Box(nil), boxes...)

	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		s.logger.Error("save", "image", cur.String(), "err", err)
		return store.EditorImage{}, fmt.Errorf("save: %w", err)
	}
	s.logger.Info("saved", "id", saved.IDValue(), "boxes", len(saved.Boxes))
	if s.onSaved != nil {
		s.onSaved(saved)
	}
	if err := s.Close(ctx); err != nil {
		s.logger.Warn("close after save", "err", err)
	}
	return saved, nil
}

// Save flattens the current controller state and commits it. It must run
// on the goroutine that owns the controller.
func (s *Session) Save(ctx context.Context) (store.EditorImage, error) {
	if _, ok := s.Current(); !ok {
		return store.EditorImage{}, ErrNoImage
	}
	boxes := s.ctrl.Export()
	img, err := s.surface.Flatten(boxes)
	if err != nil {
		return store.EditorImage{}, fmt.Errorf("flatten: %w", err)
	}
	return s.Commit(ctx, img, boxes)
}

// Delete removes a stored record. Deleting the open record closes it;
// otherwise the overview is refreshed.
func (s *Session) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %d: %w", id, err)
	}
	s.logger.Info("deleted", "id", id)
	if s.onDelete != nil {
		s.onDelete(id)
	}
	if cur, ok := s.Current(); ok && cur.HasID() && cur.IDValue() == id {
		return s.Close(ctx)
	}
	return s.Refresh(ctx)
}
