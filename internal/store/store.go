// Package store persists annotated image records and exposes them over HTTP.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/boxmark/internal/annotate"
)

// DefaultAddr is where the storage service listens unless configured.
const DefaultAddr = "127.0.0.1:5000"

// DefaultURL is the base URL clients use unless configured.
const DefaultURL = "http://" + DefaultAddr

// ErrNotFound reports a record id that does not exist.
var ErrNotFound = errors.New("image not found")

// EditorImage is one stored image. OriginImage is the untouched source
// raster and Image the flattened export; both are self-contained data URLs.
// ID is nil until the store assigns one.
type EditorImage struct {
	ID          *int64         `json:"id,omitempty"`
	Image       string         `json:"image"`
	OriginImage string         `json:"origin_image,omitempty"`
	Boxes       []annotate.Box `json:"boxes,omitempty"`
}

// NewImage creates an unsaved record whose flattened raster starts out as
// the source.
func NewImage(origin string) EditorImage {
	return EditorImage{Image: origin, OriginImage: origin}
}

// HasID reports whether the record has been persisted.
func (e EditorImage) HasID() bool { return e.ID != nil }

// IDValue returns the id or 0 when unset.
func (e EditorImage) IDValue() int64 {
	if e.ID == nil {
		return 0
	}
	return *e.ID
}

// WithID returns a copy of e carrying id.
func (e EditorImage) WithID(id int64) EditorImage {
	e.ID = &id
	return e
}

func (e EditorImage) String() string {
	id := "new"
	if e.ID != nil {
		id = fmt.Sprint(*e.ID)
	}
	return fmt.Sprintf("image %s (%d boxes)", id, len(e.Boxes))
}

// Store is the storage boundary. List returns summaries that carry at least
// ID and Image; Load returns the full record including boxes.
type Store interface {
	List(ctx context.Context) ([]EditorImage, error)
	Save(ctx context.Context, img EditorImage) (EditorImage, error)
	Load(ctx context.Context, id int64) (EditorImage, error)
	Delete(ctx context.Context, id int64) error
}

// StatusError is returned by Client for non-success HTTP responses.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == 404
}

// Event is broadcast to watchers after a record changes.
type Event struct {
	Op string `json:"op"`
	ID int64  `json:"id"`
}

const (
	OpSave   = "save"
	OpDelete = "delete"
)
