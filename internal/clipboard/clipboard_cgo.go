//go:build (linux || freebsd || openbsd || netbsd || dragonfly) && cgo

package clipboard

import (
	"golang.design/x/clipboard"
)

const supported = true

func newBackend() backend { return designBackend{} }

// designBackend uses golang.design/x/clipboard, which needs cgo and X11.
type designBackend struct{}

func (designBackend) init() error { return clipboard.Init() }

func (designBackend) writeImage(data []byte) error {
	clipboard.Write(clipboard.FmtImage, data)
	return nil
}

func (designBackend) writeText(data []byte) error {
	clipboard.Write(clipboard.FmtText, data)
	return nil
}

func (designBackend) readImage() ([]byte, error) { return clipboard.Read(clipboard.FmtImage), nil }

func (designBackend) readText() ([]byte, error) { return clipboard.Read(clipboard.FmtText), nil }
