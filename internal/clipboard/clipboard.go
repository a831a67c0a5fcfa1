// Package clipboard moves images and text through the system clipboard.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"sync"
)

var (
	errNoDisplay   = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
	errUnsupported = errors.New("clipboard operations are not supported on this platform")
	errNoImage     = errors.New("clipboard does not contain image data")
	errNoText      = errors.New("clipboard does not contain text data")
)

// backend is implemented once per build configuration.
type backend interface {
	init() error
	writeImage(png []byte) error
	writeText(text []byte) error
	readImage() ([]byte, error)
	readText() ([]byte, error)
}

var (
	initOnce sync.Once
	initErr  error
	active   backend
)

func ensureInit() error {
	initOnce.Do(func() {
		if !supported {
			initErr = errUnsupported
			return
		}
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			initErr = errNoDisplay
			return
		}
		b := newBackend()
		if err := b.init(); err != nil {
			initErr = err
			return
		}
		active = b
	})
	return initErr
}

// WriteImage encodes the provided image as PNG and publishes it to the clipboard.
func WriteImage(img image.Image) error {
	if err := ensureInit(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return active.writeImage(buf.Bytes())
}

// ReadImage retrieves image data from the clipboard and decodes it.
func ReadImage() (image.Image, error) {
	data, err := ReadImageBytes()
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode clipboard image: %w", err)
	}
	return img, nil
}

// ReadImageBytes returns the encoded image on the clipboard.
func ReadImageBytes() ([]byte, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}
	data, err := active.readImage()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errNoImage
	}
	return data, nil
}

// WriteText writes text data to the clipboard.
func WriteText(text string) error {
	if err := ensureInit(); err != nil {
		return err
	}
	return active.writeText([]byte(text))
}

// ReadText returns UTF-8 text data from the clipboard.
func ReadText() (string, error) {
	if err := ensureInit(); err != nil {
		return "", err
	}
	data, err := active.readText()
	if err != nil {
		return "", err
	}
	// Some applications include a trailing null byte.
	data = bytes.TrimSuffix(data, []byte{0})
	if len(data) == 0 {
		return "", errNoText
	}
	return string(data), nil
}
