// Package raster converts between images and the self-contained encoded
// strings stored in image records.
package raster

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotImage reports input whose content type is not an image.
	ErrNotImage = errors.New("not an image")
	// ErrUnsupportedSource reports a source string that is neither a data URL,
	// an http(s) URL nor a readable path.
	ErrUnsupportedSource = errors.New("unsupported image source")
)

// Format selects the encoding used by EncodeDataURL.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// EncodeDataURL encodes img as a base64 data URL.
func EncodeDataURL(img image.Image, format Format) (string, error) {
	var buf bytes.Buffer
	mime := "image/png"
	switch format {
	case JPEG:
		mime = "image/jpeg"
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return "", fmt.Errorf("encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("encode png: %w", err)
		}
	}
	return BytesToDataURL(mime, buf.Bytes()), nil
}

// BytesToDataURL wraps already encoded bytes.
func BytesToDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURL reports whether s looks like a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// ParseDataURL returns the media type and payload of a data URL.
func ParseDataURL(s string) (string, []byte, error) {
	if !IsDataURL(s) {
		return "", nil, fmt.Errorf("%w: missing data: prefix", ErrUnsupportedSource)
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URL")
	}
	mime := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		mime = strings.TrimSuffix(meta, ";base64")
		isBase64 = true
	}
	if !isBase64 {
		return mime, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URL: %w", err)
	}
	return mime, data, nil
}

// DecodeDataURL decodes the image carried by a data URL.
func DecodeDataURL(s string) (image.Image, error) {
	mime, data, err := ParseDataURL(s)
	if err != nil {
		return nil, err
	}
	if mime != "" && !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// ToRGBA copies img into a zero-origin RGBA image.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
