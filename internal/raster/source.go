package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"strings"
)

// maxSniff is the number of bytes http.DetectContentType looks at.
const maxSniff = 512

// Decode resolves an origin_image style source: a data URL, an http(s) URL or
// a local file path.
func Decode(ctx context.Context, src string) (image.Image, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	case IsDataURL(src):
		return DecodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return fetch(ctx, src)
	default:
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", src, err)
		}
		return img, nil
	}
}

func fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return img, nil
}

// ReadFile is the file-input boundary: it accepts a single image file and
// returns it as a data URL. Files whose content does not sniff as an image
// are rejected with ErrNotImage.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return FromBytes(data)
}

// FromBytes checks that data is an image and wraps it as a data URL.
func FromBytes(data []byte) (string, error) {
	sniff := data
	if len(sniff) > maxSniff {
		sniff = sniff[:maxSniff]
	}
	mime := http.DetectContentType(sniff)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mime)
	}
	return BytesToDataURL(mime, data), nil
}
