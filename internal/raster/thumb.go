package raster

import (
	"image"

	"github.com/disintegration/imaging"
)

// Thumbnail scales img down so that neither side exceeds maxSide. Images that
// already fit are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

// ThumbnailDataURL decodes src, shrinks it and re-encodes it as PNG.
func ThumbnailDataURL(src string, maxSide int) (string, error) {
	img, err := DecodeDataURL(src)
	if err != nil {
		return "", err
	}
	return EncodeDataURL(Thumbnail(img, maxSide), PNG)
}
