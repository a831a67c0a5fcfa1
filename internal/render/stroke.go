package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/example/boxmark/internal/annotate"
)

// coordLimit bounds pixel coordinates so that far off-canvas boxes stay
// within int range.
const coordLimit = 1 << 30

// hline fills the horizontal span x0..x1 at y, thick pixels tall, clipped
// to img.
func hline(img *image.RGBA, x0, x1, y int, col color.Color, thick int) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	r := thick / 2
	span(img, image.Rect(x0-r, y-r, x1+r+1, y+r+1), col)
}

// vline fills the vertical span y0..y1 at x, thick pixels wide, clipped to
// img.
func vline(img *image.RGBA, x, y0, y1 int, col color.Color, thick int) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	r := thick / 2
	span(img, image.Rect(x-r, y0, x+r+1, y1+1), col)
}

func span(img *image.RGBA, r image.Rectangle, col color.Color) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, &image.Uniform{col}, image.Point{}, draw.Src)
}

// strokeRect outlines the corners (x0,y0) and (x1,y1). The stroke is centred
// on the edge like a canvas stroke. Only the part inside img is touched.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	hline(img, x0, x1, y0, col, thick)
	hline(img, x0, x1, y1, col, thick)
	vline(img, x0, y0, y1, col, thick)
	vline(img, x1, y0, y1, col, thick)
}

func fillRect(img *image.RGBA, r image.Rectangle, col color.Color) {
	draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{col}, image.Point{}, draw.Over)
}

// strokeBox outlines b without normalizing it, so a box with negative
// extent is drawn from its anchor backwards.
func strokeBox(img *image.RGBA, b annotate.Box, col color.Color, thick int) {
	x0 := round(b.X)
	y0 := round(b.Y)
	strokeRect(img, x0, y0, round(b.X+b.Width), round(b.Y+b.Height), col, thick)
}

// handleRect returns the square of side size centred on h.
func handleRect(h annotate.Handle, size int) image.Rectangle {
	half := size / 2
	cx, cy := round(h.X), round(h.Y)
	return image.Rect(cx-half, cy-half, cx-half+size, cy-half+size)
}

func drawHandle(img *image.RGBA, h annotate.Handle, size int, fill, border color.Color, thick int) {
	r := handleRect(h, size)
	fillRect(img, r, fill)
	strokeRect(img, r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1, border, thick)
}

func round(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > coordLimit:
		return coordLimit
	case v < -coordLimit:
		return -coordLimit
	}
	return int(math.Round(v))
}
