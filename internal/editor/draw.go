package editor

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/theme"
)

const (
	statusHeight  = 24
	defaultWidth  = 300
	defaultHeight = 300
	checkerSize   = 8
	messageTTL    = 2 * time.Second
)

var messageFace font.Face

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	messageFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 20, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// paintState is everything drawFrame needs, captured on the event goroutine.
type paintState struct {
	width, height int
	frame         *image.RGBA
	state         annotate.State
	boxes         int
	title         string
	loadErr       error
	message       string
	messageUntil  time.Time
}

// canvasSize returns the window size for an image of the given bounds.
func canvasSize(b image.Rectangle) (int, int) {
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		w, h = defaultWidth, defaultHeight
	}
	if minW := statusMinWidth(); w < minW {
		w = minW
	}
	return w, h + statusHeight
}

func statusMinWidth() int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(hintText()).Ceil() + 16
}

func hintText() string {
	parts := make([]string, len(shortcutHints))
	for i, h := range shortcutHints {
		parts[i] = h.keys + ":" + h.label
	}
	return strings.Join(parts, "  ")
}

// drawCheckerboard fills rect of dst with a checkerboard pattern.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if ((x/size)+(y/size))%2 == 0 {
				dst.Set(x, y, light)
			} else {
				dst.Set(x, y, dark)
			}
		}
	}
}

// backdrop caches the checkerboard drawn behind transparent pixels.
type backdrop struct {
	cache *image.RGBA
}

func (b *backdrop) draw(dst *image.RGBA, rect image.Rectangle, t *theme.Theme) {
	if b.cache == nil || b.cache.Bounds() != rect {
		b.cache = image.NewRGBA(rect)
		drawCheckerboard(b.cache, rect, checkerSize, t.CheckerLight, t.CheckerDark)
	}
	draw.Draw(dst, rect, b.cache, rect.Min, draw.Src)
}

// compose draws one window frame into dst.
func compose(dst *image.RGBA, st paintState, t *theme.Theme, bd *backdrop) {
	bounds := dst.Bounds()
	canvas := image.Rect(0, 0, bounds.Dx(), bounds.Dy()-statusHeight)
	draw.Draw(dst, bounds, &image.Uniform{t.Background}, image.Point{}, draw.Src)
	if st.frame != nil {
		bd.draw(dst, st.frame.Bounds().Intersect(canvas), t)
		draw.Draw(dst, st.frame.Bounds().Intersect(canvas), st.frame, st.frame.Bounds().Min, draw.Over)
	} else {
		bd.draw(dst, canvas, t)
	}

	if st.loadErr != nil {
		drawCentered(dst, canvas, "cannot load image: "+st.loadErr.Error(), t)
	} else if st.frame == nil && st.title != "" {
		drawCentered(dst, canvas, "loading...", t)
	}

	drawStatus(dst, image.Rect(0, canvas.Max.Y, bounds.Dx(), bounds.Dy()), st, t)
}

// drawCentered writes text in the middle of rect on a message panel.
func drawCentered(dst *image.RGBA, rect image.Rectangle, text string, t *theme.Theme) {
	d := &font.Drawer{Dst: dst, Src: &image.Uniform{t.Foreground}, Face: messageFace}
	w := d.MeasureString(text).Ceil()
	m := messageFace.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()
	px := rect.Min.X + (rect.Dx()-w)/2
	py := rect.Min.Y + (rect.Dy()-ascent-descent)/2 + ascent
	panel := image.Rect(px-8, py-ascent-8, px+w+8, py+descent+8)
	draw.Draw(dst, panel, &image.Uniform{t.MessageBackground}, image.Point{}, draw.Over)
	d.Dot = fixed.P(px, py)
	d.DrawString(text)
}

// drawStatus renders the bottom bar: interaction state and box count on the
// left, then either the transient message or the shortcut hints.
func drawStatus(dst *image.RGBA, rect image.Rectangle, st paintState, t *theme.Theme) {
	draw.Draw(dst, rect, &image.Uniform{t.StatusBackground}, image.Point{}, draw.Src)
	face := basicfont.Face7x13
	baseline := rect.Min.Y + (rect.Dy()+face.Ascent-face.Descent)/2
	d := &font.Drawer{Dst: dst, Src: &image.Uniform{t.StatusText}, Face: face}

	left := fmt.Sprintf("%s  %d boxes", st.state, st.boxes)
	if st.title != "" {
		left = st.title + "  " + left
	}
	d.Dot = fixed.P(rect.Min.X+8, baseline)
	d.DrawString(left)

	right := hintText()
	if st.message != "" && time.Now().Before(st.messageUntil) {
		right = st.message
		mw := d.MeasureString(right).Ceil()
		msgRect := image.Rect(rect.Max.X-mw-16, rect.Min.Y, rect.Max.X, rect.Max.Y)
		draw.Draw(dst, msgRect, &image.Uniform{t.MessageBackground}, image.Point{}, draw.Over)
		d.Src = &image.Uniform{t.Foreground}
	}
	rw := d.MeasureString(right).Ceil()
	lw := d.MeasureString(left).Ceil()
	if rect.Max.X-rw-8 < rect.Min.X+lw+16 {
		return
	}
	d.Dot = fixed.P(rect.Max.X-rw-8, baseline)
	d.DrawString(right)
}
