package annotate

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Box is an axis-aligned rectangle in surface pixel coordinates. Width and
// Height may be negative when the box was dragged up or to the left.
type Box struct {
	// ID identifies the box inside a Controller. It is never persisted.
	ID     uuid.UUID `json:"-"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
}

// NewBox returns a box with a fresh identifier.
func NewBox(x, y, width, height float64) Box {
	return Box{ID: uuid.New(), X: x, Y: y, Width: width, Height: height}
}

// Bounds returns the box edges ordered so that minX <= maxX and minY <= maxY.
func (b Box) Bounds() (minX, minY, maxX, maxY float64) {
	minX, maxX = b.X, b.X+b.Width
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY = b.Y, b.Y+b.Height
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return
}

// Contains reports whether (px, py) lies inside the box, edges included.
func (b Box) Contains(px, py float64) bool {
	minX, minY, maxX, maxY := b.Bounds()
	return px >= minX && px <= maxX && py >= minY && py <= maxY
}

// Normalized returns the same rectangle with non-negative width and height.
func (b Box) Normalized() Box {
	minX, minY, maxX, maxY := b.Bounds()
	return Box{ID: b.ID, X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// SameGeometry compares position and extent, ignoring ID.
func (b Box) SameGeometry(o Box) bool {
	return b.X == o.X && b.Y == o.Y && b.Width == o.Width && b.Height == o.Height
}

func (b Box) String() string {
	return fmt.Sprintf("{%g,%g,%g,%g}", b.X, b.Y, b.Width, b.Height)
}

// HandlePosition names the grab point of a resize handle on a box.
type HandlePosition string

const (
	HandleTop         HandlePosition = "top"
	HandleBottom      HandlePosition = "bottom"
	HandleLeft        HandlePosition = "left"
	HandleRight       HandlePosition = "right"
	HandleBottomRight HandlePosition = "bottomRight"
)

// DefaultHandles is the handle set used when none is configured.
var DefaultHandles = []HandlePosition{HandleBottomRight}

// ParseHandlePosition accepts the position names case-insensitively.
func ParseHandlePosition(s string) (HandlePosition, error) {
	for _, p := range []HandlePosition{HandleTop, HandleBottom, HandleLeft, HandleRight, HandleBottomRight} {
		if strings.EqualFold(strings.TrimSpace(s), string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown handle position %q", s)
}

// Handle is a resize grab point derived from a box. It is never stored.
type Handle struct {
	X        float64
	Y        float64
	Position HandlePosition
}

// HandleFor computes the centre of the handle at pos on b.
func HandleFor(b Box, pos HandlePosition) Handle {
	cx := b.X + b.Width/2
	cy := b.Y + b.Height/2
	h := Handle{Position: pos}
	switch pos {
	case HandleTop:
		h.X, h.Y = cx, b.Y
	case HandleBottom:
		h.X, h.Y = cx, b.Y+b.Height
	case HandleLeft:
		h.X, h.Y = b.X, cy
	case HandleRight:
		h.X, h.Y = b.X+b.Width, cy
	default:
		h.X, h.Y = b.X+b.Width, b.Y+b.Height
	}
	return h
}

// Handles returns the handles of b for each position, in order.
func Handles(b Box, positions []HandlePosition) []Handle {
	out := make([]Handle, 0, len(positions))
	for _, p := range positions {
		out = append(out, HandleFor(b, p))
	}
	return out
}

// Hit reports whether (px, py) is within size/2 of the handle centre on both axes.
func (h Handle) Hit(px, py, size float64) bool {
	half := size / 2
	return math.Abs(px-h.X) <= half && math.Abs(py-h.Y) <= half
}

// resize returns b with the edge or corner under pos following (px, py).
func resize(b Box, pos HandlePosition, px, py float64) Box {
	switch pos {
	case HandleTop:
		bottom := b.Y + b.Height
		b.Y = py
		b.Height = bottom - py
	case HandleBottom:
		b.Height = py - b.Y
	case HandleLeft:
		right := b.X + b.Width
		b.X = px
		b.Width = right - px
	case HandleRight:
		b.Width = px - b.X
	default:
		b.Width = px - b.X
		b.Height = py - b.Y
	}
	return b
}
