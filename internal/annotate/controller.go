package annotate

import "github.com/google/uuid"

// State is the interaction state of a Controller.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateSelected
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateSelected:
		return "selected"
	case StateResizing:
		return "resizing"
	default:
		return "unknown"
	}
}

// DefaultHandleSize is the edge length of a handle's hit zone in pixels.
const DefaultHandleSize = 20

// Controller owns the box collection of one image and turns pointer and
// delete events into box mutations. It is not safe for concurrent use; every
// method is expected to run on the goroutine that delivers input events.
type Controller struct {
	boxes []Box
	state State

	// selected indexes boxes; -1 when nothing is selected.
	selected int
	// draft is the in-progress box while drawing or resizing.
	draft  Box
	anchor [2]float64
	handle HandlePosition

	handleSize float64
	handles    []HandlePosition
	normalize  bool
	onChange   func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithHandleSize sets the hit zone size of resize handles.
func WithHandleSize(size float64) Option { return func(c *Controller) { c.handleSize = size } }

// WithHandles sets which resize handles a selected box exposes.
func WithHandles(positions ...HandlePosition) Option {
	return func(c *Controller) {
		if len(positions) > 0 {
			c.handles = append([]HandlePosition(nil), positions...)
		}
	}
}

// WithNormalize stores committed boxes with non-negative width and height.
func WithNormalize(on bool) Option { return func(c *Controller) { c.normalize = on } }

// WithOnChange registers fn to run after every event that changed state.
func WithOnChange(fn func()) Option { return func(c *Controller) { c.onChange = fn } }

// WithBoxes seeds the collection.
func WithBoxes(boxes []Box) Option { return func(c *Controller) { c.boxes = identify(boxes) } }

// NewController creates an idle controller.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		selected:   -1,
		handleSize: DefaultHandleSize,
		handles:    DefaultHandles,
	}
	for _, o := range opts {
		o(c)
	}
	if c.handleSize <= 0 {
		c.handleSize = DefaultHandleSize
	}
	return c
}

func identify(boxes []Box) []Box {
	out := make([]Box, len(boxes))
	for i, b := range boxes {
		if b.ID == uuid.Nil {
			b = NewBox(b.X, b.Y, b.Width, b.Height)
		}
		out[i] = b
	}
	return out
}

// SetBoxes replaces the whole collection and resets interaction state.
func (c *Controller) SetBoxes(boxes []Box) {
	c.boxes = identify(boxes)
	c.reset()
	c.changed()
}

// Reset drops every box and returns to Idle.
func (c *Controller) Reset() {
	c.boxes = nil
	c.reset()
	c.changed()
}

func (c *Controller) reset() {
	c.state = StateIdle
	c.selected = -1
	c.draft = Box{}
	c.handle = ""
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}

// State returns the current interaction state.
func (c *Controller) State() State { return c.state }

// HandleSize returns the configured handle hit zone size.
func (c *Controller) HandleSize() float64 { return c.handleSize }

// Len returns the number of committed boxes.
func (c *Controller) Len() int { return len(c.boxes) }

// Boxes returns a copy of the committed collection in insertion order.
func (c *Controller) Boxes() []Box {
	out := make([]Box, len(c.boxes))
	copy(out, c.boxes)
	return out
}

// Export returns the committed boxes for persistence. Nothing is mutated.
func (c *Controller) Export() []Box { return c.Boxes() }

// Selected returns the selected box, if any.
func (c *Controller) Selected() (Box, bool) {
	if c.selected < 0 || c.selected >= len(c.boxes) {
		return Box{}, false
	}
	return c.boxes[c.selected], true
}

// Draft returns the in-progress box while drawing or resizing.
func (c *Controller) Draft() (Box, bool) {
	if c.state != StateDrawing && c.state != StateResizing {
		return Box{}, false
	}
	return c.draft, true
}

// SelectedHandles returns the handles of the selected box.
func (c *Controller) SelectedHandles() []Handle {
	b, ok := c.Selected()
	if !ok {
		return nil
	}
	return Handles(b, c.handles)
}

func (c *Controller) handleAt(b Box, px, py float64) (HandlePosition, bool) {
	for _, h := range Handles(b, c.handles) {
		if h.Hit(px, py, c.handleSize) {
			return h.Position, true
		}
	}
	return "", false
}

// hitTest returns the index of the first box containing the point. Earlier
// boxes win over later overlapping ones.
func (c *Controller) hitTest(px, py float64) int {
	for i, b := range c.boxes {
		if b.Contains(px, py) {
			return i
		}
	}
	return -1
}

// PointerDown starts a draw, selects a box or grabs a resize handle.
func (c *Controller) PointerDown(px, py float64) {
	// A selected box's handle may stick out past its bounds.
	if c.selected >= 0 && c.selected < len(c.boxes) {
		if pos, ok := c.handleAt(c.boxes[c.selected], px, py); ok {
			c.beginResize(pos)
			c.changed()
			return
		}
	}

	if i := c.hitTest(px, py); i >= 0 {
		c.selected = i
		if pos, ok := c.handleAt(c.boxes[i], px, py); ok {
			c.beginResize(pos)
		} else {
			c.state = StateSelected
			c.handle = ""
		}
		c.changed()
		return
	}

	c.selected = -1
	c.handle = ""
	c.state = StateDrawing
	c.anchor = [2]float64{px, py}
	c.draft = NewBox(px, py, 0, 0)
	c.changed()
}

func (c *Controller) beginResize(pos HandlePosition) {
	c.state = StateResizing
	c.handle = pos
	c.draft = c.boxes[c.selected]
}

// PointerMove updates the in-progress box. It does nothing unless drawing or
// resizing.
func (c *Controller) PointerMove(px, py float64) {
	switch c.state {
	case StateDrawing:
		c.draft.Width = px - c.anchor[0]
		c.draft.Height = py - c.anchor[1]
	case StateResizing:
		c.draft = resize(c.boxes[c.selected], c.handle, px, py)
	default:
		return
	}
	c.changed()
}

// PointerUp commits a draw or a resize at the release point.
func (c *Controller) PointerUp(px, py float64) {
	switch c.state {
	case StateDrawing:
		b := c.draft
		b.X, b.Y = c.anchor[0], c.anchor[1]
		b.Width = px - c.anchor[0]
		b.Height = py - c.anchor[1]
		if c.normalize {
			b = b.Normalized()
		}
		c.boxes = append(c.boxes, b)
		c.reset()
	case StateResizing:
		b := resize(c.boxes[c.selected], c.handle, px, py)
		if c.normalize {
			b = b.Normalized()
		}
		c.boxes[c.selected] = b
		c.reset()
	default:
		// Selected stays highlighted until another action clears it.
		return
	}
	c.changed()
}

// Delete removes the selected box. It reports false and changes nothing when
// no box is selected.
func (c *Controller) Delete() bool {
	if c.state != StateSelected || c.selected < 0 || c.selected >= len(c.boxes) {
		return false
	}
	c.boxes = append(c.boxes[:c.selected:c.selected], c.boxes[c.selected+1:]...)
	c.reset()
	c.changed()
	return true
}

// Cancel abandons any draw or resize in progress and clears the selection.
func (c *Controller) Cancel() bool {
	if c.state == StateIdle {
		return false
	}
	c.reset()
	c.changed()
	return true
}
