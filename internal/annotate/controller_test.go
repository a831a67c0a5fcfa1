package annotate

import (
	"testing"
)

func geometry(boxes []Box) []Box {
	out := make([]Box, len(boxes))
	for i, b := range boxes {
		out[i] = Box{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
	}
	return out
}

func assertBoxes(t *testing.T, got []Box, want ...Box) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d boxes %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].SameGeometry(want[i]) {
			t.Fatalf("box %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPointerDownOnEmptyAreaStartsDrawing(t *testing.T) {
	c := NewController(WithBoxes([]Box{{X: 10, Y: 10, Width: 20, Height: 20}}))
	c.PointerDown(100, 120)
	if c.State() != StateDrawing {
		t.Fatalf("state = %v, want drawing", c.State())
	}
	d, ok := c.Draft()
	if !ok {
		t.Fatal("expected an in-progress box")
	}
	if !d.SameGeometry(Box{X: 100, Y: 120}) {
		t.Fatalf("draft = %v, want zero-size box at (100,120)", d)
	}
	if _, ok := c.Selected(); ok {
		t.Fatal("nothing should be selected while drawing")
	}
}

func TestDrawScenario(t *testing.T) {
	c := NewController()
	c.PointerDown(5, 5)
	c.PointerMove(25, 35)
	c.PointerUp(25, 35)
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
	assertBoxes(t, c.Boxes(), Box{X: 5, Y: 5, Width: 20, Height: 30})
	if _, ok := c.Draft(); ok {
		t.Fatal("draft should be cleared after commit")
	}
}

func TestDrawCommitsAtReleasePoint(t *testing.T) {
	c := NewController(WithBoxes([]Box{{X: 0, Y: 0, Width: 1, Height: 1}}))
	c.PointerDown(50, 60)
	c.PointerMove(70, 65)
	c.PointerUp(40, 90)
	got := c.Boxes()
	assertBoxes(t, got, Box{X: 0, Y: 0, Width: 1, Height: 1}, Box{X: 50, Y: 60, Width: -10, Height: 30})
}

func TestDrawNormalized(t *testing.T) {
	c := NewController(WithNormalize(true))
	c.PointerDown(50, 60)
	c.PointerUp(40, 20)
	assertBoxes(t, c.Boxes(), Box{X: 40, Y: 20, Width: 10, Height: 40})
}

func TestPointerDownInsideBoxSelects(t *testing.T) {
	boxes := []Box{{X: 10, Y: 10, Width: 50, Height: 50}, {X: 100, Y: 100, Width: 10, Height: 10}}
	c := NewController(WithBoxes(boxes))
	before := c.Boxes()
	c.PointerDown(20, 20)
	if c.State() != StateSelected {
		t.Fatalf("state = %v, want selected", c.State())
	}
	sel, ok := c.Selected()
	if !ok || sel.ID != before[0].ID {
		t.Fatalf("selected %v, want %v", sel, before[0])
	}
	assertBoxes(t, c.Boxes(), geometry(before)...)

	c.PointerMove(30, 30)
	c.PointerUp(30, 30)
	if c.State() != StateSelected {
		t.Fatalf("state after click = %v, want selected", c.State())
	}
	assertBoxes(t, c.Boxes(), geometry(before)...)
}

func TestOverlappingBoxesFirstInsertedWins(t *testing.T) {
	c := NewController(WithBoxes([]Box{{X: 0, Y: 0, Width: 10, Height: 10}, {X: 5, Y: 5, Width: 10, Height: 10}}), WithHandleSize(2))
	c.PointerDown(7, 7)
	sel, ok := c.Selected()
	if !ok {
		t.Fatal("expected a selection")
	}
	if !sel.SameGeometry(Box{X: 0, Y: 0, Width: 10, Height: 10}) {
		t.Fatalf("selected %v, want the first box", sel)
	}
}

func TestResizeScenario(t *testing.T) {
	c := NewController(WithBoxes([]Box{{X: 10, Y: 10, Width: 50, Height: 50}}), WithHandleSize(20))
	c.PointerDown(60, 60)
	if c.State() != StateResizing {
		t.Fatalf("state = %v, want resizing", c.State())
	}
	c.PointerMove(80, 80)
	d, ok := c.Draft()
	if !ok || !d.SameGeometry(Box{X: 10, Y: 10, Width: 70, Height: 70}) {
		t.Fatalf("draft = %v, want {10,10,70,70}", d)
	}
	// The collection is untouched until release.
	assertBoxes(t, c.Boxes(), Box{X: 10, Y: 10, Width: 50, Height: 50})
	c.PointerUp(80, 80)
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
	assertBoxes(t, c.Boxes(), Box{X: 10, Y: 10, Width: 70, Height: 70})
	if _, ok := c.Selected(); ok {
		t.Fatal("selection should clear after resize")
	}
}

func TestResizeOnlyTouchesSelectedExtent(t *testing.T) {
	others := []Box{{X: 200, Y: 200, Width: 5, Height: 5}, {X: 10, Y: 10, Width: 50, Height: 50}, {X: 300, Y: 0, Width: 1, Height: 2}}
	c := NewController(WithBoxes(others))
	ids := c.Boxes()
	c.PointerDown(30, 30) // select the middle box
	c.PointerDown(69, 52) // inside the handle zone, outside the box
	if c.State() != StateResizing {
		t.Fatalf("state = %v, want resizing", c.State())
	}
	c.PointerUp(90, 15)
	got := c.Boxes()
	assertBoxes(t, got, others[0], Box{X: 10, Y: 10, Width: 80, Height: 5}, others[2])
	for i := range got {
		if got[i].ID != ids[i].ID {
			t.Fatalf("box %d changed identity", i)
		}
	}
}

func TestHandleZoneOfSelectedBoxOutsideBounds(t *testing.T) {
	c := NewController(WithBoxes([]Box{{X: 10, Y: 10, Width: 50, Height: 50}}))
	// Outside the box and with nothing selected this is a new drawing.
	c.PointerDown(65, 65)
	if c.State() != StateDrawing {
		t.Fatalf("state = %v, want drawing", c.State())
	}
	c.Cancel()
	c.PointerDown(20, 20)
	c.PointerDown(65, 65)
	if c.State() != StateResizing {
		t.Fatalf("state = %v, want resizing", c.State())
	}
}

func TestEdgeHandles(t *testing.T) {
	tests := []struct {
		name   string
		pos    HandlePosition
		down   [2]float64
		up     [2]float64
		expect Box
	}{
		{"right", HandleRight, [2]float64{60, 35}, [2]float64{90, 70}, Box{X: 10, Y: 10, Width: 80, Height: 50}},
		{"bottom", HandleBottom, [2]float64{35, 60}, [2]float64{0, 100}, Box{X: 10, Y: 10, Width: 50, Height: 90}},
		{"left", HandleLeft, [2]float64{10, 35}, [2]float64{0, 0}, Box{X: 0, Y: 10, Width: 60, Height: 50}},
		{"top", HandleTop, [2]float64{35, 10}, [2]float64{0, 30}, Box{X: 10, Y: 30, Width: 50, Height: 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(WithBoxes([]Box{{X: 10, Y: 10, Width: 50, Height: 50}}), WithHandles(tt.pos))
			c.PointerDown(tt.down[0], tt.down[1])
			if c.State() != StateResizing {
				t.Fatalf("state = %v, want resizing", c.State())
			}
			c.PointerUp(tt.up[0], tt.up[1])
			assertBoxes(t, c.Boxes(), tt.expect)
		})
	}
}

func TestDeleteSelectedKeepsOrder(t *testing.T) {
	boxes := []Box{
		{X: 0, Y: 0, Width: 10, Height: 10},
		{X: 20, Y: 0, Width: 10, Height: 10},
		{X: 40, Y: 0, Width: 10, Height: 10},
		{X: 60, Y: 0, Width: 10, Height: 10},
	}
	c := NewController(WithBoxes(boxes), WithHandleSize(4))
	c.PointerDown(22, 2)
	if !c.Delete() {
		t.Fatal("expected delete to remove the selected box")
	}
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
	assertBoxes(t, c.Boxes(), boxes[0], boxes[2], boxes[3])
}

func TestDeleteWithoutSelectionIsNoop(t *testing.T) {
	boxes := []Box{{X: 0, Y: 0, Width: 10, Height: 10}}
	calls := 0
	c := NewController(WithBoxes(boxes), WithOnChange(func() { calls++ }))
	if c.Delete() {
		t.Fatal("delete with nothing selected must report false")
	}
	if c.State() != StateIdle || calls != 0 {
		t.Fatalf("state %v, %d change notifications; want idle and none", c.State(), calls)
	}
	assertBoxes(t, c.Boxes(), boxes...)

	c.PointerDown(50, 50)
	if c.Delete() {
		t.Fatal("delete while drawing must be a no-op")
	}
	if c.State() != StateDrawing {
		t.Fatalf("state = %v, want drawing", c.State())
	}
}

func TestPointerMoveOutsideGestureIsNoop(t *testing.T) {
	calls := 0
	c := NewController(WithBoxes([]Box{{X: 0, Y: 0, Width: 100, Height: 100}}), WithOnChange(func() { calls++ }))
	c.PointerMove(3, 3)
	if calls != 0 {
		t.Fatalf("move while idle notified %d times", calls)
	}
	c.PointerDown(3, 3)
	calls = 0
	c.PointerMove(5, 5)
	if calls != 0 {
		t.Fatalf("move while selected notified %d times", calls)
	}
	if c.State() != StateSelected {
		t.Fatalf("state = %v, want selected", c.State())
	}
}

func TestCancelAbandonsDraft(t *testing.T) {
	c := NewController()
	c.PointerDown(1, 1)
	c.PointerMove(10, 10)
	if !c.Cancel() {
		t.Fatal("cancel should report a change")
	}
	c.PointerUp(10, 10)
	if c.Len() != 0 {
		t.Fatalf("cancelled draw was committed: %v", c.Boxes())
	}
}

func TestSetBoxesReplacesCollection(t *testing.T) {
	c := NewController()
	c.PointerDown(1, 1)
	c.PointerUp(5, 5)
	c.SetBoxes([]Box{{X: 7, Y: 8, Width: 9, Height: 10}})
	assertBoxes(t, c.Boxes(), Box{X: 7, Y: 8, Width: 9, Height: 10})
	if c.State() != StateIdle {
		t.Fatalf("state = %v, want idle", c.State())
	}
	if c.Boxes()[0].ID == (Box{}).ID {
		t.Fatal("seeded boxes should get an identifier")
	}
}

func TestIdenticalBoxesKeepDistinctIdentity(t *testing.T) {
	same := Box{X: 0, Y: 0, Width: 10, Height: 10}
	c := NewController(WithBoxes([]Box{same, same}), WithHandleSize(4))
	got := c.Boxes()
	if got[0].ID == got[1].ID {
		t.Fatal("identical geometry must not share an identity")
	}
	c.PointerDown(5, 5)
	c.Delete()
	rest := c.Boxes()
	if len(rest) != 1 || rest[0].ID != got[1].ID {
		t.Fatalf("expected the second box to remain, got %v", rest)
	}
}

func TestExportDoesNotAlias(t *testing.T) {
	c := NewController(WithBoxes([]Box{{X: 1, Y: 2, Width: 3, Height: 4}}))
	out := c.Export()
	out[0].X = 99
	if c.Boxes()[0].X != 1 {
		t.Fatal("export must return a copy")
	}
}
