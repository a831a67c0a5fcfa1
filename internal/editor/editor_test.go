package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/mobile/event/key"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/raster"
	"github.com/example/boxmark/internal/store"
	"github.com/example/boxmark/internal/theme"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []store.EditorImage
}

func (f *fakeStore) List(context.Context) ([]store.EditorImage, error) { return nil, nil }

func (f *fakeStore) Save(_ context.Context, img store.EditorImage) (store.EditorImage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img = img.WithID(int64(len(f.saved) + 1))
	f.saved = append(f.saved, img)
	return img, nil
}

func (f *fakeStore) Load(context.Context, int64) (store.EditorImage, error) {
	return store.EditorImage{}, store.ErrNotFound
}

func (f *fakeStore) Delete(context.Context, int64) error { return store.ErrNotFound }

func whiteSource(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	src, err := raster.EncodeDataURL(img, raster.PNG)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func openEditor(t *testing.T, st store.Store, opts ...Option) *Editor {
	t.Helper()
	e := New(st, opts...)
	ctx := context.Background()
	e.Session().OpenSource(ctx, whiteSource(t, 60, 40))
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := e.Surface().Wait(waitCtx); err != nil {
		t.Fatal(err)
	}
	return e
}

func drag(e *Editor, x0, y0, x1, y1 float64) {
	e.handlePointer(x0, y0, true, false)
	e.handlePointer(x1, y1, false, false)
	e.handlePointer(x1, y1, false, true)
}

func TestActionFor(t *testing.T) {
	for _, tc := range []struct {
		name string
		ev   key.Event
		want string
	}{
		{"delete", key.Event{Code: key.CodeDeleteForward, Direction: key.DirPress}, ActionDelete},
		{"backspace", key.Event{Rune: '\b', Code: key.CodeDeleteBackspace, Direction: key.DirPress}, ActionDelete},
		{"escape", key.Event{Code: key.CodeEscape, Direction: key.DirPress}, ActionCancel},
		{"save", key.Event{Rune: 's', Code: key.CodeS, Modifiers: key.ModControl, Direction: key.DirPress}, ActionSave},
		{"save control rune", key.Event{Rune: 0x13, Code: key.CodeS, Modifiers: key.ModControl, Direction: key.DirPress}, ActionSave},
		{"copy", key.Event{Rune: 'c', Code: key.CodeC, Modifiers: key.ModControl, Direction: key.DirPress}, ActionCopy},
		{"copy boxes", key.Event{Rune: 'C', Code: key.CodeC, Modifiers: key.ModControl | key.ModShift, Direction: key.DirPress}, ActionCopyBoxes},
		{"quit", key.Event{Rune: 'Q', Code: key.CodeQ, Modifiers: key.ModShift, Direction: key.DirPress}, ActionClose},
		{"release ignored", key.Event{Rune: 'q', Code: key.CodeQ, Direction: key.DirRelease}, ""},
		{"unbound", key.Event{Rune: 'x', Code: key.CodeX, Direction: key.DirPress}, ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := actionFor(tc.ev)
			if got != tc.want || ok != (tc.want != "") {
				t.Fatalf("actionFor = %q, %v; want %q", got, ok, tc.want)
			}
		})
	}
}

func TestPointerEventsRepaintFrame(t *testing.T) {
	e := openEditor(t, &fakeStore{}, WithStrokeWidth(1))
	drag(e, 10, 10, 30, 25)

	if e.ctrl.Len() != 1 || e.ctrl.State() != annotate.StateIdle {
		t.Fatalf("len=%d state=%v", e.ctrl.Len(), e.ctrl.State())
	}
	frame := e.snapshot()
	if frame == nil {
		t.Fatal("no frame rendered")
	}
	red := theme.Default().Stroke
	if got := frame.RGBAAt(10, 15); got != red {
		t.Fatalf("left edge = %v, want %v", got, red)
	}
	if got := frame.RGBAAt(20, 18); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("interior = %v", got)
	}

	e.handlePointer(12, 12, true, false)
	if got := e.snapshot().RGBAAt(10, 15); got != theme.Default().StrokeSelected {
		t.Fatalf("selected edge = %v", got)
	}
}

func TestDeleteAndCancelActions(t *testing.T) {
	e := openEditor(t, &fakeStore{})
	drag(e, 5, 5, 20, 20)

	e.perform(context.Background(), ActionDelete)
	if e.ctrl.Len() != 1 || e.message == "" {
		t.Fatal("delete without selection must keep the box and say why")
	}
	e.handlePointer(7, 7, true, false)
	e.handlePointer(7, 7, false, true)
	e.perform(context.Background(), ActionDelete)
	if e.ctrl.Len() != 0 {
		t.Fatal("selected box not deleted")
	}

	e.handlePointer(30, 30, true, false)
	e.perform(context.Background(), ActionCancel)
	if e.ctrl.State() != annotate.StateIdle || e.ctrl.Len() != 0 {
		t.Fatalf("cancel left state %v with %d boxes", e.ctrl.State(), e.ctrl.Len())
	}
	if !e.perform(context.Background(), ActionClose) {
		t.Fatal("close should end the window loop")
	}
}

func TestCopyActions(t *testing.T) {
	e := openEditor(t, &fakeStore{})
	var gotImg image.Image
	var gotText string
	e.copyImage = func(img image.Image) error { gotImg = img; return nil }
	e.copyText = func(s string) error { gotText = s; return nil }
	drag(e, 5, 5, 20, 20)

	e.perform(context.Background(), ActionCopy)
	if gotImg == nil || gotImg.Bounds().Dx() != 60 {
		t.Fatalf("copied image = %v", gotImg)
	}
	e.perform(context.Background(), ActionCopyBoxes)
	var boxes []annotate.Box
	if err := json.Unmarshal([]byte(gotText), &boxes); err != nil {
		t.Fatal(err)
	}
	if len(boxes) != 1 || boxes[0].Width != 15 {
		t.Fatalf("copied boxes = %+v", boxes)
	}

	e.copyImage = func(image.Image) error { return errors.New("no display") }
	e.message = ""
	e.perform(context.Background(), ActionCopy)
	if e.message != "" {
		t.Fatal("failed copy must not report success")
	}
}

func TestSaveCommitsFlattenedImage(t *testing.T) {
	st := &fakeStore{}
	e := openEditor(t, st)
	drag(e, 5, 5, 20, 20)

	e.save(context.Background())
	deadline := time.Now().Add(5 * time.Second)
	for {
		st.mu.Lock()
		n := len(st.saved)
		st.mu.Unlock()
		if _, open := e.Session().Current(); n == 1 && !open {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("save did not reach the store and close the session")
		}
		time.Sleep(10 * time.Millisecond)
	}
	rec := st.saved[0]
	if len(rec.Boxes) != 1 || rec.Image == rec.OriginImage {
		t.Fatalf("saved record = %s", rec)
	}
}

func TestComposeStatusBar(t *testing.T) {
	th := theme.Default()
	w, h := canvasSize(image.Rect(0, 0, 40, 30))
	if h != 30+statusHeight || w < 40 {
		t.Fatalf("canvasSize = %dx%d", w, h)
	}
	if w, h := canvasSize(image.Rectangle{}); w < defaultWidth || h != defaultHeight+statusHeight {
		t.Fatalf("empty canvasSize = %dx%d", w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	compose(dst, paintState{width: w, height: h, state: annotate.StateIdle}, th, &backdrop{})
	if got := dst.RGBAAt(1, h-1); got != th.StatusBackground {
		t.Fatalf("status bar = %v", got)
	}
	if got := dst.RGBAAt(0, 0); got != th.CheckerLight {
		t.Fatalf("backdrop = %v", got)
	}
}

func TestPointerOutsideImage(t *testing.T) {
	e := openEditor(t, &fakeStore{})
	statusY := float64(40 + statusHeight/2)

	e.handlePointer(10, statusY, true, false)
	e.handlePointer(10, statusY, false, true)
	if e.ctrl.Len() != 0 || e.ctrl.State() != annotate.StateIdle {
		t.Fatalf("click on the status bar: len=%d state=%v", e.ctrl.Len(), e.ctrl.State())
	}

	drag(e, 10, 10, 100, 100)
	boxes := e.ctrl.Boxes()
	if len(boxes) != 1 {
		t.Fatalf("len = %d", len(boxes))
	}
	want := annotate.Box{X: 10, Y: 10, Width: 49, Height: 29}
	if !boxes[0].SameGeometry(want) {
		t.Fatalf("drag past the edge = %v, want %v", boxes[0], want)
	}
}

func TestActionFailuresUseLogger(t *testing.T) {
	var buf bytes.Buffer
	e := openEditor(t, &fakeStore{}, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	e.copyImage = func(image.Image) error { return errors.New("no display") }
	e.perform(context.Background(), ActionCopy)
	out := buf.String()
	if !strings.Contains(out, `"msg":"copy"`) || !strings.Contains(out, "no display") {
		t.Fatalf("log output = %q", out)
	}
}

func TestSavedPreviewHasNoSelection(t *testing.T) {
	st := &fakeStore{}
	e := openEditor(t, st)
	th := theme.Default()
	drag(e, 5, 5, 20, 20)
	e.handlePointer(7, 7, true, false)
	e.handlePointer(7, 7, false, true)
	if got := e.snapshot().RGBAAt(5, 12); got != th.StrokeSelected {
		t.Fatalf("live frame edge = %v, want highlight", got)
	}

	e.save(context.Background())
	deadline := time.Now().Add(5 * time.Second)
	for {
		st.mu.Lock()
		n := len(st.saved)
		st.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("save did not reach the store")
		}
		time.Sleep(10 * time.Millisecond)
	}
	st.mu.Lock()
	rec := st.saved[0]
	st.mu.Unlock()

	preview := e.savedPreview(rec)
	if preview == nil {
		t.Fatal("no preview")
	}
	if got := color.RGBAModel.Convert(preview.At(5, 12)).(color.RGBA); got != th.Stroke {
		t.Fatalf("preview edge = %v, want plain stroke %v", got, th.Stroke)
	}
}
