package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/config"
	"github.com/example/boxmark/internal/editor"
	"github.com/example/boxmark/internal/raster"
	"github.com/example/boxmark/internal/store"
)

type testRoot struct {
	*root
	out, errOut *bytes.Buffer
}

func newTestRoot(t *testing.T) testRoot {
	t.Helper()
	r := newRootWithConfig(config.New())
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r.stdout, r.stderr = out, errOut
	return testRoot{root: r, out: out, errOut: errOut}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// startService runs the storage service in-process and returns its URL.
func startService(t *testing.T) string {
	t.Helper()
	db, err := store.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	srv := httptest.NewServer(store.NewServer(store.NewSQLStore(db), nil, nil))
	t.Cleanup(srv.Close)
	return srv.URL
}

func stubEditor(t *testing.T) **editor.Editor {
	t.Helper()
	var got *editor.Editor
	original := runEditor
	runEditor = func(ctx context.Context, ed *editor.Editor) error {
		got = ed
		return nil
	}
	t.Cleanup(func() { runEditor = original })
	return &got
}

func TestUsageErrors(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want string
	}{
		{nil, "Usage: boxmark [flags]"},
		{[]string{"bogus"}, "Commands:"},
		{[]string{"load"}, "Usage: boxmark load <id>"},
		{[]string{"open"}, "Usage: boxmark open -file"},
		{[]string{"delete"}, "Usage: boxmark delete"},
		{[]string{"config"}, "print|save|path"},
	} {
		tr := newTestRoot(t)
		err := tr.Run(tc.args)
		var uerr *UsageError
		if !errors.As(err, &uerr) {
			t.Fatalf("%v: expected usage error, got %v", tc.args, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%v: help %q does not contain %q", tc.args, err.Error(), tc.want)
		}
	}
}

func TestInvalidID(t *testing.T) {
	tr := newTestRoot(t)
	err := tr.Run([]string{"load", "abc"})
	if err == nil || !strings.Contains(err.Error(), `invalid image id "abc"`) {
		t.Fatalf("expected invalid id error, got %v", err)
	}
}

func TestGalleryCommands(t *testing.T) {
	url := startService(t)
	ctx := context.Background()
	client := store.NewClient(url)
	src := raster.BytesToDataURL("image/png", pngBytes(t, 8, 6))
	rec := store.NewImage(src)
	rec.Boxes = []annotate.Box{{X: 1, Y: 1, Width: 4, Height: 3}}
	saved, err := client.Save(ctx, rec)
	if err != nil {
		t.Fatal(err)
	}
	if saved.IDValue() != 1 {
		t.Fatalf("id = %d", saved.IDValue())
	}

	tr := newTestRoot(t)
	if err := tr.Run([]string{"-server", url, "list"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tr.out.String(), "1   8x6") {
		t.Fatalf("list output:\n%s", tr.out.String())
	}

	out := filepath.Join(t.TempDir(), "thumb.png")
	tr = newTestRoot(t)
	if err := tr.Run([]string{"-server", url, "export", "1", "-output", out, "-thumb", "4"}); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(f)
	f.Close()
	if err != nil || cfg.Width != 4 || cfg.Height != 3 {
		t.Fatalf("thumbnail = %dx%d, %v", cfg.Width, cfg.Height, err)
	}

	tr = newTestRoot(t)
	if err := tr.Run([]string{"-server", url, "export", "1", "-boxes"}); err != nil {
		t.Fatal(err)
	}
	var boxes []annotate.Box
	if err := json.Unmarshal(tr.out.Bytes(), &boxes); err != nil || len(boxes) != 1 || boxes[0].Width != 4 {
		t.Fatalf("boxes = %s, %v", tr.out.String(), err)
	}

	tr = newTestRoot(t)
	if err := tr.Run([]string{"-server", url, "delete", "1"}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(tr.out.String()) != "deleted 1" {
		t.Fatalf("delete output = %q", tr.out.String())
	}

	tr = newTestRoot(t)
	err = tr.Run([]string{"-server", url, "delete", "1"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete = %v, want not found", err)
	}
}

func TestLoadOpensStoredRecord(t *testing.T) {
	url := startService(t)
	got := stubEditor(t)
	src := raster.BytesToDataURL("image/png", pngBytes(t, 10, 10))
	rec := store.NewImage(src)
	rec.Boxes = []annotate.Box{{X: 2, Y: 2, Width: 3, Height: 3}}
	if _, err := store.NewClient(url).Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	tr := newTestRoot(t)
	if err := tr.Run([]string{"-server", url, "load", "1"}); err != nil {
		t.Fatal(err)
	}
	ed := *got
	if ed == nil {
		t.Fatal("editor was not started")
	}
	cur, ok := ed.Session().Current()
	if !ok || cur.IDValue() != 1 || ed.Controller().Len() != 1 {
		t.Fatalf("current = %s, boxes = %d", cur, ed.Controller().Len())
	}

	*got = nil
	tr = newTestRoot(t)
	err := tr.Run([]string{"-server", url, "load", "42"})
	if !errors.Is(err, store.ErrNotFound) || *got != nil {
		t.Fatalf("load of a missing id = %v", err)
	}
}

func TestOpenFile(t *testing.T) {
	got := stubEditor(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	if err := os.WriteFile(path, pngBytes(t, 12, 7), 0o644); err != nil {
		t.Fatal(err)
	}

	tr := newTestRoot(t)
	if err := tr.Run([]string{"open", path}); err != nil {
		t.Fatal(err)
	}
	ed := *got
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ed.Surface().Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if b := ed.Surface().Bounds(); b.Dx() != 12 || b.Dy() != 7 {
		t.Fatalf("bounds = %v", b)
	}
	if cur, _ := ed.Session().Current(); cur.HasID() {
		t.Fatal("a local file must open unsaved")
	}

	text := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(text, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	tr = newTestRoot(t)
	if err := tr.Run([]string{"open", "-file", text}); !errors.Is(err, raster.ErrNotImage) {
		t.Fatalf("open text = %v, want ErrNotImage", err)
	}
}

func TestPasteUsesClipboardImage(t *testing.T) {
	got := stubEditor(t)
	original := readClipboardImage
	t.Cleanup(func() { readClipboardImage = original })

	readClipboardImage = func() ([]byte, error) { return nil, errors.New("empty") }
	tr := newTestRoot(t)
	if err := tr.Run([]string{"paste"}); err == nil || !strings.Contains(err.Error(), "read clipboard") {
		t.Fatalf("expected clipboard error, got %v", err)
	}

	data := pngBytes(t, 3, 3)
	readClipboardImage = func() ([]byte, error) { return data, nil }
	tr = newTestRoot(t)
	if err := tr.Run([]string{"paste"}); err != nil {
		t.Fatal(err)
	}
	cur, ok := (*got).Session().Current()
	if !ok || !strings.HasPrefix(cur.OriginImage, "data:image/png;base64,") {
		t.Fatalf("current = %+v", cur)
	}
}

func TestServeCommand(t *testing.T) {
	tr := newTestRoot(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.ctx = ctx
	dbPath := filepath.Join(t.TempDir(), "data", "serve.db")
	cmd, err := parseServeCmd([]string{"-listen", "127.0.0.1:0", "-db", dbPath}, tr.root)
	if err != nil {
		t.Fatal(err)
	}
	addr := make(chan string, 1)
	cmd.ready = func(a string) { addr <- a }
	done := make(chan error, 1)
	go func() { done <- cmd.Run() }()

	var base string
	select {
	case a := <-addr:
		base = "http://" + a
	case err := <-done:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not start")
	}
	list, err := store.NewClient(base).List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %v, %v", list, err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database not created: %v", err)
	}
}

func TestConfigAndVersion(t *testing.T) {
	tr := newTestRoot(t)
	if err := tr.Run([]string{"config", "print"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(tr.out.String(), "[editor]") {
		t.Fatalf("config print:\n%s", tr.out.String())
	}

	path := filepath.Join(t.TempDir(), "boxmark.rc")
	tr = newTestRoot(t)
	if err := tr.Run([]string{"config", "-path", path, "save"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	tr = newTestRoot(t)
	if err := tr.Run([]string{"version"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(tr.out.String(), "boxmark version "+version) {
		t.Fatalf("version output = %q", tr.out.String())
	}
}

func TestInteractiveRunsCommands(t *testing.T) {
	tr := newTestRoot(t)
	cmd := &interactiveCmd{r: tr.root, stdin: strings.NewReader("version\nload\nexit\nversion\n")}
	if err := cmd.Run(); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(tr.out.String(), "boxmark version"); n != 1 {
		t.Fatalf("ran version %d times:\n%s", n, tr.out.String())
	}
	if !strings.Contains(tr.errOut.String(), "Usage: boxmark load") {
		t.Fatalf("stderr = %q", tr.errOut.String())
	}
}
