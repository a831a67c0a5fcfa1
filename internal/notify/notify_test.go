package notify

import (
	"image"
	"os"
	"testing"

	"github.com/example/boxmark/internal/platform"
)

type sent struct {
	title, body string
	opts        platform.Options
	iconExists  bool
}

func recorder(n *Notifier) *[]sent {
	var out []sent
	n.send = func(title, body string, opts platform.Options) error {
		_, err := os.Stat(opts.IconPath)
		out = append(out, sent{title, body, opts, opts.IconPath != "" && err == nil})
		return nil
	}
	return &out
}

func TestDisabledEventsAreSilent(t *testing.T) {
	n := New(DefaultPreferences())
	got := recorder(n)
	n.Copy("boxes")
	n.Delete("image 3")
	if len(*got) != 0 {
		t.Fatalf("sent %v while disabled", *got)
	}
	var nilNotifier *Notifier
	nilNotifier.Save("x", nil)
}

func TestTemplatesAndPreview(t *testing.T) {
	n := New(DefaultPreferences())
	got := recorder(n)
	n.Enable(EventSave, true)
	n.Enable(EventCopy, true)

	n.Save("image 4", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	n.Copy("")
	if len(*got) != 2 {
		t.Fatalf("sent %d notifications", len(*got))
	}
	if (*got)[0].body != "Saved image 4" || !(*got)[0].iconExists {
		t.Fatalf("save notification = %+v", (*got)[0])
	}
	if _, err := os.Stat((*got)[0].opts.IconPath); !os.IsNotExist(err) {
		t.Fatal("preview file should be removed after sending")
	}
	if (*got)[1].body != "Copied image to clipboard" || (*got)[1].title != platform.AppName {
		t.Fatalf("copy notification = %+v", (*got)[1])
	}
}

func TestLoadPreferencesFromEnv(t *testing.T) {
	t.Setenv("BOXMARK_NOTIFY_TITLE", "Labels")
	t.Setenv("BOXMARK_NOTIFY_DELETE_TEXT", "Removed %s")
	p := LoadPreferences()
	if p.Title != "Labels" || p.Events[EventDelete].Template != "Removed %s" {
		t.Fatalf("prefs = %+v", p)
	}
	if p.Events[EventSave].Template != "Saved %s" {
		t.Fatal("unset events keep their defaults")
	}
}
