package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/example/boxmark/internal/clipboard"
	"github.com/example/boxmark/internal/editor"
	"github.com/example/boxmark/internal/raster"
)

// runEditor opens the window. Tests replace it to avoid needing a display.
var runEditor = func(ctx context.Context, ed *editor.Editor) error { return ed.Run(ctx) }

// readClipboardImage returns the raw bytes of the clipboard image.
var readClipboardImage = clipboard.ReadImageBytes

func (r *root) newEditor(title string) *editor.Editor {
	return editor.New(r.newStore(),
		editor.WithTheme(r.activeTheme),
		editor.WithStrokeWidth(r.config.Editor.StrokeWidth),
		editor.WithControllerOptions(r.config.ControllerOptions()...),
		editor.WithNotifier(r.notifier),
		editor.WithLogger(r.logger),
		editor.WithTitle("Boxmark - "+title),
	)
}

// openCmd annotates a local image file.
type openCmd struct {
	command
	file string
}

func parseOpenCmd(args []string, r *root) (*openCmd, error) {
	c := &openCmd{command: newCommand(r, "open")}
	c.fs.Usage = usageFunc(c)
	c.fs.StringVar(&c.file, "file", "", "image file to annotate")
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if c.file == "" && c.fs.NArg() == 1 {
		c.file = c.fs.Arg(0)
	}
	if c.file == "" {
		return nil, &UsageError{of: c}
	}
	return c, nil
}

func (c *openCmd) Run() error {
	ed := c.newEditor(filepath.Base(c.file))
	if err := ed.Session().OpenFile(c.ctx, c.file); err != nil {
		return err
	}
	return runEditor(c.ctx, ed)
}

// pasteCmd annotates the image on the clipboard.
type pasteCmd struct {
	command
}

func parsePasteCmd(args []string, r *root) (*pasteCmd, error) {
	c := &pasteCmd{command: newCommand(r, "paste")}
	c.fs.Usage = usageFunc(c)
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *pasteCmd) Run() error {
	data, err := readClipboardImage()
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}
	src, err := raster.FromBytes(data)
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	ed := c.newEditor("clipboard")
	ed.Session().OpenSource(c.ctx, src)
	return runEditor(c.ctx, ed)
}

// loadCmd reopens a stored image for editing.
type loadCmd struct {
	command
	id int64
}

func parseLoadCmd(args []string, r *root) (*loadCmd, error) {
	c := &loadCmd{command: newCommand(r, "load")}
	c.fs.Usage = usageFunc(c)
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if c.fs.NArg() != 1 {
		return nil, &UsageError{of: c}
	}
	id, err := parseID(c.fs.Arg(0))
	if err != nil {
		return nil, err
	}
	c.id = id
	return c, nil
}

func (c *loadCmd) Run() error {
	ed := c.newEditor(fmt.Sprintf("#%d", c.id))
	if err := ed.Session().Load(c.ctx, c.id); err != nil {
		return err
	}
	return runEditor(c.ctx, ed)
}
