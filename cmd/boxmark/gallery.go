package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/raster"
	"github.com/example/boxmark/internal/render"
	"github.com/example/boxmark/internal/session"
	"github.com/example/boxmark/internal/store"
)

// headless returns a session with no window attached, for gallery
// operations that never open an image.
func (r *root) headless(opts ...session.Option) *session.Session {
	opts = append([]session.Option{session.WithLogger(r.logger)}, opts...)
	return session.New(r.newStore(), render.NewSurface(), annotate.NewController(), opts...)
}

// rasterSize reports the pixel size of a data URL without decoding it fully.
func rasterSize(src string) string {
	_, data, err := raster.ParseDataURL(src)
	if err != nil {
		return "?"
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "?"
	}
	return fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)
}

// listCmd prints the overview.
type listCmd struct {
	command
	json bool
}

func parseListCmd(args []string, r *root) (*listCmd, error) {
	c := &listCmd{command: newCommand(r, "list")}
	c.fs.Usage = usageFunc(c)
	c.fs.BoolVar(&c.json, "json", false, "print the overview as JSON")
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *listCmd) Run() error {
	sess := c.headless()
	if err := sess.Refresh(c.ctx); err != nil {
		return err
	}
	list := sess.List()
	if c.json {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE")
	for _, rec := range list {
		fmt.Fprintf(tw, "%d\t%s\n", rec.IDValue(), rasterSize(rec.Image))
	}
	return tw.Flush()
}

// deleteCmd removes stored images.
type deleteCmd struct {
	command
	ids []int64
}

func parseDeleteCmd(args []string, r *root) (*deleteCmd, error) {
	c := &deleteCmd{command: newCommand(r, "delete")}
	c.fs.Usage = usageFunc(c)
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	if c.fs.NArg() == 0 {
		return nil, &UsageError{of: c}
	}
	for _, arg := range c.fs.Args() {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		c.ids = append(c.ids, id)
	}
	return c, nil
}

func (c *deleteCmd) Run() error {
	sess := c.headless(session.WithOnDelete(func(id int64) {
		fmt.Fprintf(c.stdout, "deleted %d\n", id)
		c.notifyDelete(fmt.Sprintf("image %d", id))
	}))
	for _, id := range c.ids {
		if err := sess.Delete(c.ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// exportCmd writes a stored raster to a file.
type exportCmd struct {
	command
	id     int64
	output string
	thumb  int
	origin bool
	boxes  bool
}

func parseExportCmd(args []string, r *root) (*exportCmd, error) {
	c := &exportCmd{command: newCommand(r, "export")}
	c.fs.Usage = usageFunc(c)
	c.fs.StringVar(&c.output, "output", "", "output file (.png or .jpg); defaults to image-<id>.png")
	c.fs.IntVar(&c.thumb, "thumb", 0, "scale the longest side down to this many pixels")
	c.fs.BoolVar(&c.origin, "origin", false, "export the untouched source image instead of the annotated one")
	c.fs.BoolVar(&c.boxes, "boxes", false, "print the box list as JSON instead of writing an image")
	if len(args) < 1 {
		return nil, &UsageError{of: c}
	}
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	c.id = id
	if err := c.fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	if c.output == "" {
		c.output = fmt.Sprintf("image-%d.png", id)
	}
	return c, nil
}

func (c *exportCmd) Run() error {
	rec, err := c.newStore().Load(c.ctx, c.id)
	if err != nil {
		return err
	}
	if c.boxes {
		boxes := rec.Boxes
		if boxes == nil {
			boxes = []annotate.Box{}
		}
		return json.NewEncoder(c.stdout).Encode(boxes)
	}
	src := rec.Image
	if c.origin || src == "" {
		src = rec.OriginImage
	}
	img, err := raster.DecodeDataURL(src)
	if err != nil {
		return fmt.Errorf("image %d: %w", c.id, err)
	}
	if c.thumb > 0 {
		img = raster.Thumbnail(img, c.thumb)
	}
	if err := writeImage(c.output, img); err != nil {
		return err
	}
	fmt.Fprintf(c.stderr, "wrote %s\n", c.output)
	return nil
}

func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 92})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// watchCmd prints store change events as they happen.
type watchCmd struct {
	command
}

func parseWatchCmd(args []string, r *root) (*watchCmd, error) {
	c := &watchCmd{command: newCommand(r, "watch")}
	c.fs.Usage = usageFunc(c)
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *watchCmd) Run() error {
	base := c.serverURL()
	if base == "" {
		base = store.DefaultURL
	}
	err := store.Watch(c.ctx, base, func(ev store.Event) {
		fmt.Fprintf(c.stdout, "%s %d\n", ev.Op, ev.ID)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
