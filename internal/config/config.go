package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/boxmark/internal/annotate"
	"github.com/example/boxmark/internal/theme"
)

// Editor holds box editing settings.
type Editor struct {
	HandleSize  int
	StrokeWidth int
	Handles     []annotate.HandlePosition
	Normalize   bool
}

// Notify holds notification settings.
type Notify struct {
	Save   bool
	Copy   bool
	Delete bool
}

// Config holds the application configuration.
type Config struct {
	Server string // base URL of the storage service
	Listen string // address for "serve"
	DB     string // sqlite path for "serve"
	Theme  string
	Editor Editor
	Notify Notify
	Themes map[string]*theme.Theme
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Editor: Editor{
			HandleSize:  annotate.DefaultHandleSize,
			StrokeWidth: 3,
			Handles:     append([]annotate.HandlePosition(nil), annotate.DefaultHandles...),
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// DefaultDBPath is where "serve" keeps its database unless configured.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "boxmark.db"
	}
	return filepath.Join(home, ".local", "share", "boxmark", "boxmark.db")
}

// ControllerOptions converts the editor settings into controller options.
func (c *Config) ControllerOptions() []annotate.Option {
	return []annotate.Option{
		annotate.WithHandleSize(float64(c.Editor.HandleSize)),
		annotate.WithHandles(c.Editor.Handles...),
		annotate.WithNormalize(c.Editor.Normalize),
	}
}

// ThemeLoader returns a theme loader that also knows the inline themes.
func (c *Config) ThemeLoader() *theme.Loader {
	l := theme.NewLoader()
	l.Inline = c.Themes
	return l
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	if c.Server != "" {
		fmt.Fprintf(&sb, "server = %s\n", c.Server)
	}
	if c.Listen != "" {
		fmt.Fprintf(&sb, "listen = %s\n", c.Listen)
	}
	if c.DB != "" {
		fmt.Fprintf(&sb, "db = %s\n", c.DB)
	}
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	sb.WriteString("\n")

	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "handle_size = %d\n", c.Editor.HandleSize)
	fmt.Fprintf(&sb, "stroke_width = %d\n", c.Editor.StrokeWidth)
	handles := make([]string, len(c.Editor.Handles))
	for i, h := range c.Editor.Handles {
		handles[i] = string(h)
	}
	fmt.Fprintf(&sb, "handles = %s\n", strings.Join(handles, ","))
	fmt.Fprintf(&sb, "normalize = %v\n", c.Editor.Normalize)
	sb.WriteString("\n")

	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "copy = %v\n", c.Notify.Copy)
	fmt.Fprintf(&sb, "delete = %v\n", c.Notify.Delete)
	sb.WriteString("\n")

	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, key := range theme.ColorFields() {
			col, _ := t.Color(key)
			fmt.Fprintf(&sb, "%s: %s\n", key, theme.Hex(col))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
