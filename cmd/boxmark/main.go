package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/example/boxmark/internal/config"
	"github.com/example/boxmark/internal/notify"
	"github.com/example/boxmark/internal/store"
	"github.com/example/boxmark/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs       *flag.FlagSet
	program  string
	notifier *notify.Notifier
	config   *config.Config
	logger   *slog.Logger
	ctx      context.Context
	stdout   io.Writer
	stderr   io.Writer

	server       string
	themeName    string
	verbose      bool
	logJSON      bool
	saveAlerts   bool
	copyAlerts   bool
	deleteAlerts bool

	activeTheme *theme.Theme
	newStore    func() store.Store
}

func (r *root) Program() string {
	return r.program
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

func newRoot() *root {
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}
	return newRootWithConfig(cfg)
}

func newRootWithConfig(cfg *config.Config) *root {
	r := &root{
		fs:       flag.NewFlagSet("boxmark", flag.ContinueOnError),
		program:  "boxmark",
		notifier: notify.New(notify.LoadPreferences()),
		config:   cfg,
		logger:   slog.Default(),
		ctx:      context.Background(),
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	r.newStore = func() store.Store { return store.NewClient(r.serverURL()) }

	// Precedence: CLI > Env > Config > Default. The environment has already
	// been folded into cfg by the loader.
	r.fs.StringVar(&r.server, "server", "", "base URL of the storage service (default "+store.DefaultURL+")")
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use (default, dark, light, high-contrast or a file)")
	r.fs.BoolVar(&r.verbose, "v", false, "log debug messages")
	r.fs.BoolVar(&r.logJSON, "log-json", false, "log as JSON")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after saving an image")
	r.fs.BoolVar(&r.copyAlerts, "notify-copy", cfg.Notify.Copy, "show a desktop notification after copying to the clipboard")
	r.fs.BoolVar(&r.deleteAlerts, "notify-delete", cfg.Notify.Delete, "show a desktop notification after deleting an image")
	r.fs.Usage = usageFunc(r)
	return r
}

// NewLogger returns a structured logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Leveler, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (r *root) serverURL() string {
	if r.server != "" {
		return r.server
	}
	return r.config.Server
}

func (r *root) resolveTheme() *theme.Theme {
	name := r.themeName
	if name == "" {
		name = r.config.Theme
	}
	t, err := r.config.ThemeLoader().Load(name)
	if err != nil {
		if name != "default" {
			fmt.Fprintf(r.stderr, "warning: failed to load theme '%s': %v. using default.\n", name, err)
		}
		return theme.Default()
	}
	return t
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	level := slog.LevelInfo
	if r.verbose {
		level = slog.LevelDebug
	}
	r.logger = NewLogger(r.stderr, level, r.logJSON)
	slog.SetDefault(r.logger)
	if r.notifier != nil {
		r.notifier.Enable(notify.EventSave, r.saveAlerts)
		r.notifier.Enable(notify.EventCopy, r.copyAlerts)
		r.notifier.Enable(notify.EventDelete, r.deleteAlerts)
	}
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "serve":
		cmd, err = parseServeCmd(subArgs, r)
	case "open":
		cmd, err = parseOpenCmd(subArgs, r)
	case "paste":
		cmd, err = parsePasteCmd(subArgs, r)
	case "load":
		cmd, err = parseLoadCmd(subArgs, r)
	case "list":
		cmd, err = parseListCmd(subArgs, r)
	case "delete":
		cmd, err = parseDeleteCmd(subArgs, r)
	case "export":
		cmd, err = parseExportCmd(subArgs, r)
	case "watch":
		cmd, err = parseWatchCmd(subArgs, r)
	case "config":
		cmd, err = parseConfigCmd(subArgs, r)
	case "interactive":
		cmd = &interactiveCmd{r: r, stdin: os.Stdin}
	case "version":
		cmd = &versionCmd{r: r}
	case "help":
		return &UsageError{of: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	r := newRoot()
	r.ctx = ctx
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (r *root) notifyDelete(detail string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Delete(detail)
}

func (r *root) notifyCopy(detail string) {
	if r == nil || r.notifier == nil {
		return
	}
	r.notifier.Copy(detail)
}

// subcommand returns the program name of a nested command for help output.
func (r *root) subcommand(name string) string {
	return strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
}
