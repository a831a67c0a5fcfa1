package main

import (
	"fmt"

	"github.com/example/boxmark/internal/config"
)

type configCmd struct {
	command
	path string
}

func parseConfigCmd(args []string, r *root) (*configCmd, error) {
	c := &configCmd{command: newCommand(r, "config")}
	c.fs.Usage = usageFunc(c)
	c.fs.StringVar(&c.path, "path", "", "file written by save (default: the loaded rc file)")
	if err := c.fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *configCmd) Run() error {
	args := c.fs.Args()
	if len(args) < 1 {
		return &UsageError{of: c}
	}

	switch args[0] {
	case "print":
		fmt.Fprint(c.stdout, c.config.String())
		return nil
	case "save":
		return c.runSave()
	case "path":
		fmt.Fprintln(c.stdout, c.savePath())
		return nil
	default:
		return fmt.Errorf("unknown config command: %s", args[0])
	}
}

// savePath prefers -path, then the file the loader found, then the XDG
// default.
func (c *configCmd) savePath() string {
	if c.path != "" {
		return c.path
	}
	if p := config.NewLoader(version, configPathOverride).GetConfigPath(); p != "" {
		return p
	}
	return config.DefaultConfigPath()
}

func (c *configCmd) runSave() error {
	path := c.savePath()
	if err := config.Save(c.config, path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	fmt.Fprintf(c.stderr, "Configuration saved to %s\n", path)
	return nil
}
