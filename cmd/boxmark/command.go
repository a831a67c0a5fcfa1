package main

import (
	"flag"
	"fmt"
	"strconv"
)

// command is the part every subcommand shares: the root options and a flag
// set of its own.
type command struct {
	*root
	name string
	fs   *flag.FlagSet
}

func newCommand(r *root, name string) command {
	return command{root: r, name: name, fs: flag.NewFlagSet(name, flag.ContinueOnError)}
}

func (c *command) Program() string { return c.root.subcommand(c.name) }

func (c *command) FlagSet() *flag.FlagSet { return c.fs }

// parseID reads a record id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid image id %q", s)
	}
	return id, nil
}
