package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

type interactiveCmd struct {
	r     *root
	stdin io.Reader
}

func (i *interactiveCmd) Run() error {
	fmt.Fprintln(i.r.stdout, "Enter commands (type 'exit' to quit)")
	scanner := bufio.NewScanner(i.stdin)
	for {
		fmt.Fprint(i.r.stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		args := strings.Fields(line)
		if args[0] == "interactive" {
			continue
		}
		if err := i.r.Run(args); err != nil && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(i.r.stderr, err)
		}
	}
	return scanner.Err()
}
