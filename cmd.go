// Copyright (C) The Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package gcta

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Handler is the per-subcommand interface every CLI entry point
// implements: parse args, run, return a process exit code.
type Handler interface {
	RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

// multiHandler dispatches to one of a fixed set of named subcommands.
type multiHandler struct {
	subcommands map[string]Handler
}

func (m *multiHandler) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(stderr, "usage: %s <subcommand> [options]\n", prog)
		m.listSubcommands(stderr)
		return 2
	}
	h, ok := m.subcommands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "%s: unknown subcommand %q\n", prog, args[0])
		m.listSubcommands(stderr)
		return 2
	}
	return h.RunCommand(prog+" "+args[0], args[1:], stdin, stdout, stderr)
}

func (m *multiHandler) listSubcommands(w io.Writer) {
	names := make([]string, 0, len(m.subcommands))
	for name := range m.subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "subcommands:")
	for _, name := range names {
		fmt.Fprintln(w, "  "+name)
	}
}

var handler Handler = &multiHandler{subcommands: map[string]Handler{
	"mtcojo":  &mtcojoCommand{},
	"fastfam": &fastfamCommand{},
}}

// Main is the CLI entry point; cmd/gcta-go/main.go's func main calls
// this directly.
func Main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handler.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
