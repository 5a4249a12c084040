package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

const (
	historyFile = ".formula_history"
	promptMain  = "formula> "
	replHelp    = `:names           list functions and variables
:tree <formula>  print the compiled formula
:quit            exit`
)

// repl reads formulas until EOF or :quit. Each one is evaluated like a
// command line formula, range and dates included.
func (e *env) repl(ctx context.Context, f flags, stdout, stderr io.Writer) int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if file, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(file)
		_ = file.Close()
	}
	defer func() {
		if file, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(file)
			_ = file.Close()
		}
	}()

	fns, _ := e.names()
	ln.SetCompleter(func(line string) []string {
		start := strings.LastIndexAny(line, " (,+-*/%^<>=!&|") + 1
		prefix := line[start:]
		if prefix == "" {
			return nil
		}
		var out []string
		for _, name := range fns {
			if strings.HasPrefix(name, prefix) {
				out = append(out, line[:start]+name+"(")
			}
		}
		return out
	})

	for ctx.Err() == nil {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(stdout)
			return 0
		}
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if e.command(ctx, strings.TrimSpace(line), f, stdout, stderr) {
			return 0
		}
		ln.AppendHistory(line)
	}
	return 0
}

// command runs one REPL line and reports whether the session ends.
func (e *env) command(ctx context.Context, line string, f flags, stdout, stderr io.Writer) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	switch {
	case line == "":
	case cmd == ":quit" || cmd == ":q":
		return true
	case cmd == ":help":
		fmt.Fprintln(stdout, replHelp)
	case cmd == ":names":
		fns, vars := e.names()
		fmt.Fprintf(stdout, "functions: %s\nvariables: %s\n", strings.Join(fns, " "), strings.Join(vars, " "))
	case cmd == ":tree":
		expr, err := e.ev.Compile(arg)
		if err != nil {
			fmt.Fprintln(stderr, err)
			break
		}
		fmt.Fprintln(stdout, expr)
	case strings.HasPrefix(cmd, ":"):
		fmt.Fprintf(stderr, "unknown command %s, type :help\n", cmd)
	default:
		if err := e.evaluate(ctx, line, f, stdout); err != nil {
			fmt.Fprintln(stderr, err)
		}
	}
	return false
}
