package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/chazu/climb/compiler"
	"github.com/chazu/climb/engine"
)

const (
	historyFile = ".climb_history"
	prompt      = "climb> "
)

const replHelp = `Enter an expression as space-separated words, e.g. 1 + 2 * 3

Commands:
  :dis EXPR    Show the bytecode for EXPR
  :table       Show the operator precedence table
  :stats       Show cache hits and misses
  :history [N] Show recent evaluations
  :help        Show this help
  :quit        Exit
`

// session evaluates REPL lines against one engine.
type session struct {
	e   *engine.Engine
	out io.Writer
	err io.Writer
}

// handle processes one line. It reports whether the REPL should exit.
func (s *session) handle(line string) (exit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if strings.HasPrefix(line, ":") {
		return s.command(line)
	}

	result, err := s.e.EvaluateWords(context.Background(), strings.Fields(line))
	if err != nil {
		fmt.Fprintf(s.err, "Error: %v\n", err)
		return false
	}
	fmt.Fprintln(s.out, result)
	return false
}

func (s *session) command(line string) (exit bool) {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case ":quit", ":q", ":exit":
		return true
	case ":help":
		fmt.Fprint(s.out, replHelp)
	case ":table":
		table := s.e.Table()
		for _, sym := range table.Symbols() {
			fmt.Fprintf(s.out, "  %-2s %d\n", sym, table.Powers()[sym])
		}
	case ":stats":
		st := s.e.Stats()
		fmt.Fprintf(s.out, "cache hits: %d, misses: %d\n", st.Hits, st.Misses)
	case ":dis":
		tokens, err := compiler.ParseTokens(args)
		if err == nil {
			prog, cerr := s.e.Compile(context.Background(), tokens)
			if cerr == nil {
				fmt.Fprint(s.out, prog.DisassembleWithName(strings.Join(args, " ")))
				return false
			}
			err = cerr
		}
		fmt.Fprintf(s.err, "Error: %v\n", err)
	case ":history":
		n := 10
		if len(args) > 0 {
			if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil {
				fmt.Fprintf(s.err, "Error: bad count %q\n", args[0])
				return false
			}
		}
		hist, err := s.e.History(context.Background(), n)
		if err != nil {
			fmt.Fprintf(s.err, "Error: %v\n", err)
			return false
		}
		for _, ev := range hist {
			if ev.Error != "" {
				fmt.Fprintf(s.out, "  %s => error: %s\n", ev.Expression, ev.Error)
			} else {
				fmt.Fprintf(s.out, "  %s => %d\n", ev.Expression, ev.Result)
			}
		}
	default:
		fmt.Fprintf(s.err, "unknown command %s. Type :help for a list.\n", cmd)
	}
	return false
}

func (o *options) cmdRepl(_ []string) int {
	_, e, err := o.setup()
	if err != nil {
		return o.errorf("%v", err)
	}
	defer e.Close()

	s := &session{e: e, out: o.stdout, err: o.stderr}

	if f, ok := o.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return s.runLiner()
	}
	return s.runBasic(o.stdin)
}

// runLiner reads lines with editing and persistent history.
func (s *session) runLiner() int {
	fmt.Fprintln(s.out, "climb REPL. Type :help for commands, :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintf(s.err, "Error: %v\n", err)
				return 1
			}
			fmt.Fprintln(s.out)
			return 0
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if s.handle(line) {
			return 0
		}
	}
}

// runBasic reads lines from a pipe or file without prompting.
func (s *session) runBasic(in io.Reader) int {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if s.handle(scanner.Text()) {
			return 0
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(s.err, "Error: %v\n", err)
		return 1
	}
	return 0
}
