package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/climb/manifest"
)

// runCLI runs the CLI against an empty config directory and returns the
// exit code and output streams.
func runCLI(t *testing.T, dir, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", dir}, args...)
	code := run(full, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestEval(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"separate words", []string{"1", "+", "2", "*", "3"}, "7\n"},
		{"single argument", []string{"8 - 3 - 2"}, "3\n"},
		{"literal", []string{"-5"}, "-5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"-no-cache", "eval"}, tt.args...)
			code, out, errOut := runCLI(t, dir, "", args...)
			if code != 0 {
				t.Fatalf("exit %d, stderr: %s", code, errOut)
			}
			if out != tt.want {
				t.Errorf("stdout = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	dir := t.TempDir()

	for _, args := range [][]string{
		{"eval"},
		{"eval", "1", "+"},
		{"eval", "1", "/", "0"},
		{"eval", "1", "^", "2"},
	} {
		code, _, errOut := runCLI(t, dir, "", append([]string{"-no-cache"}, args...)...)
		if code != 1 {
			t.Errorf("%v: exit %d, want 1", args, code)
		}
		if !strings.HasPrefix(errOut, "Error: ") {
			t.Errorf("%v: stderr = %q", args, errOut)
		}
	}
}

func TestCompileAndRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "expr.clbc")

	code, _, errOut := runCLI(t, dir, "", "-no-cache", "compile", "-o", out, "2", "*", "3", "+", "4")
	if code != 0 {
		t.Fatalf("compile exit %d: %s", code, errOut)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("no bytecode written: %v", err)
	}

	code, stdout, errOut := runCLI(t, dir, "", "-no-cache", "run", out)
	if code != 0 {
		t.Fatalf("run exit %d: %s", code, errOut)
	}
	if stdout != "10\n" {
		t.Errorf("run stdout = %q, want %q", stdout, "10\n")
	}
}

func TestCompileListing(t *testing.T) {
	code, out, errOut := runCLI(t, t.TempDir(), "", "-no-cache", "compile", "1 + 2")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, want := range []string{"PUSH 1", "PUSH 2", "BINOP +"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestRunRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.clbc")
	if err := os.WriteFile(path, []byte("not bytecode"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, dir, "", "-no-cache", "run", path); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
}

func TestHistoryWithSQLiteCache(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")

	runCLI(t, dir, "", "-db", db, "eval", "1 + 1")
	runCLI(t, dir, "", "-db", db, "eval", "1 / 0")

	code, out, errOut := runCLI(t, dir, "", "-db", db, "history", "-n", "5")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d history lines, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "1 / 0") || !strings.Contains(lines[0], "error:") {
		t.Errorf("newest entry = %q", lines[0])
	}
	if !strings.Contains(lines[1], "1 + 1") || !strings.HasSuffix(lines[1], "=> 2") {
		t.Errorf("oldest entry = %q", lines[1])
	}
}

func TestHistoryWithoutCache(t *testing.T) {
	code, _, errOut := runCLI(t, t.TempDir(), "", "-no-cache", "history")
	if code != 1 || !strings.Contains(errOut, "history not available") {
		t.Errorf("exit %d, stderr %q", code, errOut)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	code, _, errOut := runCLI(t, dir, "", "init")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Operators["*"] != 2 || m.Operators["+"] != 1 {
		t.Errorf("operators = %v", m.Operators)
	}

	if code, _, _ := runCLI(t, dir, "", "init"); code != 1 {
		t.Errorf("second init exit %d, want 1", code)
	}
}

func TestManifestOperatorsApply(t *testing.T) {
	dir := t.TempDir()
	toml := "[operators]\n\"+\" = 3\n\"*\" = 1\n\n[cache]\nenabled = false\n"
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := runCLI(t, dir, "", "eval", "2 * 3 + 4")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if out != "14\n" {
		t.Errorf("stdout = %q, want %q", out, "14\n")
	}
}

func TestUsage(t *testing.T) {
	if code, _, errOut := runCLI(t, t.TempDir(), ""); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Errorf("no command: exit %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t, t.TempDir(), "", "frobnicate"); code != 2 {
		t.Errorf("unknown command: exit %d, want 2", code)
	}
}

func TestCountFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-v", "-v", "-no-cache", "-config", t.TempDir(), "eval", "1"}, strings.NewReader(""), &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}

	var c countFlag
	c.Set("true")
	c.Set("true")
	if c != 2 {
		t.Errorf("count = %d, want 2", c)
	}
	if err := c.Set("5"); err != nil || c != 5 {
		t.Errorf("Set(5) = %v, count %d", err, c)
	}
}

func TestReplBasic(t *testing.T) {
	input := strings.Join([]string{
		"1 + 2 * 3",
		"",
		"1 +",
		":dis 4 - 1",
		":table",
		":nope",
		":quit",
		"99",
	}, "\n")

	code, out, errOut := runCLI(t, t.TempDir(), input, "-no-cache", "repl")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.HasPrefix(out, "7\n") {
		t.Errorf("first result missing:\n%s", out)
	}
	if !strings.Contains(out, "BINOP -") {
		t.Errorf(":dis output missing:\n%s", out)
	}
	if !strings.Contains(out, "%  2") {
		t.Errorf(":table output missing:\n%s", out)
	}
	if strings.Contains(out, "99") {
		t.Errorf("input after :quit was evaluated:\n%s", out)
	}
	if !strings.Contains(errOut, "Error:") || !strings.Contains(errOut, "unknown command :nope") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestSplitWords(t *testing.T) {
	got := splitWords([]string{"1 +", "2", "  *  3 "})
	want := []string{"1", "+", "2", "*", "3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("splitWords = %v, want %v", got, want)
	}
}
