package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chazu/climb/compiler"
	"github.com/chazu/climb/manifest"
	"github.com/chazu/climb/pkg/bytecode"
	"github.com/chazu/climb/store"
)

func words(s string) []string {
	return strings.Fields(s)
}

func TestEvaluateWords(t *testing.T) {
	e := New()
	ctx := context.Background()

	tests := []struct {
		input string
		want  int64
	}{
		{"42", 42},
		{"1 + 2 * 3", 7},
		{"1 * 2 + 3", 5},
		{"1 - 2 - 3", -4},
		{"1 + 2 * 3 + 4", 11},
		{"20 / 3 % 4", 2},
	}
	for _, tt := range tests {
		got, err := e.EvaluateWords(ctx, words(tt.input))
		if err != nil {
			t.Errorf("EvaluateWords(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("EvaluateWords(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := New(WithMemoryStore())
	ctx := context.Background()

	tests := []struct {
		input string
		want  error
	}{
		{"", compiler.ErrEndOfInput},
		{"+ 1", compiler.ErrExpectedOperand},
		{"1 +", compiler.ErrEndOfInput},
		{"1 2", compiler.ErrExpectedOperator},
		{"1 ^ 2", compiler.ErrUnknownOperator},
		{"1 / 0", bytecode.ErrDivisionByZero},
	}
	for _, tt := range tests {
		if _, err := e.EvaluateWords(ctx, words(tt.input)); !errors.Is(err, tt.want) {
			t.Errorf("EvaluateWords(%q) err = %v, want %v", tt.input, err, tt.want)
		}
	}
}

func TestWithTable(t *testing.T) {
	e := New(WithTable(compiler.Table{bytecode.Add: 2, bytecode.Mul: 1}))
	got, err := e.EvaluateWords(context.Background(), words("1 + 2 * 3"))
	if err != nil {
		t.Fatalf("EvaluateWords failed: %v", err)
	}
	if got != 9 {
		t.Errorf("got %d, want 9", got)
	}
}

func TestCompileCaches(t *testing.T) {
	s := store.NewMemory()
	e := New(WithStore(s))
	ctx := context.Background()

	tokens, err := compiler.ParseTokens(words("1 + 2 * 3"))
	if err != nil {
		t.Fatal(err)
	}

	first, err := e.Compile(ctx, tokens)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := e.Compile(ctx, tokens)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("cached program %s differs from %s", second, first)
	}

	stats := e.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit and 1 miss", stats)
	}
	if s.Len() != 1 {
		t.Errorf("store holds %d programs, want 1", s.Len())
	}

	// A different table is a different key.
	other := New(WithStore(s), WithTable(compiler.Table{bytecode.Add: 1, bytecode.Mul: 1}))
	if _, err := other.Compile(ctx, tokens); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("store holds %d programs, want 2", s.Len())
	}
}

func TestCompileErrorsAreNotCached(t *testing.T) {
	s := store.NewMemory()
	e := New(WithStore(s))
	tokens := compiler.Tokens(compiler.Lit(1), compiler.Sym(bytecode.Add))

	if _, err := e.Compile(context.Background(), tokens); err == nil {
		t.Fatal("expected compile error")
	}
	if s.Len() != 0 {
		t.Errorf("store holds %d programs, want 0", s.Len())
	}
}

func TestHistory(t *testing.T) {
	e := New(WithMemoryStore())
	ctx := context.Background()

	if _, err := e.EvaluateWords(ctx, words("2 * 21")); err != nil {
		t.Fatal(err)
	}
	if _, err := e.EvaluateWords(ctx, words("1 / 0")); err == nil {
		t.Fatal("expected division error")
	}

	hist, err := e.History(ctx, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("got %d entries, want 2", len(hist))
	}
	if hist[0].Expression != "1 / 0" || hist[0].Error == "" {
		t.Errorf("newest entry = %+v", hist[0])
	}
	if hist[1].Expression != "2 * 21" || hist[1].Result != 42 || hist[1].Hash == "" {
		t.Errorf("oldest entry = %+v", hist[1])
	}

	if _, err := New().History(ctx, 10); !errors.Is(err, ErrNoHistory) {
		t.Errorf("History without store: err = %v, want ErrNoHistory", err)
	}
}

func TestTraceAndStackLimit(t *testing.T) {
	var sb strings.Builder
	e := New(WithTrace(&sb))
	if _, err := e.EvaluateWords(context.Background(), words("1 + 2")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "BINOP +") {
		t.Errorf("trace missing BINOP:\n%s", sb.String())
	}

	limited := New(WithStackLimit(2))
	if _, err := limited.EvaluateWords(context.Background(), words("1 + 2 * 3")); !errors.Is(err, bytecode.ErrStackOverflow) {
		t.Errorf("err = %v, want ErrStackOverflow", err)
	}
}

func TestConcurrentEvaluate(t *testing.T) {
	e := New(WithMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.EvaluateWords(ctx, words("3 * 4 + 5"))
			if err != nil {
				errs <- err
				return
			}
			if got != 17 {
				errs <- errors.New("wrong result")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestFromManifest(t *testing.T) {
	dir := t.TempDir()
	content := `
[operators]
"+" = 5
"*" = 1

[cache]
driver = "sqlite"
path = "cache/programs.db"
`
	if err := os.WriteFile(filepath.Join(dir, manifest.FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := manifest.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	e, err := FromManifest(m)
	if err != nil {
		t.Fatalf("FromManifest failed: %v", err)
	}
	defer e.Close()

	got, err := e.EvaluateWords(context.Background(), words("1 + 2 * 3"))
	if err != nil {
		t.Fatalf("EvaluateWords failed: %v", err)
	}
	if got != 9 {
		t.Errorf("got %d, want 9", got)
	}
	if e.Store() == nil {
		t.Fatal("expected a store")
	}
	if _, err := os.Stat(filepath.Join(dir, "cache", "programs.db")); err != nil {
		t.Errorf("cache database not created: %v", err)
	}
}
