// Package engine ties the compiler, the program cache and the stack
// machine together behind one concurrency-safe value.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/climb/compiler"
	"github.com/chazu/climb/manifest"
	"github.com/chazu/climb/pkg/bytecode"
	"github.com/chazu/climb/store"
)

var log = commonlog.GetLogger("climb.engine")

// Engine compiles and evaluates token sequences. Compiled programs are
// cached in the configured store, keyed by compiler.CacheKey. Cache
// failures are logged and never fail an evaluation.
type Engine struct {
	table      compiler.Table
	store      store.Store
	trace      io.Writer
	stackLimit int

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// New creates an engine. Without options it uses the default precedence
// table and no cache.
func New(opts ...Option) *Engine {
	e := &Engine{table: compiler.DefaultTable()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FromManifest creates an engine configured by a climb.toml manifest:
// its operator table and, when enabled, its program cache. Extra options
// are applied afterwards.
func FromManifest(m *manifest.Manifest, opts ...Option) (*Engine, error) {
	table, err := m.Table()
	if err != nil {
		return nil, err
	}
	base := []Option{WithTable(table)}
	if m.CacheEnabled() {
		s, err := store.Open(m.Cache.Driver, m.CachePath())
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		base = append(base, WithStore(s))
	}
	return New(append(base, opts...)...), nil
}

// Table returns the engine's precedence table.
func (e *Engine) Table() compiler.Table {
	return e.table
}

// Store returns the configured store, or nil.
func (e *Engine) Store() store.Store {
	return e.store
}

// Stats returns cache hit and miss counts.
func (e *Engine) Stats() Stats {
	return Stats{Hits: e.hits.Load(), Misses: e.misses.Load()}
}

// Close releases the store.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Compile returns the program for tokens, from the cache when possible.
func (e *Engine) Compile(ctx context.Context, tokens []compiler.Token) (*bytecode.Program, error) {
	if e.store == nil {
		return compiler.Compile(tokens, e.table)
	}

	key := store.Key(compiler.CacheKey(tokens, e.table))
	prog, err := e.store.Get(ctx, key)
	switch {
	case err != nil:
		log.Warningf("cache read %s: %v", key, err)
	case prog != nil:
		e.hits.Add(1)
		log.Debugf("cache hit %s", key)
		return prog, nil
	}
	e.misses.Add(1)

	prog, err = compiler.Compile(tokens, e.table)
	if err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, key, prog); err != nil {
		log.Warningf("cache write %s: %v", key, err)
	}
	return prog, nil
}

// Execute runs a program on a fresh machine.
func (e *Engine) Execute(_ context.Context, p *bytecode.Program) (int64, error) {
	var opts []bytecode.VMOption
	if e.trace != nil {
		opts = append(opts, bytecode.WithTrace(e.trace))
	}
	if e.stackLimit > 0 {
		opts = append(opts, bytecode.WithStackLimit(e.stackLimit))
	}
	return bytecode.NewVM(opts...).Execute(p)
}

// Evaluate compiles and executes tokens. When the store keeps history the
// evaluation is recorded, whether or not it succeeded.
func (e *Engine) Evaluate(ctx context.Context, tokens []compiler.Token) (int64, error) {
	prog, err := e.Compile(ctx, tokens)
	var result int64
	if err == nil {
		result, err = e.Execute(ctx, prog)
	}
	e.record(ctx, tokens, prog, result, err)
	return result, err
}

// EvaluateWords classifies pre-split words into tokens and evaluates them.
func (e *Engine) EvaluateWords(ctx context.Context, words []string) (int64, error) {
	tokens, err := compiler.ParseTokens(words)
	if err != nil {
		return 0, err
	}
	return e.Evaluate(ctx, tokens)
}

// History returns up to limit recorded evaluations, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]store.Evaluation, error) {
	hs, ok := e.store.(store.HistoryStore)
	if !ok {
		return nil, ErrNoHistory
	}
	return hs.History(ctx, limit)
}

// ErrNoHistory is returned by History when the engine has no store that
// records evaluations.
var ErrNoHistory = errors.New("evaluation history not available")

func (e *Engine) record(ctx context.Context, tokens []compiler.Token, prog *bytecode.Program, result int64, evalErr error) {
	hs, ok := e.store.(store.HistoryStore)
	if !ok {
		return
	}
	ev := &store.Evaluation{
		Expression: strings.Join(compiler.Words(tokens), " "),
		Result:     result,
	}
	if evalErr != nil {
		ev.Result = 0
		ev.Error = evalErr.Error()
	}
	if prog != nil {
		if sum, err := prog.HashHex(); err == nil {
			ev.Hash = sum
		}
	}
	if err := hs.Record(ctx, ev); err != nil {
		log.Warningf("record evaluation: %v", err)
	}
}
