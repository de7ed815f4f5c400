package engine

import (
	"io"

	"github.com/chazu/climb/compiler"
	"github.com/chazu/climb/store"
)

// Option configures an Engine.
type Option func(*Engine)

// WithTable sets the precedence table.
func WithTable(t compiler.Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// WithStore configures program caching (and history, if the store keeps it).
func WithStore(s store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(e *Engine) {
		e.store = store.NewMemory()
	}
}

// WithTrace writes an execution trace of every program to w.
func WithTrace(w io.Writer) Option {
	return func(e *Engine) {
		e.trace = w
	}
}

// WithStackLimit caps the machine's operand stack.
func WithStackLimit(n int) Option {
	return func(e *Engine) {
		e.stackLimit = n
	}
}
