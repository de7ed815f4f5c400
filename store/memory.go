package store

import (
	"context"
	"sync"

	"github.com/chazu/climb/pkg/bytecode"
)

type memoryEntry struct {
	data []byte
	hash string
}

// Memory is an in-memory store for testing and for runs without a cache
// database. Programs are held in their encoded form, so callers never
// share a *Program with the store.
type Memory struct {
	mu      sync.RWMutex
	data    map[Key]memoryEntry
	history []Evaluation
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[Key]memoryEntry),
	}
}

// Get retrieves a program by key.
func (m *Memory) Get(_ context.Context, key Key) (*bytecode.Program, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeProgram(key, e.data, e.hash)
}

// Put stores a program by key.
func (m *Memory) Put(_ context.Context, key Key, p *bytecode.Program) error {
	data, sum, err := encodeProgram(p)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = memoryEntry{data: data, hash: sum}
	return nil
}

// Delete removes a program by key.
func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}

// Len returns the number of cached programs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Record appends an evaluation.
func (m *Memory) Record(_ context.Context, e *Evaluation) error {
	e.fill()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *e)
	return nil
}

// History returns up to limit evaluations, newest first.
func (m *Memory) History(_ context.Context, limit int) ([]Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.history)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Evaluation, 0, n)
	for i := len(m.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}
