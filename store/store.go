// Package store persists compiled programs and evaluation history.
package store

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/climb/pkg/bytecode"
)

var log = commonlog.GetLogger("climb.store")

var (
	// ErrCorruptProgram is returned when a stored program fails to decode
	// or no longer matches its recorded content hash.
	ErrCorruptProgram = errors.New("corrupt stored program")

	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")

	// ErrDriverUnavailable is returned by Open when the driver is known but
	// not compiled into this binary (duckdb without cgo).
	ErrDriverUnavailable = errors.New("store driver not available in this build")
)

// Key identifies a cached program. It is the compiler's cache key for
// the token sequence and precedence table the program was built from.
type Key [32]byte

// String returns the key as lowercase hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Store is the interface for compiled program persistence.
type Store interface {
	// Get retrieves a program by key. Returns nil if not found.
	Get(ctx context.Context, key Key) (*bytecode.Program, error)
	// Put stores a program by key, overwriting if it exists.
	Put(ctx context.Context, key Key, p *bytecode.Program) error
	// Delete removes a program by key.
	Delete(ctx context.Context, key Key) error
	// Close releases resources.
	Close() error
}

// Evaluation is one recorded evaluation.
type Evaluation struct {
	ID         uuid.UUID
	Expression string // space-separated source words
	Result     int64
	Error      string // empty on success
	Hash       string // content hash of the executed program, if it compiled
	At         time.Time
}

// HistoryStore extends Store with evaluation history.
type HistoryStore interface {
	// Record appends an evaluation. A zero ID is replaced with a new UUID
	// and a zero At with the current time.
	Record(ctx context.Context, e *Evaluation) error
	// History returns up to limit evaluations, newest first.
	History(ctx context.Context, limit int) ([]Evaluation, error)
}

// Open returns a store for the named driver: "memory", "sqlite" or "duckdb".
// path is ignored by the memory driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite", "duckdb":
		return NewSQL(driver, path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}

func (e *Evaluation) fill() {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
}

// encodeProgram returns the stored form of p and its content hash.
func encodeProgram(p *bytecode.Program) ([]byte, string, error) {
	data, err := bytecode.MarshalProgram(p)
	if err != nil {
		return nil, "", err
	}
	sum, err := p.HashHex()
	if err != nil {
		return nil, "", err
	}
	return data, sum, nil
}

// decodeProgram reverses encodeProgram, checking the content hash.
func decodeProgram(key Key, data []byte, sum string) (*bytecode.Program, error) {
	p, err := bytecode.UnmarshalProgram(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptProgram, key, err)
	}
	got, err := p.HashHex()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptProgram, key, err)
	}
	if got != sum {
		return nil, fmt.Errorf("%w: %s: hash %s, recorded %s", ErrCorruptProgram, key, got, sum)
	}
	return p, nil
}
