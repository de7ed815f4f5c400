package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/climb/pkg/bytecode"
)

// Current schema version
const SchemaVersion = "1"

// Statements run one at a time; both drivers accept this dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		program BLOB NOT NULL,
		hash TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		expression TEXT NOT NULL,
		result BIGINT NOT NULL,
		error_message TEXT NOT NULL,
		hash TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}

// SQL is a database/sql-backed store. The "sqlite" driver is always
// available; "duckdb" needs a cgo build.
type SQL struct {
	mu     sync.Mutex
	db     *sql.DB
	driver string
}

// NewSQL opens (creating if needed) a store database at path.
func NewSQL(driver, path string) (*SQL, error) {
	if !slices.Contains(sql.Drivers(), driver) {
		return nil, fmt.Errorf("%w: %s", ErrDriverUnavailable, driver)
	}
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers for both drivers.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	s := &SQL{db: db, driver: driver}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	log.Debugf("opened %s store at %s", driver, path)
	return s, nil
}

// Driver returns the database/sql driver name.
func (s *SQL) Driver() string {
	return s.driver
}

// Get retrieves a program by key.
func (s *SQL) Get(ctx context.Context, key Key) (*bytecode.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data []byte
	var sum string
	err := s.db.QueryRowContext(ctx, "SELECT program, hash FROM programs WHERE key = ?", key.String()).Scan(&data, &sum)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeProgram(key, data, sum)
}

// Put stores a program by key.
func (s *SQL) Put(ctx context.Context, key Key, p *bytecode.Program) error {
	data, sum, err := encodeProgram(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO programs (key, program, hash) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET program = excluded.program, hash = excluded.hash
	`, key.String(), data, sum)
	return err
}

// Delete removes a program by key.
func (s *SQL) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM programs WHERE key = ?", key.String())
	return err
}

// Close closes the database connection.
func (s *SQL) Close() error {
	return s.db.Close()
}

// Record appends an evaluation.
func (s *SQL) Record(ctx context.Context, e *Evaluation) error {
	e.fill()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluations (id, expression, result, error_message, hash, created_at) VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID.String(), e.Expression, e.Result, e.Error, e.Hash, e.At.UnixNano())
	return err
}

// History returns up to limit evaluations, newest first. A limit of zero
// or less returns every evaluation.
func (s *SQL) History(ctx context.Context, limit int) ([]Evaluation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT id, expression, result, error_message, hash, created_at FROM evaluations ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var e Evaluation
		var id string
		var at int64
		if err := rows.Scan(&id, &e.Expression, &e.Result, &e.Error, &e.Hash, &at); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("evaluation %q: %w", id, err)
		}
		e.At = time.Unix(0, at).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQL) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQL) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQL) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
