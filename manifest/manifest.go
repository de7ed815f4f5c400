// Package manifest handles climb.toml project configuration.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/climb/compiler"
)

// FileName is the name of the project configuration file.
const FileName = "climb.toml"

// Defaults applied to fields left empty in climb.toml.
const (
	DefaultCacheDriver = "sqlite"
	DefaultCachePath   = ".climb/cache.db"
	DefaultPort        = 4567
	DefaultGRPCPort    = 4568
)

// Manifest represents a climb.toml project configuration.
type Manifest struct {
	// Operators maps operator symbols to binding powers. When empty the
	// compiler's default table is used.
	Operators map[string]int `toml:"operators" json:"operators,omitempty"`
	Cache     CacheConfig    `toml:"cache" json:"cache"`
	Log       LogConfig      `toml:"log" json:"log"`
	Server    ServerConfig   `toml:"server" json:"server"`

	// Dir is the directory containing the climb.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// CacheConfig configures the compiled-program cache.
type CacheConfig struct {
	Enabled *bool  `toml:"enabled" json:"enabled"`
	Driver  string `toml:"driver" json:"driver"`
	Path    string `toml:"path" json:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	File      string `toml:"file" json:"file"`
}

// ServerConfig configures the evaluation server.
type ServerConfig struct {
	Port     int `toml:"port" json:"port"`
	GRPCPort int `toml:"grpc-port" json:"grpc-port"`
}

// Default returns a manifest with every default applied, rooted at dir.
func Default(dir string) (*Manifest, error) {
	m := &Manifest{}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.Dir = abs
	m.applyDefaults()
	m.ApplyEnv()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load parses a climb.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	m.ApplyEnv()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a climb.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// LoadOrDefault is FindAndLoad falling back to Default(startDir).
func LoadOrDefault(startDir string) (*Manifest, error) {
	m, err := FindAndLoad(startDir)
	if err != nil || m != nil {
		return m, err
	}
	return Default(startDir)
}

// Write encodes the manifest as climb.toml in dir. It refuses to
// overwrite an existing file.
func Write(dir string, m *Manifest) error {
	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	enc := toml.NewEncoder(f)
	enc.Indent = ""
	if err := enc.Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}

func (m *Manifest) applyDefaults() {
	if m.Cache.Enabled == nil {
		enabled := true
		m.Cache.Enabled = &enabled
	}
	if m.Cache.Driver == "" {
		m.Cache.Driver = DefaultCacheDriver
	}
	if m.Cache.Path == "" {
		m.Cache.Path = DefaultCachePath
	}
	if m.Server.Port == 0 {
		m.Server.Port = DefaultPort
	}
	if m.Server.GRPCPort == 0 {
		m.Server.GRPCPort = DefaultGRPCPort
	}
}

// CacheEnabled reports whether the program cache is turned on.
func (m *Manifest) CacheEnabled() bool {
	return m.Cache.Enabled == nil || *m.Cache.Enabled
}

// CachePath returns the absolute path of the cache database. Relative
// paths are resolved against the manifest directory.
func (m *Manifest) CachePath() string {
	if m.Cache.Path == ":memory:" || filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// LogFilePath returns the absolute log file path, or "" for stderr.
func (m *Manifest) LogFilePath() string {
	if m.Log.File == "" || filepath.IsAbs(m.Log.File) {
		return m.Log.File
	}
	return filepath.Join(m.Dir, m.Log.File)
}

// Table returns the precedence table configured by [operators], or the
// default table when the section is empty.
func (m *Manifest) Table() (compiler.Table, error) {
	if len(m.Operators) == 0 {
		return compiler.DefaultTable(), nil
	}
	t, err := compiler.NewTable(m.Operators)
	if err != nil {
		return nil, fmt.Errorf("[operators]: %w", err)
	}
	return t, nil
}

// ErrInvalidManifest is wrapped by every schema validation failure.
var ErrInvalidManifest = errors.New("invalid manifest")
