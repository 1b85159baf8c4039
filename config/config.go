// Package config handles tern.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ternlang/tern/runtime"
)

// Config represents a tern.toml configuration.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	Store   Store   `toml:"store"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the tern.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the execution engine.
type Runtime struct {
	MaxFrames     int   `toml:"max-frames"`
	ReserveFrames int   `toml:"reserve-frames"`
	HeapLimit     int64 `toml:"heap-limit"`
}

// Store configures the unit artifact store.
type Store struct {
	Path string `toml:"path"`
}

// Log configures diagnostics.
type Log struct {
	Verbosity int `toml:"verbosity"`
}

// Options converts the runtime section into engine options.
func (c *Config) Options() runtime.Options {
	return runtime.Options{
		MaxFrames:     c.Runtime.MaxFrames,
		ReserveFrames: c.Runtime.ReserveFrames,
		HeapLimit:     c.Runtime.HeapLimit,
	}
}

// StorePath returns the configured store path resolved against the config
// directory.
func (c *Config) StorePath() string {
	if c.Store.Path == "" || filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(c.Dir, c.Store.Path)
}

// Load parses a tern.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "tern.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if c.Runtime.MaxFrames == 0 {
		c.Runtime.MaxFrames = runtime.DefaultMaxFrames
	}
	if c.Runtime.ReserveFrames == 0 {
		c.Runtime.ReserveFrames = runtime.DefaultReserveFrames
	}
	if c.Runtime.HeapLimit == 0 {
		c.Runtime.HeapLimit = runtime.DefaultHeapLimit
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a tern.toml file, then loads
// and returns the configuration. Returns nil if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "tern.toml")
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
