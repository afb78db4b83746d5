// Package config handles garnet.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/garnet/vm"
	"github.com/chazu/garnet/vm/snapshot"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "garnet.toml"

// Config represents a garnet.toml file.
type Config struct {
	Heap  HeapConfig  `toml:"heap" json:"heap"`
	Hash  HashConfig  `toml:"hash" json:"hash"`
	Log   LogConfig   `toml:"log" json:"log"`
	Store StoreConfig `toml:"store" json:"store"`

	// Dir is the directory containing the garnet.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// HeapConfig tunes the collector.
type HeapConfig struct {
	// CollectThreshold is the number of allocations between automatic
	// collections. Zero disables automatic collection.
	CollectThreshold int `toml:"collect-threshold" json:"collect-threshold"`
}

// HashConfig tunes new hashes.
type HashConfig struct {
	InitialCapacity int    `toml:"initial-capacity" json:"initial-capacity"`
	CompactRatio    int    `toml:"compact-ratio" json:"compact-ratio"`
	Seed            uint64 `toml:"seed" json:"seed"`
}

// LogConfig configures commonlog.
type LogConfig struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	Path      string `toml:"path" json:"path"`
}

// StoreConfig configures the snapshot store.
type StoreConfig struct {
	Path   string `toml:"path" json:"path"`
	Format string `toml:"format" json:"format"`
}

// Default returns the configuration used when no garnet.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses a garnet.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	return c, nil
}

// Parse decodes and validates garnet.toml content.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a garnet.toml file, then
// loads it. Returns the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
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
			return Default(), nil
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.Hash.InitialCapacity == 0 {
		c.Hash.InitialCapacity = vm.DefaultHashCapacity
	}
	if c.Hash.CompactRatio == 0 {
		c.Hash.CompactRatio = vm.DefaultCompactRatio
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(".garnet", "snapshots.db")
	}
	if c.Store.Format == "" {
		c.Store.Format = snapshot.FormatCBOR.String()
	}
}

// VMOptions converts the hash settings into VM options.
func (c *Config) VMOptions() []vm.Option {
	opts := []vm.Option{
		vm.WithHashCapacity(c.Hash.InitialCapacity),
		vm.WithCompactRatio(c.Hash.CompactRatio),
	}
	if c.Hash.Seed != 0 {
		opts = append(opts, vm.WithHashSeed(c.Hash.Seed))
	}
	return opts
}

// StorePath returns the store database path, resolved against Dir.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Store.Path) || c.Dir == "" {
		return c.Store.Path
	}
	return filepath.Join(c.Dir, c.Store.Path)
}

// StoreFormat returns the configured snapshot format.
func (c *Config) StoreFormat() (snapshot.Format, error) {
	return snapshot.ParseFormat(c.Store.Format)
}
