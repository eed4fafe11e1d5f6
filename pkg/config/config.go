// Package config handles ember.toml configuration and its environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"ember/pkg/vm"
)

const (
	FileName    = "ember.toml"
	EnvFileName = ".env"
)

// Environment variables, highest precedence.
const (
	EnvMaxFrames    = "EMBER_MAX_FRAMES"
	EnvStackSize    = "EMBER_STACK_SIZE"
	EnvTrace        = "EMBER_TRACE"
	EnvLogVerbosity = "EMBER_LOG_VERBOSITY"
	EnvLogFile      = "EMBER_LOG_FILE"
	EnvCache        = "EMBER_CACHE"
)

// Config represents an ember.toml configuration.
type Config struct {
	VM    VMConfig    `toml:"vm"`
	Log   LogConfig   `toml:"log"`
	Cache CacheConfig `toml:"cache"`

	// Dir is the directory the configuration was loaded from (set at load time).
	Dir string `toml:"-"`
}

// VMConfig sizes the virtual machine.
type VMConfig struct {
	MaxFrames int  `toml:"max-frames"`
	StackSize int  `toml:"stack-size"`
	Trace     bool `toml:"trace"`
}

// LogConfig is passed to commonlog.Configure.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// CacheConfig controls the compile cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`
}

func Default() *Config {
	return &Config{
		VM: VMConfig{
			MaxFrames: vm.DefaultMaxFrames,
			StackSize: vm.DefaultStackSize,
		},
		Cache: CacheConfig{Enabled: true},
	}
}

// Load builds a configuration from the defaults, then dir/ember.toml, then
// dir/.env, then the process environment. Missing files are skipped.
func Load(dir string) (*Config, error) {
	c := Default()

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.Dir = abs

	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	envPath := filepath.Join(abs, EnvFileName)
	dotenv, err := godotenv.Read(envPath)
	switch {
	case err == nil:
		if err := c.applyEnv(mapLookup(dotenv)); err != nil {
			return nil, fmt.Errorf("%s: %w", envPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("cannot read %s: %w", envPath, err)
	}

	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if s, ok := lookup(EnvMaxFrames); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxFrames, err)
		}
		c.VM.MaxFrames = n
	}
	if s, ok := lookup(EnvStackSize); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStackSize, err)
		}
		c.VM.StackSize = n
	}
	if s, ok := lookup(EnvTrace); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTrace, err)
		}
		c.VM.Trace = b
	}
	if s, ok := lookup(EnvLogVerbosity); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLogVerbosity, err)
		}
		c.Log.Verbosity = n
	}
	if s, ok := lookup(EnvLogFile); ok {
		c.Log.File = s
	}
	if s, ok := lookup(EnvCache); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCache, err)
		}
		c.Cache.Enabled = b
	}
	return nil
}

func (c *Config) Validate() error {
	if c.VM.MaxFrames < 1 {
		return fmt.Errorf("vm.max-frames must be positive, got %d", c.VM.MaxFrames)
	}
	if c.VM.StackSize < 2 {
		return fmt.Errorf("vm.stack-size must be at least 2, got %d", c.VM.StackSize)
	}
	if c.Log.Verbosity < -4 {
		return fmt.Errorf("log.verbosity must be at least -4, got %d", c.Log.Verbosity)
	}
	return nil
}

// VMOptions converts the vm section into virtual machine options.
func (c *Config) VMOptions() vm.Options {
	return vm.Options{
		StackSize: c.VM.StackSize,
		MaxFrames: c.VM.MaxFrames,
		Trace:     c.VM.Trace,
	}
}

// ConfigureLogging sets up the commonlog backend. An empty log file means
// stderr.
func (c *Config) ConfigureLogging() {
	var path *string
	if c.Log.File != "" {
		file := c.Log.File
		if !filepath.IsAbs(file) && c.Dir != "" {
			file = filepath.Join(c.Dir, file)
		}
		path = &file
	}
	commonlog.Configure(c.Log.Verbosity, path)
}
