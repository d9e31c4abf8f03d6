// Package config handles caos.toml runtime configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/psilLang/caos/pkg/catalog"
)

// Config represents a caos.toml file.
type Config struct {
	VM      VM      `toml:"vm"`
	World   World   `toml:"world"`
	Catalog Catalog `toml:"catalog"`
	Store   Store   `toml:"store"`
	Log     Log     `toml:"log"`
}

// VM configures script scheduling.
type VM struct {
	// Quota is the number of instructions each agent runs per tick.
	Quota int `toml:"quota"`
	// ImmediateQuota bounds injected scripts; negative means unlimited.
	ImmediateQuota int `toml:"immediate_quota"`
}

// World configures the sandbox.
type World struct {
	Size      int      `toml:"size"`
	Seed      int64    `toml:"seed"`
	Ticks     int      `toml:"ticks"`
	TimerRate int      `toml:"timer_rate"`
	Scripts   []string `toml:"scripts"`
}

// Catalog lists extra catalog files layered over the built-in one.
type Catalog struct {
	Paths []string `toml:"paths"`
}

// Store configures unit persistence.
type Store struct {
	Path string `toml:"path"`
}

// Log configures logging.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.VM.ImmediateQuota = -1
	c.applyDefaults()
	return c
}

// Load parses a caos.toml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML data; name is used in error messages.
func Parse(data []byte, name string) (*Config, error) {
	c := Config{VM: VM{ImmediateQuota: -1}}
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", name, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys %s", name, strings.Join(names, ", "))
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.VM.Quota <= 0 {
		c.VM.Quota = 20
	}
	if c.World.Size <= 0 {
		c.World.Size = 32
	}
	if c.World.Ticks <= 0 {
		c.World.Ticks = 1000
	}
	if c.World.TimerRate < 0 {
		c.World.TimerRate = 0
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// LogLevel returns the configured zerolog level.
func (c *Config) LogLevel() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// Strings builds the diagnostics catalog: the built-in one with every
// configured file layered on top in order.
func (c *Config) Strings() (*catalog.Table, error) {
	t := catalog.Default().Clone()
	for _, p := range c.Catalog.Paths {
		if err := t.LoadFile(p); err != nil {
			return nil, err
		}
	}
	return t, nil
}
