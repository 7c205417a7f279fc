package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Body       BodyConfig       `toml:"body"`
	Database   DatabaseConfig   `toml:"database"`
	Simulation SimulationConfig `toml:"simulation"`
	Scripting  ScriptingConfig  `toml:"scripting"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Logging    LoggingConfig    `toml:"logging"`
}

type BodyConfig struct {
	Definition string `toml:"definition"` // body-definition YAML
	DotOutput  string `toml:"dot_output"` // Graphviz body map, empty = off
}

type DatabaseConfig struct {
	Driver          string        `toml:"driver"` // "postgres", "sqlite" or "" to disable snapshots
	DSN             string        `toml:"dsn"`
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type SimulationConfig struct {
	Creatures int           `toml:"creatures"`
	Ticks     int           `toml:"ticks"`
	TickRate  time.Duration `toml:"tick_rate"`
	HitChance float64       `toml:"hit_chance"` // per creature per tick
	Seed      int64         `toml:"seed"`       // 0 = time based
	SaveEvery int           `toml:"save_every"` // ticks between snapshot saves, 0 = only at exit
	Resume    bool          `toml:"resume"`     // restore saved bodies instead of spawning
	Inspect   []string      `toml:"inspect"`    // logical ids printed in detail at exit
}

type ScriptingConfig struct {
	Dir string `toml:"dir"` // empty = built-in surface-weighted choice
}

type MetricsConfig struct {
	BindAddress string `toml:"bind_address"` // empty = off
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaults()
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q: want postgres, sqlite or empty", c.Database.Driver)
	}
	if c.Simulation.Creatures < 0 || c.Simulation.Ticks < 0 || c.Simulation.SaveEvery < 0 {
		return fmt.Errorf("simulation counts must not be negative")
	}
	if c.Simulation.HitChance < 0 || c.Simulation.HitChance > 1 {
		return fmt.Errorf("simulation.hit_chance %v: want 0..1", c.Simulation.HitChance)
	}
	if c.Simulation.Resume && c.Database.Driver == "" {
		return fmt.Errorf("simulation.resume needs a database")
	}
	if c.Body.Definition == "" {
		return fmt.Errorf("body.definition is required")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Body: BodyConfig{
			Definition: "data/yaml/humanoid.yaml",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "anatomy.db",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Simulation: SimulationConfig{
			Creatures: 3,
			Ticks:     10,
			TickRate:  200 * time.Millisecond,
			HitChance: 0.5,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
