// Package config loads stratalog configuration from an optional yaml
// file. Absent file or fields fall back to production defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all stratalog configuration.
type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Logging LoggingConfig `yaml:"logging"`
	Watch   WatchConfig   `yaml:"watch"`
}

// SolverConfig configures solver limits and checks.
type SolverConfig struct {
	// FactLimit caps the relational store; 0 means unlimited.
	FactLimit int `yaml:"fact_limit"`

	// SolveTimeout bounds one solve; empty means no timeout. Duration
	// string, e.g. "30s".
	SolveTimeout string `yaml:"solve_timeout"`

	// CheckLattice enables lattice law spot checks on every join.
	CheckLattice bool `yaml:"check_lattice"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	// Debounce coalesces bursts of file events. Duration string.
	Debounce string `yaml:"debounce"`
}

// Default returns production defaults.
func Default() Config {
	return Config{
		Solver: SolverConfig{
			FactLimit:    0,
			SolveTimeout: "",
			CheckLattice: false,
		},
		Watch: WatchConfig{
			Debounce: "250ms",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error;
// a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// SolveTimeoutDuration parses the solve timeout; zero means none.
func (c SolverConfig) SolveTimeoutDuration() (time.Duration, error) {
	if c.SolveTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SolveTimeout)
	if err != nil {
		return 0, fmt.Errorf("solve_timeout: %w", err)
	}
	return d, nil
}

// DebounceDuration parses the watch debounce interval.
func (c WatchConfig) DebounceDuration() (time.Duration, error) {
	if c.Debounce == "" {
		return 250 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Debounce)
	if err != nil {
		return 0, fmt.Errorf("debounce: %w", err)
	}
	return d, nil
}
