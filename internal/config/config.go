// Package config holds the process-wide numerical settings read by the
// conditional routines: covariance jitter, output precision and the
// parallelism used for batched sub-problems.
//
// Settings are plain values, read-only during computation. They can be
// loaded from YAML:
//
//	jitter: 1.0e-6
//	precision: float64
//	parallel:
//	  enabled: true
//	  workers: 8
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/mogp/internal/parallel"
)

// DefaultJitter is added to covariance diagonals before factorization.
const DefaultJitter = 1e-6

// Precision selects the floating-point precision of returned results.
type Precision string

// Supported precisions.
const (
	Float64 Precision = "float64"
	Float32 Precision = "float32"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// ParallelConfig controls the batched map over independent outputs/latents.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
}

// Config is the numerical configuration of a Conditioner.
type Config struct {
	Jitter    float64        `yaml:"jitter"`
	Precision Precision      `yaml:"precision"`
	Parallel  ParallelConfig `yaml:"parallel"`
}

// Default returns jitter 1e-6, float64 results and one worker per CPU.
func Default() Config {
	p := parallel.DefaultConfig()
	return Config{
		Jitter:    DefaultJitter,
		Precision: Float64,
		Parallel: ParallelConfig{
			Enabled: p.Enabled,
			Workers: p.NumWorkers,
		},
	}
}

// Validate checks ranges and enumerations.
// A zero jitter is allowed; negative or non-finite jitter is not.
func (c Config) Validate() error {
	if c.Jitter < 0 || math.IsNaN(c.Jitter) || math.IsInf(c.Jitter, 0) {
		return fmt.Errorf("%w: jitter must be a finite value >= 0, got %v", ErrInvalidConfig, c.Jitter)
	}
	switch c.Precision {
	case Float64, Float32:
	default:
		return fmt.Errorf("%w: unknown precision %q", ErrInvalidConfig, c.Precision)
	}
	if c.Parallel.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Parallel.Workers)
	}
	return nil
}

// ParallelOptions converts the settings into a parallel.Config.
func (c Config) ParallelOptions() parallel.Config {
	p := parallel.DefaultConfig()
	p.Enabled = c.Parallel.Enabled
	if c.Parallel.Workers > 0 {
		p.NumWorkers = c.Parallel.Workers
	}
	return p
}

// Parse decodes YAML on top of Default, so omitted keys keep their defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(data)
}
