// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config holding defaults; Load layers file and env on top.
// - Validate reports problems as errors wrapping ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// MaxScanRate is the ceiling (V/s) for a batch minimum scan rate.
	MaxScanRate float64 `koanf:"max_scan_rate"`

	// ExpectedLength is the number of points in one clean background cycle.
	ExpectedLength int `koanf:"expected_length"`

	// ReferenceScanRate is the rate (V/s) current density is normalized to.
	ReferenceScanRate float64 `koanf:"reference_scan_rate"`

	// MaxBodyBytes caps HTTP request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MaxBatchRows caps the samples accepted in one batch.
	MaxBatchRows int `koanf:"max_batch_rows"`
}

// New creates a Config holding defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		MaxScanRate:       0.011,
		ExpectedLength:    2000,
		ReferenceScanRate: 0.01,
		MaxBodyBytes:      32 << 20,
		MaxBatchRows:      200_000,
	}
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case !positive(c.MaxScanRate):
		return fmt.Errorf("%w: max_scan_rate must be positive, got %g", ErrInvalidConfig, c.MaxScanRate)
	case !positive(c.ReferenceScanRate):
		return fmt.Errorf("%w: reference_scan_rate must be positive, got %g", ErrInvalidConfig, c.ReferenceScanRate)
	case c.ExpectedLength <= 0:
		return fmt.Errorf("%w: expected_length must be positive, got %d", ErrInvalidConfig, c.ExpectedLength)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive, got %d", ErrInvalidConfig, c.MaxBodyBytes)
	case c.MaxBatchRows < c.ExpectedLength:
		return fmt.Errorf("%w: max_batch_rows %d is below expected_length %d", ErrInvalidConfig, c.MaxBatchRows, c.ExpectedLength)
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
