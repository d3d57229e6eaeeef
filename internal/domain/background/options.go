package background

import (
	"math"

	"github.com/okian/n2bg/internal/domain/normalize"
	"github.com/okian/n2bg/pkg/logger"
)

// Defaults for N2 background sweeps: 10 mV/s with a little tolerance, and
// 2000 points per clean cycle.
const (
	DefaultMaxScanRate       = 0.011
	DefaultExpectedLength    = 2000
	DefaultReferenceScanRate = normalize.DefaultReferenceScanRate
)

type settings struct {
	maxScanRate       float64
	expectedLength    int
	referenceScanRate float64
	logger            logger.Logger
}

func defaultSettings() settings {
	return settings{
		maxScanRate:       DefaultMaxScanRate,
		expectedLength:    DefaultExpectedLength,
		referenceScanRate: DefaultReferenceScanRate,
	}
}

func buildSettings(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s
}

// Option applies a configuration option to a Detector or Selector.
type Option func(*settings)

// WithMaxScanRate sets the ceiling (V/s) for the batch minimum scan rate.
func WithMaxScanRate(rate float64) Option {
	return func(s *settings) {
		if rate > 0 && !math.IsInf(rate, 0) {
			s.maxScanRate = rate
		}
	}
}

// WithExpectedLength sets the number of points in one clean background cycle.
func WithExpectedLength(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.expectedLength = n
		}
	}
}

// WithReferenceScanRate sets the scan rate current density is normalized to.
func WithReferenceScanRate(rate float64) Option {
	return func(s *settings) {
		if rate > 0 && !math.IsInf(rate, 0) {
			s.referenceScanRate = rate
		}
	}
}

// WithLogger injects the logger used for selection diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}
