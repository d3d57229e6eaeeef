// Package normalize rescales current density to a reference scan rate.
//
// Capacitive background current grows linearly with scan rate, so a sweep
// recorded faster than the reference is divided by rate/reference before it
// is subtracted from an ORR measurement.
package normalize

import (
	"math"

	"github.com/okian/n2bg/internal/domain/model"
)

// DefaultReferenceScanRate is 10 mV/s.
const DefaultReferenceScanRate = 0.01

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithReferenceScanRate sets the scan rate (V/s) results are normalized to.
// Non-positive and non-finite values are ignored.
func WithReferenceScanRate(rate float64) Option {
	return func(n *Normalizer) {
		if rate > 0 && !math.IsInf(rate, 0) {
			n.reference = rate
		}
	}
}

// Normalizer computes scan-rate factors and rescaled current densities.
type Normalizer struct {
	reference float64
}

// New creates a Normalizer with configuration options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{reference: DefaultReferenceScanRate}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Reference returns the reference scan rate.
func (n *Normalizer) Reference() float64 { return n.reference }

// Factor returns rate/reference and whether normalization applies, which is
// only when rate is above the reference.
func (n *Normalizer) Factor(rate float64) (float64, bool) {
	if !(rate > n.reference) {
		return 1, false
	}
	return rate / n.reference, true
}

// Apply returns the current density of every sample divided by factor.
// The batch is not modified.
func (n *Normalizer) Apply(batch model.Batch, factor float64) []float64 {
	out := batch.CurrentDensities()
	for i := range out {
		out[i] /= factor
	}
	return out
}
