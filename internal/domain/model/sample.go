// Package model contains domain models passed between layers.
package model

import (
	"gonum.org/v1/gonum/floats"
)

// Sample is one measured point of a cyclic voltammetry recording.
type Sample struct {
	Potential      float64 // E vs RHE, volts
	CurrentDensity float64 // A/cm2
	ScanRate       float64 // V/s
	Segment        int     // cycle index within a recording
	Source         string  // source file identifier
}

// Batch is an ordered run of samples drawn from one or more source files.
// It may hold exact duplicates and several segments per file.
type Batch []Sample

// ScanRates returns the scan rate of every sample, in order.
func (b Batch) ScanRates() []float64 {
	rates := make([]float64, len(b))
	for i, s := range b {
		rates[i] = s.ScanRate
	}
	return rates
}

// CurrentDensities returns the current density of every sample, in order.
func (b Batch) CurrentDensities() []float64 {
	js := make([]float64, len(b))
	for i, s := range b {
		js[i] = s.CurrentDensity
	}
	return js
}

// MinScanRate returns the smallest scan rate in the batch. NaN rates are
// skipped unless every rate is NaN. Returns false for an empty batch.
func (b Batch) MinScanRate() (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	return floats.Min(b.ScanRates()), true
}

// Indices returns the positions of samples whose scan rate equals rate.
func (b Batch) Indices(rate float64) []int {
	var idx []int
	for i, s := range b {
		if s.ScanRate == rate {
			idx = append(idx, i)
		}
	}
	return idx
}

// Pick returns a new batch holding the samples at idx, in idx order.
func (b Batch) Pick(idx []int) Batch {
	out := make(Batch, len(idx))
	for i, j := range idx {
		out[i] = b[j]
	}
	return out
}

// Sources returns the distinct source identifiers in encounter order.
func (b Batch) Sources() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range b {
		if _, ok := seen[s.Source]; ok {
			continue
		}
		seen[s.Source] = struct{}{}
		out = append(out, s.Source)
	}
	return out
}

// Clone returns a copy that shares no backing array with b.
func (b Batch) Clone() Batch {
	if b == nil {
		return nil
	}
	out := make(Batch, len(b))
	copy(out, b)
	return out
}
