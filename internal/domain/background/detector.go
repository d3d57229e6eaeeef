// Package background detects and selects the N2 background sweep of a batch
// of cyclic voltammetry records.
//
// A background sweep is recorded at a slow scan rate (about 10 mV/s) with a
// fixed number of points per clean cycle. The Detector decides whether a batch
// plausibly holds one; the Selector picks exactly which samples form it and
// rescales current density when the sweep ran faster than the reference rate.
package background

import (
	"context"
	"fmt"

	"github.com/okian/n2bg/internal/domain/dedupe"
	"github.com/okian/n2bg/internal/domain/model"
)

// Verdict is the outcome of a Detector check.
type Verdict struct {
	OK            bool
	MinScanRate   float64
	CandidateRows int   // distinct samples at the minimum scan rate
	Reason        error // nil when OK
}

// Detector reports whether a batch contains a background sweep.
// It has no side effects.
type Detector struct {
	settings settings
}

// NewDetector creates a Detector with configuration options.
func NewDetector(opts ...Option) *Detector {
	return &Detector{settings: buildSettings(opts)}
}

// ContainsBackground reports whether batch plausibly holds a slow-scan
// background sweep of the expected length.
func (d *Detector) ContainsBackground(ctx context.Context, batch model.Batch) bool {
	return d.Check(ctx, batch).OK
}

// Check runs the detection rules and explains a rejection.
//
// Exact duplicate rows are counted once, so a batch and the same batch with
// every row repeated get the same verdict.
func (d *Detector) Check(ctx context.Context, batch model.Batch) Verdict {
	working, _ := dedupe.Samples(ctx, batch)
	return d.check(batch, working)
}

// check evaluates batch given its deduplicated working set. The minimum scan
// rate always comes from the original batch.
func (d *Detector) check(batch, working model.Batch) Verdict {
	const op = "background.detect"

	minRate, ok := batch.MinScanRate()
	if !ok {
		return Verdict{Reason: newError(op, ErrInputShape, ErrEmptyBatch)}
	}
	v := Verdict{MinScanRate: minRate}

	if !(minRate > 0 && minRate <= d.settings.maxScanRate) {
		v.Reason = newError(op, ErrNoBackground,
			fmt.Errorf("%w: %g V/s not in (0, %g]", ErrScanRateOutOfRange, minRate, d.settings.maxScanRate))
		return v
	}

	group := working.Indices(minRate)
	v.CandidateRows = len(group)
	expected := d.settings.expectedLength

	if len(group) < expected {
		v.Reason = newError(op, ErrNoBackground,
			fmt.Errorf("%w: %d < %d", ErrTooFewPoints, len(group), expected))
		return v
	}

	if !hasSegmentOfLength(bySegment(working, group), expected) {
		v.Reason = newError(op, ErrNoBackground,
			fmt.Errorf("%w: no segment has %d rows", ErrNoExactSegment, expected))
		return v
	}

	v.OK = true
	return v
}

// ContainsBackground is a convenience wrapper around NewDetector(opts...).
func ContainsBackground(ctx context.Context, batch model.Batch, opts ...Option) bool {
	return NewDetector(opts...).ContainsBackground(ctx, batch)
}
