package background

import (
	"github.com/okian/n2bg/internal/domain/model"
)

// Outcome tells how a selection ended.
type Outcome int

const (
	// OutcomeEmpty means no usable background scan. It is a normal result.
	OutcomeEmpty Outcome = iota
	// OutcomeSelected means Scan holds the chosen background sweep.
	OutcomeSelected
	// OutcomeFallback means selection hit a structural failure and Scan holds
	// the deduplicated, unfiltered working set instead of a chosen sweep.
	OutcomeFallback
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeSelected:
		return "selected"
	case OutcomeFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Branch names the segment-count rule that handled the candidate group.
type Branch int

const (
	BranchNone Branch = iota
	BranchOversized
	BranchUndersized
	BranchExact
)

func (b Branch) String() string {
	switch b {
	case BranchNone:
		return "none"
	case BranchOversized:
		return "oversized"
	case BranchUndersized:
		return "undersized"
	case BranchExact:
		return "exact"
	default:
		return "unknown"
	}
}

// BackgroundScan is the selected sweep.
type BackgroundScan struct {
	Samples model.Batch

	// NormalizedCurrentDensity runs parallel to Samples. It is nil when the
	// scan rate did not exceed the reference and no rescale was applied.
	NormalizedCurrentDensity []float64

	ScanRate float64 // minimum scan rate of the batch
	Factor   float64 // ScanRate / reference, 1 when not normalized
	Segments []int   // segment indices present, in output order
	Sources  []string
}

// Len returns the number of samples in the scan.
func (s BackgroundScan) Len() int { return len(s.Samples) }

// Normalized reports whether a scan-rate rescale was applied.
func (s BackgroundScan) Normalized() bool { return s.NormalizedCurrentDensity != nil }

// Result is returned by Selector.Select.
type Result struct {
	Outcome Outcome
	Branch  Branch
	Scan    BackgroundScan

	// Reason explains an Empty or Fallback outcome.
	Reason error
	// Warnings lists non-fatal data-quality signals raised on the way.
	Warnings []error

	DuplicatesRemoved int
	CandidateRows     int
}

// Empty reports whether no background scan is available.
func (r Result) Empty() bool { return r.Outcome == OutcomeEmpty }

// OK reports whether a background scan was selected.
func (r Result) OK() bool { return r.Outcome == OutcomeSelected }
