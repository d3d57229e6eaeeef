package background

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/n2bg/internal/domain/dedupe"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/internal/domain/normalize"
	"github.com/okian/n2bg/pkg/logger"
)

// Selector picks the background sweep out of a batch.
type Selector struct {
	settings   settings
	detector   *Detector
	normalizer *normalize.Normalizer
}

// NewSelector creates a Selector with configuration options.
func NewSelector(opts ...Option) *Selector {
	s := buildSettings(opts)
	return &Selector{
		settings:   s,
		detector:   &Detector{settings: s},
		normalizer: normalize.New(normalize.WithReferenceScanRate(s.referenceScanRate)),
	}
}

// Detector returns the detector the selector validates batches with.
func (s *Selector) Detector() *Detector { return s.detector }

// Select returns the background sweep of batch.
//
// A batch the Detector rejects yields OutcomeEmpty. Heuristic mismatches also
// yield OutcomeEmpty with a warning logged. A structural failure is logged as
// an error and yields OutcomeFallback carrying the deduplicated working set.
// The input batch is never modified.
func (s *Selector) Select(ctx context.Context, batch model.Batch) Result {
	log := s.settings.logger

	working, removed := dedupe.Samples(ctx, batch)
	verdict := s.detector.check(batch, working)
	res := Result{DuplicatesRemoved: removed, CandidateRows: verdict.CandidateRows}
	if !verdict.OK {
		log.Info(ctx, "no background scan in batch",
			logger.Int("rows", len(batch)),
			logger.Float64("min_scan_rate", verdict.MinScanRate),
			logger.Error(verdict.Reason),
		)
		res.Outcome = OutcomeEmpty
		res.Reason = verdict.Reason
		return res
	}
	if removed > 0 {
		log.Debug(ctx, "dropped duplicate rows", logger.Int("duplicates", removed))
	}

	minRate := verdict.MinScanRate
	factor := 1.0
	var normalized []float64
	if f, ok := s.normalizer.Factor(minRate); ok {
		factor = f
		normalized = s.normalizer.Apply(working, f)
		log.Warn(ctx, "scan rate above reference",
			logger.Float64("scan_rate", minRate),
			logger.Float64("reference", s.normalizer.Reference()),
			logger.Float64("factor", f),
		)
		res.Warnings = append(res.Warnings, ErrAboveReferenceRate)
	}

	picked, branch, warnings, err := s.decide(ctx, working, working.Indices(minRate))
	res.Branch = branch
	res.Warnings = append(res.Warnings, warnings...)

	switch {
	case errors.Is(err, ErrUnexpectedStructure):
		log.Error(ctx, "background selection failed; returning unfiltered working set",
			logger.Int("rows", len(working)),
			logger.Error(err),
		)
		res.Outcome = OutcomeFallback
		res.Reason = err
		res.Scan = build(working, normalized, allRows(len(working)), minRate, factor)
	case err != nil:
		res.Outcome = OutcomeEmpty
		res.Reason = err
	default:
		res.Outcome = OutcomeSelected
		res.Scan = build(working, normalized, picked, minRate, factor)
	}
	return res
}

// decide applies the segment-count rules to the candidate group and returns
// the chosen positions in working.
func (s *Selector) decide(ctx context.Context, working model.Batch, group []int) (picked []int, branch Branch, warnings []error, err error) {
	const op = "background.select"

	defer func() {
		if r := recover(); r != nil {
			picked = nil
			err = newError(op, ErrUnexpectedStructure, fmt.Errorf("panic: %v", r))
		}
	}()

	for _, i := range group {
		if working[i].Segment < 0 {
			return nil, BranchNone, nil, newError(op, ErrUnexpectedStructure,
				fmt.Errorf("%w %d in %q", ErrNegativeSegment, working[i].Segment, working[i].Source))
		}
	}

	log := s.settings.logger
	expected := s.settings.expectedLength
	n := len(group)

	switch {
	case n > expected+1:
		branch = BranchOversized
		log.Warn(ctx, "candidate group exceeds expected length",
			logger.Int("rows", n), logger.Int("expected", expected))
		warnings = append(warnings, ErrOversizedGroup)

		matched := 0
		for _, seg := range bySegment(working, group) {
			if len(seg.rows) == expected {
				picked = append(picked, seg.rows...)
				matched++
			}
		}
		if matched > 1 {
			log.Warn(ctx, "several segments have expected length; concatenating by segment index",
				logger.Int("segments", matched))
			warnings = append(warnings, ErrAmbiguousSegments)
		}

	case n < expected:
		branch = BranchUndersized
		var segs []segmentRows
		if n > 0 {
			segs = bySegment(working, fromSource(working, group, working[group[0]].Source))
		}
		if len(segs) != 1 || len(segs[0].rows) != expected {
			log.Warn(ctx, "fewer than expected points",
				logger.Int("rows", n), logger.Int("expected", expected))
			return nil, branch, warnings, newError(op, ErrInsufficientData,
				fmt.Errorf("%d of %d rows", n, expected))
		}
		picked = segs[0].rows

	case n == expected:
		branch = BranchExact
		log.Info(ctx, "background scan has expected length", logger.Int("rows", n))
		picked = group
	}

	if len(picked) == 0 {
		log.Warn(ctx, "background selection is empty",
			logger.Int("rows", n), logger.Int("expected", expected))
		return nil, branch, warnings, newError(op, ErrEmptySelection, nil)
	}
	return picked, branch, warnings, nil
}

func build(working model.Batch, normalized []float64, idx []int, rate, factor float64) BackgroundScan {
	scan := BackgroundScan{
		Samples:  working.Pick(idx),
		ScanRate: rate,
		Factor:   factor,
	}
	if normalized != nil {
		scan.NormalizedCurrentDensity = make([]float64, len(idx))
		for k, i := range idx {
			scan.NormalizedCurrentDensity[k] = normalized[i]
		}
	}
	scan.Segments = segmentsOf(scan.Samples)
	scan.Sources = scan.Samples.Sources()
	return scan
}

// Select is a convenience wrapper around NewSelector(opts...).
func Select(ctx context.Context, batch model.Batch, opts ...Option) Result {
	return NewSelector(opts...).Select(ctx, batch)
}
