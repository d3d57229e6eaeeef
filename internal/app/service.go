// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/pkg/logger"
	"github.com/okian/n2bg/pkg/metrics"
)

// Operation labels for batch metrics.
const (
	opDetect    = "detect"
	opSelect    = "select"
	opInventory = "inventory"
)

// Service implements the API dependencies for background detection and
// selection. Each call works on its own batch; only counters are shared.
type Service struct {
	mu sync.RWMutex

	// Configuration
	maxScanRate       float64
	expectedLength    int
	referenceScanRate float64
	maxBatchRows      int

	// State
	started bool
	base    []background.Option

	// Counters
	batches    atomic.Int64
	selected   atomic.Int64
	fallbacks  atomic.Int64
	empty      atomic.Int64
	normalized atomic.Int64
	duplicates atomic.Int64

	logger  logger.Logger
	metrics *metrics.Manager
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxScanRate sets the ceiling (V/s) for a background batch minimum scan rate.
func WithMaxScanRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 {
			s.maxScanRate = rate
		}
	}
}

// WithExpectedLength sets the number of points in one clean background cycle.
func WithExpectedLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.expectedLength = n
		}
	}
}

// WithReferenceScanRate sets the scan rate current density is normalized to.
func WithReferenceScanRate(rate float64) Option {
	return func(s *Service) {
		if rate > 0 {
			s.referenceScanRate = rate
		}
	}
}

// WithMaxBatchRows caps the number of samples accepted per call.
func WithMaxBatchRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchRows = n
		}
	}
}

// WithMetrics records to m instead of the process-wide manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		maxScanRate:       background.DefaultMaxScanRate,
		expectedLength:    background.DefaultExpectedLength,
		referenceScanRate: background.DefaultReferenceScanRate,
		maxBatchRows:      200_000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start prepares the detector and selector settings.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}

	s.base = []background.Option{
		background.WithMaxScanRate(s.maxScanRate),
		background.WithExpectedLength(s.expectedLength),
		background.WithReferenceScanRate(s.referenceScanRate),
		background.WithLogger(s.logger.Named("background")),
	}

	s.started = true
	s.logger.Info(ctx, "background service started",
		logger.Float64("max_scan_rate", s.maxScanRate),
		logger.Int("expected_length", s.expectedLength),
		logger.Float64("reference_scan_rate", s.referenceScanRate),
		logger.Int("max_batch_rows", s.maxBatchRows),
	)

	return nil
}

// Stop marks the service as stopped. Calls made afterwards fail with ErrNotStarted.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "background service stopped")
}

// options returns the base settings followed by overrides, after checking
// that the service accepts batch.
func (s *Service) options(op string, batch model.Batch, overrides []background.Option) ([]background.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, fmt.Errorf("%s: %w", op, ErrNotStarted)
	}
	if len(batch) > s.maxBatchRows {
		return nil, fmt.Errorf("%s: %w: %d rows, limit %d", op, ErrBatchTooLarge, len(batch), s.maxBatchRows)
	}

	opts := make([]background.Option, 0, len(s.base)+len(overrides))
	opts = append(opts, s.base...)
	return append(opts, overrides...), nil
}

// Detect reports whether batch holds a background sweep and why not.
func (s *Service) Detect(ctx context.Context, batch model.Batch, overrides ...background.Option) (background.Verdict, error) {
	opts, err := s.options("service.detect", batch, overrides)
	if err != nil {
		return background.Verdict{}, err
	}

	s.batches.Add(1)
	s.metrics.RecordBatch(opDetect, len(batch))

	v := background.NewDetector(opts...).Check(ctx, batch)
	if !v.OK {
		s.metrics.RecordRejection(background.Label(v.Reason))
	}
	s.logger.Debug(ctx, "detector verdict",
		logger.Bool("ok", v.OK),
		logger.Int("rows", len(batch)),
		logger.Float64("min_scan_rate", v.MinScanRate),
		logger.Int("candidate_rows", v.CandidateRows),
	)
	return v, nil
}

// SelectBackground runs the selector over batch and returns the result
// tagged with a new run id.
func (s *Service) SelectBackground(ctx context.Context, batch model.Batch, overrides ...background.Option) (string, background.Result, error) {
	opts, err := s.options("service.select", batch, overrides)
	if err != nil {
		return "", background.Result{}, err
	}

	start := time.Now()
	runID := uuid.NewString()
	s.batches.Add(1)
	s.metrics.RecordBatch(opSelect, len(batch))

	res := background.NewSelector(opts...).Select(ctx, batch)

	latency := float64(time.Since(start).Microseconds()) / 1000
	s.record(res, latency)

	s.logger.Info(ctx, "background selection finished",
		logger.String("run_id", runID),
		logger.String("outcome", res.Outcome.String()),
		logger.String("branch", res.Branch.String()),
		logger.Int("rows", len(batch)),
		logger.Int("selected", res.Scan.Len()),
		logger.Float64("latency_ms", latency),
	)
	return runID, res, nil
}

func (s *Service) record(res background.Result, latencyMs float64) {
	s.metrics.RecordSelection(res.Outcome.String(), res.Branch.String(), latencyMs)
	s.metrics.RecordDuplicates(res.DuplicatesRemoved)
	s.duplicates.Add(int64(res.DuplicatesRemoved))

	for _, w := range res.Warnings {
		s.metrics.RecordWarning(background.Label(w))
	}
	if res.Scan.Normalized() {
		s.normalized.Add(1)
		s.metrics.RecordNormalization()
	}

	switch res.Outcome {
	case background.OutcomeSelected:
		s.selected.Add(1)
	case background.OutcomeFallback:
		s.fallbacks.Add(1)
	default:
		s.empty.Add(1)
		s.metrics.RecordRejection(background.Label(res.Reason))
	}
}

// Inventory lists the (scan rate, segment, source) groups of batch.
func (s *Service) Inventory(ctx context.Context, batch model.Batch, overrides ...background.Option) ([]background.Group, error) {
	opts, err := s.options("service.inventory", batch, overrides)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordBatch(opInventory, len(batch))
	return background.NewDetector(opts...).Inventory(ctx, batch), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"started":           s.started,
		"maxScanRate":       s.maxScanRate,
		"expectedLength":    s.expectedLength,
		"referenceScanRate": s.referenceScanRate,
		"maxBatchRows":      s.maxBatchRows,
		"batches":           s.batches.Load(),
		"selected":          s.selected.Load(),
		"fallbacks":         s.fallbacks.Load(),
		"empty":             s.empty.Load(),
		"normalized":        s.normalized.Load(),
		"duplicatesRemoved": s.duplicates.Load(),
	}
}
