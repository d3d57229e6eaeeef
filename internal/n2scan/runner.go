// Package n2scan implements the n2scan command: background selection over
// CSV exports, locally, per file on a worker pool, or against a server.
package n2scan

import (
	"context"
	"io"
	"time"

	"github.com/okian/n2bg/pkg/logger"
)

// Run executes one n2scan invocation. It returns an error wrapping
// ErrNoBackground when the batch has no background scan.
func Run(ctx context.Context, cfg *Config, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	stats := &Stats{
		StartTime: time.Now(),
		Files:     len(cfg.Files),
	}

	logger.Get().Info(ctx, "starting n2scan",
		logger.Int("files", len(cfg.Files)),
		logger.Float64("max_scan_rate", cfg.MaxScanRate),
		logger.Int("expected_length", cfg.ExpectedLength),
		logger.Float64("reference_scan_rate", cfg.ReferenceScanRate),
		logger.String("format", cfg.Format),
		logger.String("url", cfg.URL),
		logger.Bool("each", cfg.Each),
		logger.Bool("inventory", cfg.Inventory))

	var err error
	switch {
	case cfg.URL != "":
		err = runRemote(ctx, cfg, stdout, stats)
	case cfg.Each:
		err = runEach(ctx, cfg, stats)
	default:
		err = runLocal(ctx, cfg, stdout, stats)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return err
}

// displayFinalStats logs the run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var rowsPerSecond float64
	if stats.Duration > 0 {
		rowsPerSecond = float64(stats.Rows) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("files", stats.Files),
		logger.Int("rows", stats.Rows),
		logger.Int("selected", stats.Selected),
		logger.Int("fallbacks", stats.Fallbacks),
		logger.Int("empty", stats.Empty),
		logger.Int("failed", stats.Failed),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("rowsPerSecond", rowsPerSecond))
}
