package n2scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sync/atomic"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/adapters/mq/queue"
	"github.com/okian/n2bg/internal/adapters/mq/worker"
	service "github.com/okian/n2bg/internal/app"
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
)

// readFile reads one CSV, tagging rows without a source column with the
// file name.
func readFile(ctx context.Context, path string) (model.Batch, error) {
	return csvio.ReadFile(ctx, path, csvio.WithSource(filepath.Base(path)))
}

// readBatch concatenates files in order.
func readBatch(ctx context.Context, files []string) (model.Batch, error) {
	var batch model.Batch
	for _, path := range files {
		b, err := readFile(ctx, path)
		if err != nil {
			return nil, err
		}
		batch = append(batch, b...)
	}
	return batch, nil
}

func newService(ctx context.Context, cfg *Config) (*service.Service, error) {
	svc := service.New(
		service.WithLogger(logger.Get().Named("service")),
		service.WithMaxScanRate(cfg.MaxScanRate),
		service.WithExpectedLength(cfg.ExpectedLength),
		service.WithReferenceScanRate(cfg.ReferenceScanRate),
		service.WithMaxBatchRows(math.MaxInt),
	)
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, nil
}

// tally counts outcomes from concurrent selections.
type tally struct {
	selected, fallbacks, empty, failed atomic.Int64
}

func (t *tally) add(res background.Result) {
	switch res.Outcome {
	case background.OutcomeSelected:
		t.selected.Add(1)
	case background.OutcomeFallback:
		t.fallbacks.Add(1)
	default:
		t.empty.Add(1)
	}
}

func (t *tally) fill(stats *Stats) {
	stats.Selected = int(t.selected.Load())
	stats.Fallbacks = int(t.fallbacks.Load())
	stats.Empty = int(t.empty.Load())
	stats.Failed = int(t.failed.Load())
}

func logResult(ctx context.Context, name, runID string, res background.Result) {
	fields := []logger.Field{
		logger.String("input", name),
		logger.String("run_id", runID),
		logger.String("outcome", res.Outcome.String()),
		logger.String("branch", res.Branch.String()),
		logger.Int("rows", res.Scan.Len()),
	}
	if res.Reason != nil {
		fields = append(fields, logger.String("reason", res.Reason.Error()))
	}
	logger.Get().Info(ctx, "background selection", fields...)

	for _, w := range res.Warnings {
		logger.Get().Warn(ctx, "selection warning", logger.String("input", name), logger.Error(w))
	}
}

// runLocal reads all files as one batch and selects (or inventories) it.
func runLocal(ctx context.Context, cfg *Config, stdout io.Writer, stats *Stats) error {
	batch, err := readBatch(ctx, cfg.Files)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	stats.Rows = len(batch)

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	out, done, err := openOutput(ctx, cfg.Out, stdout)
	if err != nil {
		return err
	}
	defer done()

	if cfg.Inventory {
		groups, err := svc.Inventory(ctx, batch)
		if err != nil {
			return err
		}
		return writeInventory(out, cfg.Format, types.NewGroups(groups))
	}

	runID, res, err := svc.SelectBackground(ctx, batch)
	if err != nil {
		return err
	}
	var t tally
	t.add(res)
	t.fill(stats)
	logResult(ctx, "batch", runID, res)

	if err := writeResult(out, cfg.Format, runID, res); err != nil {
		return err
	}
	if res.Empty() && res.Reason != nil {
		return fmt.Errorf("%w: %w", ErrNoBackground, res.Reason)
	}
	if res.Empty() {
		return ErrNoBackground
	}
	return nil
}

// runEach selects every file on its own, fanning the files out to a worker
// pool. Files without a background are counted, not failed.
func runEach(ctx context.Context, cfg *Config, stats *Stats) error {
	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Stop()

	var t tally
	handler := worker.HandlerFunc(func(ctx context.Context, j queue.Job) error {
		runID, res, err := svc.SelectBackground(ctx, j.Batch)
		if err != nil {
			t.failed.Add(1)
			return err
		}
		t.add(res)
		logResult(ctx, j.Name, runID, res)
		if res.Empty() {
			return nil
		}

		path := outputPath(cfg.OutDir, j.Name, cfg.Format)
		out, done, err := openOutput(ctx, path, nil)
		if err != nil {
			t.failed.Add(1)
			return err
		}
		defer done()
		if err := writeResult(out, cfg.Format, runID, res); err != nil {
			t.failed.Add(1)
			return err
		}
		logger.Get().Debug(ctx, "background written", logger.String("input", j.Name), logger.String("output", path))
		return nil
	})

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(cfg.Files)))
	pool := worker.NewPool(cfg.Workers, q, handler, worker.WithLogger(logger.Get().Named("worker")))
	pool.Start(ctx)
	logger.Get().Info(ctx, "worker pool started", logger.Int("workers", pool.Size()), logger.Int("files", len(cfg.Files)))

	var errs []error
	for i, path := range cfg.Files {
		batch, err := readFile(ctx, path)
		if err != nil {
			t.failed.Add(1)
			errs = append(errs, err)
			continue
		}
		stats.Rows += len(batch)
		if !q.Enqueue(ctx, queue.Job{Seq: i, Name: path, Batch: batch}) {
			t.failed.Add(1)
			errs = append(errs, fmt.Errorf("%s: %w", path, ErrQueueFull))
		}
	}
	if err := q.Close(); err != nil {
		errs = append(errs, err)
	}

	if err := pool.Wait(); err != nil {
		errs = append(errs, err)
	}
	t.fill(stats)
	return errors.Join(errs...)
}
