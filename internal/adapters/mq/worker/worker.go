// Package worker runs selection jobs from a queue on a fixed pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/okian/n2bg/internal/adapters/mq/queue"
	"github.com/okian/n2bg/pkg/logger"
)

// Handler processes one job.
type Handler interface {
	Handle(ctx context.Context, j queue.Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, j queue.Job) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, j queue.Job) error { return f(ctx, j) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drains jobs until the queue closes or ctx is cancelled.
type Worker struct {
	name    string
	queue   Queue
	handler Handler
	logger  logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(q Queue, h Handler, opts ...Option) *Worker {
	w := &Worker{
		name:    "worker",
		queue:   q,
		handler: h,
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get()
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes jobs and returns the errors its handler reported.
func (w *Worker) Run(ctx context.Context) []error {
	var errs []error
	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return append(errs, ctx.Err())
		case j, ok := <-jobs:
			if !ok {
				return errs
			}
			if err := w.process(ctx, j); err != nil {
				errs = append(errs, err)
			}
		}
	}
}

func (w *Worker) process(ctx context.Context, j queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %q: panic: %v", j.Name, r)
		}
		if err != nil {
			w.logger.Error(ctx, "job failed", logger.String("job", j.Name), logger.Error(err))
		}
	}()

	w.logger.Debug(ctx, "processing job", logger.String("job", j.Name), logger.Int("rows", len(j.Batch)))
	if err := w.handler.Handle(ctx, j); err != nil {
		return fmt.Errorf("job %q: %w", j.Name, err)
	}
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup

	mu   sync.Mutex
	errs []error
}

// NewPool creates a pool of workerCount workers. A count below one means
// one worker per CPU.
func NewPool(workerCount int, q Queue, h Handler, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{workers: make([]*Worker, workerCount)}
	for i := range p.workers {
		wopts := append([]Option{}, opts...)
		wopts = append(wopts, WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewWorker(q, h, wopts...)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			errs := w.Run(ctx)
			if len(errs) == 0 {
				return
			}
			p.mu.Lock()
			p.errs = append(p.errs, errs...)
			p.mu.Unlock()
		}(w)
	}
}

// Wait blocks until every worker has stopped and joins their errors.
// The queue must be closed for workers to stop on their own.
func (p *Pool) Wait() error {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.errs...)
}
