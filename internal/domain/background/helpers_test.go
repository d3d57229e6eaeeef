package background_test

import (
	"context"
	"sync"

	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/pkg/logger"
)

// sweep builds n distinct samples of one segment at one scan rate.
func sweep(n int, rate float64, segment int, source string) model.Batch {
	b := make(model.Batch, n)
	for i := range b {
		b[i] = model.Sample{
			Potential:      0.05 + float64(i)*0.0005,
			CurrentDensity: 1e-5 * float64(i%97-48),
			ScanRate:       rate,
			Segment:        segment,
			Source:         source,
		}
	}
	return b
}

func concat(parts ...model.Batch) model.Batch {
	var out model.Batch
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type logEntry struct {
	level  string
	msg    string
	fields []logger.Field
}

// recorder captures diagnostics emitted through the injected logger.
type recorder struct {
	mu      sync.Mutex
	entries []logEntry
}

func (r *recorder) add(level, msg string, fields []logger.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (r *recorder) Info(_ context.Context, msg string, f ...logger.Field)  { r.add("info", msg, f) }
func (r *recorder) Error(_ context.Context, msg string, f ...logger.Field) { r.add("error", msg, f) }
func (r *recorder) Debug(_ context.Context, msg string, f ...logger.Field) { r.add("debug", msg, f) }
func (r *recorder) Warn(_ context.Context, msg string, f ...logger.Field)  { r.add("warn", msg, f) }
func (r *recorder) Fatal(_ context.Context, msg string, f ...logger.Field) { r.add("fatal", msg, f) }
func (r *recorder) Named(string) logger.Logger                             { return r }

func (r *recorder) messages(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}
