// Package dedupe removes exact-duplicate sample rows from a batch.
package dedupe

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/okian/n2bg/internal/domain/model"
)

// Deduper records seen row keys.
type Deduper interface {
	// SeenAndRecord checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets a key so the next SeenAndRecord reports it as new.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map. It never evicts: dropping a
// key would let a duplicate row back into the working set.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	hint int
	size atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.hint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// Size returns the current number of keys in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Key renders every field of s into a string that is equal for exact
// duplicates. Negative zero folds into zero and all NaNs compare equal.
func Key(s model.Sample) string {
	var b strings.Builder
	b.Grow(64 + len(s.Source))
	writeFloat(&b, s.Potential)
	writeFloat(&b, s.CurrentDensity)
	writeFloat(&b, s.ScanRate)
	b.WriteString(strconv.Itoa(s.Segment))
	b.WriteByte('|')
	b.WriteString(s.Source)
	return b.String()
}

func writeFloat(b *strings.Builder, v float64) {
	if v == 0 {
		v = 0
	}
	b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	b.WriteByte('|')
}

// Samples returns the first occurrence of every distinct sample, in input
// order, and the number of rows dropped. The input is not modified.
func Samples(ctx context.Context, batch model.Batch) (model.Batch, int) {
	d := NewInMemoryDeduper(WithCapacityHint(len(batch)))
	out := make(model.Batch, 0, len(batch))
	for _, s := range batch {
		if d.SeenAndRecord(ctx, Key(s)) {
			continue
		}
		out = append(out, s)
	}
	return out, len(batch) - len(out)
}
