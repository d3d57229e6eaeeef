package background

import (
	"context"
	"math"

	"github.com/okian/n2bg/internal/domain/dedupe"
	"github.com/okian/n2bg/internal/domain/model"
)

// Group summarizes the samples sharing a scan rate, segment and source.
type Group struct {
	ScanRate float64
	Segment  int
	Source   string
	Rows     int // samples in the batch, duplicates included
	Distinct int // samples after dropping exact duplicates

	// Candidate marks groups at the batch minimum scan rate.
	Candidate bool
	// FullLength marks groups whose distinct count equals the expected length.
	FullLength bool
}

type groupKey struct {
	rate    uint64
	segment int
	source  string
}

func keyOf(s model.Sample) groupKey {
	return groupKey{rate: math.Float64bits(s.ScanRate), segment: s.Segment, source: s.Source}
}

// Inventory lists the (scan rate, segment, source) groups of batch in the
// order they are first encountered. It explains what the Detector sees.
func (d *Detector) Inventory(ctx context.Context, batch model.Batch) []Group {
	minRate, _ := batch.MinScanRate()
	working, _ := dedupe.Samples(ctx, batch)

	pos := make(map[groupKey]int)
	var out []Group
	for _, s := range batch {
		k := keyOf(s)
		p, ok := pos[k]
		if !ok {
			p = len(out)
			pos[k] = p
			out = append(out, Group{
				ScanRate:  s.ScanRate,
				Segment:   s.Segment,
				Source:    s.Source,
				Candidate: s.ScanRate == minRate,
			})
		}
		out[p].Rows++
	}
	for _, s := range working {
		out[pos[keyOf(s)]].Distinct++
	}
	for i := range out {
		out[i].FullLength = out[i].Distinct == d.settings.expectedLength
	}
	return out
}
