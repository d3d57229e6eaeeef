package background

import (
	"sort"

	"github.com/okian/n2bg/internal/domain/model"
)

// segmentRows holds the positions of one segment's samples, in batch order.
type segmentRows struct {
	segment int
	rows    []int
}

// bySegment groups the samples at idx by segment index. Groups are ordered
// by increasing segment index; rows keep their order from idx.
func bySegment(batch model.Batch, idx []int) []segmentRows {
	pos := make(map[int]int)
	var out []segmentRows
	for _, i := range idx {
		seg := batch[i].Segment
		p, ok := pos[seg]
		if !ok {
			p = len(out)
			pos[seg] = p
			out = append(out, segmentRows{segment: seg})
		}
		out[p].rows = append(out[p].rows, i)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].segment < out[b].segment })
	return out
}

func hasSegmentOfLength(segs []segmentRows, n int) bool {
	for _, s := range segs {
		if len(s.rows) == n {
			return true
		}
	}
	return false
}

// fromSource keeps the positions in idx whose sample came from source.
func fromSource(batch model.Batch, idx []int, source string) []int {
	var out []int
	for _, i := range idx {
		if batch[i].Source == source {
			out = append(out, i)
		}
	}
	return out
}

func segmentsOf(batch model.Batch) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, s := range batch {
		if _, ok := seen[s.Segment]; ok {
			continue
		}
		seen[s.Segment] = struct{}{}
		out = append(out, s.Segment)
	}
	return out
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
