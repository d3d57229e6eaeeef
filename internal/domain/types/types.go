// Package types contains the wire shapes shared by the HTTP API and the CLI.
package types

import (
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
)

// Sample is the JSON form of one measured point.
type Sample struct {
	Potential                float64  `json:"potential"`
	CurrentDensity           float64  `json:"current_density"`
	ScanRate                 float64  `json:"scan_rate"`
	Segment                  int      `json:"segment"`
	Source                   string   `json:"source"`
	NormalizedCurrentDensity *float64 `json:"normalized_current_density,omitempty"`
}

// ToModel converts wire samples into a batch.
func ToModel(in []Sample) model.Batch {
	out := make(model.Batch, len(in))
	for i, s := range in {
		out[i] = model.Sample{
			Potential:      s.Potential,
			CurrentDensity: s.CurrentDensity,
			ScanRate:       s.ScanRate,
			Segment:        s.Segment,
			Source:         s.Source,
		}
	}
	return out
}

// DetectResponse answers POST /detect.
type DetectResponse struct {
	ContainsBackground bool    `json:"contains_background"`
	MinScanRate        float64 `json:"min_scan_rate"`
	CandidateRows      int     `json:"candidate_rows"`
	Reason             string  `json:"reason,omitempty"`
}

// NewDetectResponse builds the response for a verdict.
func NewDetectResponse(v background.Verdict) DetectResponse {
	r := DetectResponse{
		ContainsBackground: v.OK,
		MinScanRate:        v.MinScanRate,
		CandidateRows:      v.CandidateRows,
	}
	if v.Reason != nil {
		r.Reason = v.Reason.Error()
	}
	return r
}

// ScanResponse answers POST /background. Samples is empty when Outcome is
// "empty".
type ScanResponse struct {
	RunID             string   `json:"run_id,omitempty"`
	Outcome           string   `json:"outcome"`
	Branch            string   `json:"branch"`
	Reason            string   `json:"reason,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	ScanRate          float64  `json:"scan_rate,omitempty"`
	Factor            float64  `json:"factor,omitempty"`
	Normalized        bool     `json:"normalized"`
	Segments          []int    `json:"segments,omitempty"`
	Sources           []string `json:"sources,omitempty"`
	DuplicatesRemoved int      `json:"duplicates_removed"`
	CandidateRows     int      `json:"candidate_rows"`
	Count             int      `json:"count"`
	Samples           []Sample `json:"samples"`
}

// NewScanResponse builds the response for a selection result.
func NewScanResponse(runID string, res background.Result) ScanResponse {
	r := ScanResponse{
		RunID:             runID,
		Outcome:           res.Outcome.String(),
		Branch:            res.Branch.String(),
		DuplicatesRemoved: res.DuplicatesRemoved,
		CandidateRows:     res.CandidateRows,
		Samples:           []Sample{},
	}
	if res.Reason != nil {
		r.Reason = res.Reason.Error()
	}
	for _, w := range res.Warnings {
		r.Warnings = append(r.Warnings, w.Error())
	}
	if res.Empty() {
		return r
	}

	scan := res.Scan
	r.ScanRate = scan.ScanRate
	r.Factor = scan.Factor
	r.Normalized = scan.Normalized()
	r.Segments = scan.Segments
	r.Sources = scan.Sources
	r.Count = scan.Len()
	r.Samples = make([]Sample, scan.Len())
	for i, s := range scan.Samples {
		r.Samples[i] = Sample{
			Potential:      s.Potential,
			CurrentDensity: s.CurrentDensity,
			ScanRate:       s.ScanRate,
			Segment:        s.Segment,
			Source:         s.Source,
		}
		if scan.Normalized() {
			v := scan.NormalizedCurrentDensity[i]
			r.Samples[i].NormalizedCurrentDensity = &v
		}
	}
	return r
}

// Group is the JSON form of one inventory row.
type Group struct {
	ScanRate   float64 `json:"scan_rate"`
	Segment    int     `json:"segment"`
	Source     string  `json:"source"`
	Rows       int     `json:"rows"`
	Distinct   int     `json:"distinct"`
	Candidate  bool    `json:"candidate"`
	FullLength bool    `json:"full_length"`
}

// NewGroups converts an inventory.
func NewGroups(in []background.Group) []Group {
	out := make([]Group, len(in))
	for i, g := range in {
		out[i] = Group(g)
	}
	return out
}
