package types_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
	types "github.com/okian/n2bg/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func batch(n int, rate float64) model.Batch {
	b := make(model.Batch, n)
	for i := range b {
		b[i] = model.Sample{Potential: float64(i) / 1000, CurrentDensity: float64(i) * 1e-6, ScanRate: rate, Source: "run1"}
	}
	return b
}

func TestToModel(t *testing.T) {
	Convey("Given wire samples", t, func() {
		in := []types.Sample{{Potential: 0.4, CurrentDensity: -1e-4, ScanRate: 0.01, Segment: 2, Source: "f"}}

		Convey("Then they convert field by field", func() {
			So(types.ToModel(in), ShouldResemble, model.Batch{{Potential: 0.4, CurrentDensity: -1e-4, ScanRate: 0.01, Segment: 2, Source: "f"}})
		})
	})
}

func TestNewScanResponse(t *testing.T) {
	Convey("Given a normalized selection", t, func() {
		res := background.Select(context.Background(), batch(2000, 0.02), background.WithMaxScanRate(0.05))
		resp := types.NewScanResponse("run-1", res)

		Convey("Then the response carries samples and normalized values", func() {
			So(resp.RunID, ShouldEqual, "run-1")
			So(resp.Outcome, ShouldEqual, "selected")
			So(resp.Branch, ShouldEqual, "exact")
			So(resp.Normalized, ShouldBeTrue)
			So(resp.Count, ShouldEqual, 2000)
			So(resp.Factor, ShouldEqual, 2.0)
			So(*resp.Samples[10].NormalizedCurrentDensity, ShouldEqual, resp.Samples[10].CurrentDensity/2.0)
			So(resp.Warnings, ShouldResemble, []string{"scan rate above reference"})
		})

		Convey("And it encodes the normalized field", func() {
			raw, err := json.Marshal(resp.Samples[1])
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"normalized_current_density"`)
		})
	})

	Convey("Given an unnormalized selection", t, func() {
		resp := types.NewScanResponse("", background.Select(context.Background(), batch(2000, 0.01)))

		Convey("Then the normalized field is omitted", func() {
			So(resp.Normalized, ShouldBeFalse)
			raw, err := json.Marshal(resp.Samples[0])
			So(err, ShouldBeNil)
			So(string(raw), ShouldNotContainSubstring, "normalized_current_density")
		})
	})

	Convey("Given an empty selection", t, func() {
		resp := types.NewScanResponse("run-2", background.Select(context.Background(), batch(10, 0.01)))

		Convey("Then samples is an empty list with a reason", func() {
			So(resp.Outcome, ShouldEqual, "empty")
			So(resp.Samples, ShouldNotBeNil)
			So(resp.Samples, ShouldBeEmpty)
			So(resp.Reason, ShouldContainSubstring, "no background scan present")
		})
	})
}

func TestNewDetectResponse(t *testing.T) {
	Convey("Given a rejected verdict", t, func() {
		v := background.NewDetector().Check(context.Background(), batch(10, 0.5))
		resp := types.NewDetectResponse(v)

		Convey("Then the reason is exposed", func() {
			So(resp.ContainsBackground, ShouldBeFalse)
			So(resp.MinScanRate, ShouldEqual, 0.5)
			So(resp.Reason, ShouldContainSubstring, "minimum scan rate outside background window")
		})
	})

	Convey("Given an inventory", t, func() {
		groups := types.NewGroups(background.NewDetector().Inventory(context.Background(), batch(2000, 0.01)))

		Convey("Then it converts one to one", func() {
			So(groups, ShouldHaveLength, 1)
			So(groups[0].Rows, ShouldEqual, 2000)
			So(groups[0].FullLength, ShouldBeTrue)
			So(groups[0].Candidate, ShouldBeTrue)
		})
	})
}
