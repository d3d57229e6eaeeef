package background_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDetectorRateGating(t *testing.T) {
	Convey("Given batches whose minimum scan rate is outside (0, 0.011]", t, func() {
		ctx := context.Background()
		d := background.NewDetector()

		for _, rate := range []float64{0, -0.01, 0.0111, 0.05, math.Inf(1)} {
			batch := sweep(2000, rate, 0, "run1")
			v := d.Check(ctx, batch)

			So(v.OK, ShouldBeFalse)
			So(d.ContainsBackground(ctx, batch), ShouldBeFalse)
			So(errors.Is(v.Reason, background.ErrNoBackground), ShouldBeTrue)
			So(errors.Is(v.Reason, background.ErrScanRateOutOfRange), ShouldBeTrue)
		}
	})

	Convey("Given a batch where every scan rate is NaN", t, func() {
		batch := sweep(2000, math.NaN(), 0, "run1")

		Convey("Then detection fails closed", func() {
			So(background.ContainsBackground(context.Background(), batch), ShouldBeFalse)
		})
	})

	Convey("Given a batch exactly at the ceiling", t, func() {
		batch := sweep(2000, 0.011, 0, "run1")

		Convey("Then the rate check passes", func() {
			So(background.ContainsBackground(context.Background(), batch), ShouldBeTrue)
		})
	})
}

func TestDetectorShapeAndLength(t *testing.T) {
	Convey("Given the default detector", t, func() {
		ctx := context.Background()
		d := background.NewDetector()

		Convey("When the batch is empty", func() {
			v := d.Check(ctx, nil)

			Convey("Then it is rejected as an input shape problem", func() {
				So(v.OK, ShouldBeFalse)
				So(errors.Is(v.Reason, background.ErrInputShape), ShouldBeTrue)
				So(errors.Is(v.Reason, background.ErrEmptyBatch), ShouldBeTrue)
			})
		})

		Convey("When the candidate group has fewer than 2000 rows", func() {
			batch := concat(
				sweep(1000, 0.01, 0, "a"),
				sweep(999, 0.01, 1, "a"),
				sweep(3000, 0.1, 0, "fast"),
			)
			v := d.Check(ctx, batch)

			Convey("Then it is rejected whatever the segment layout", func() {
				So(v.OK, ShouldBeFalse)
				So(v.CandidateRows, ShouldEqual, 1999)
				So(errors.Is(v.Reason, background.ErrTooFewPoints), ShouldBeTrue)
			})
		})

		Convey("When no segment has exactly 2000 rows", func() {
			batch := concat(sweep(1500, 0.01, 0, "a"), sweep(1500, 0.01, 1, "a"))
			v := d.Check(ctx, batch)

			Convey("Then it is rejected", func() {
				So(v.OK, ShouldBeFalse)
				So(v.CandidateRows, ShouldEqual, 3000)
				So(errors.Is(v.Reason, background.ErrNoExactSegment), ShouldBeTrue)
			})
		})

		Convey("When one segment has exactly 2000 rows", func() {
			batch := concat(sweep(300, 0.01, 0, "a"), sweep(2000, 0.01, 1, "a"), sweep(50, 0.05, 0, "b"))
			v := d.Check(ctx, batch)

			Convey("Then it is accepted", func() {
				So(v.OK, ShouldBeTrue)
				So(v.Reason, ShouldBeNil)
				So(v.MinScanRate, ShouldEqual, 0.01)
				So(v.CandidateRows, ShouldEqual, 2300)
			})
		})

		Convey("When every row is duplicated", func() {
			once := sweep(2000, 0.01, 0, "a")
			twice := concat(once, once)

			Convey("Then duplicates are counted once", func() {
				So(d.ContainsBackground(ctx, twice), ShouldBeTrue)
				So(d.Check(ctx, twice).CandidateRows, ShouldEqual, 2000)
			})
		})
	})

	Convey("Given a detector with a custom length and ceiling", t, func() {
		d := background.NewDetector(background.WithExpectedLength(500), background.WithMaxScanRate(0.05))

		Convey("Then the custom limits apply", func() {
			So(d.ContainsBackground(context.Background(), sweep(500, 0.05, 0, "a")), ShouldBeTrue)
			So(d.ContainsBackground(context.Background(), sweep(2000, 0.05, 0, "a")), ShouldBeFalse)
		})
	})
}

func TestInventory(t *testing.T) {
	Convey("Given a batch with two rates, files and segments", t, func() {
		batch := concat(
			sweep(10, 0.1, 1, "fast"),
			sweep(2000, 0.01, 0, "slow"),
			sweep(5, 0.01, 1, "slow"),
		)
		batch = append(batch, batch[20])

		Convey("When listing the inventory", func() {
			groups := background.NewDetector().Inventory(context.Background(), batch)

			Convey("Then groups follow encounter order with counts", func() {
				So(groups, ShouldHaveLength, 3)
				So(groups[0], ShouldResemble, background.Group{ScanRate: 0.1, Segment: 1, Source: "fast", Rows: 10, Distinct: 10})
				So(groups[1], ShouldResemble, background.Group{ScanRate: 0.01, Segment: 0, Source: "slow", Rows: 2001, Distinct: 2000, Candidate: true, FullLength: true})
				So(groups[2], ShouldResemble, background.Group{ScanRate: 0.01, Segment: 1, Source: "slow", Rows: 5, Distinct: 5, Candidate: true})
			})
		})
	})

	Convey("Given an empty batch", t, func() {
		So(background.NewDetector().Inventory(context.Background(), model.Batch{}), ShouldBeEmpty)
	})
}
