package normalize_test

import (
	"math"
	"testing"

	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizer(t *testing.T) {
	Convey("Given a default normalizer", t, func() {
		n := normalize.New()

		Convey("Then the reference is 10 mV/s", func() {
			So(n.Reference(), ShouldEqual, 0.01)
		})

		Convey("When the rate equals the reference", func() {
			factor, ok := n.Factor(0.01)

			Convey("Then no normalization applies", func() {
				So(ok, ShouldBeFalse)
				So(factor, ShouldEqual, 1)
			})
		})

		Convey("When the rate is below the reference", func() {
			_, ok := n.Factor(0.005)
			So(ok, ShouldBeFalse)
		})

		Convey("When the rate is NaN", func() {
			_, ok := n.Factor(math.NaN())
			So(ok, ShouldBeFalse)
		})

		Convey("When the rate is 20 mV/s", func() {
			factor, ok := n.Factor(0.02)

			Convey("Then the factor is 2", func() {
				So(ok, ShouldBeTrue)
				So(factor, ShouldEqual, 2)
			})

			Convey("And applying it halves every current density", func() {
				batch := model.Batch{{CurrentDensity: -4e-4}, {CurrentDensity: 3e-4}}
				out := n.Apply(batch, factor)
				So(out, ShouldResemble, []float64{-4e-4 / 2.0, 3e-4 / 2.0})
				So(batch[0].CurrentDensity, ShouldEqual, -4e-4)
			})
		})
	})

	Convey("Given a normalizer with a custom reference", t, func() {
		n := normalize.New(normalize.WithReferenceScanRate(0.05))

		Convey("Then factors use that reference", func() {
			factor, ok := n.Factor(0.1)
			So(ok, ShouldBeTrue)
			So(factor, ShouldEqual, 0.1/0.05)
		})
	})

	Convey("Given invalid reference options", t, func() {
		Convey("Then they are ignored", func() {
			So(normalize.New(normalize.WithReferenceScanRate(0)).Reference(), ShouldEqual, 0.01)
			So(normalize.New(normalize.WithReferenceScanRate(-1)).Reference(), ShouldEqual, 0.01)
			So(normalize.New(normalize.WithReferenceScanRate(math.Inf(1))).Reference(), ShouldEqual, 0.01)
		})
	})
}
