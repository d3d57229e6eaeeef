package config_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/n2bg/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxScanRate, convey.ShouldEqual, 0.011)
			convey.So(cfg.ExpectedLength, convey.ShouldEqual, 2000)
			convey.So(cfg.ReferenceScanRate, convey.ShouldEqual, 0.01)
			convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, int64(32<<20))
			convey.So(cfg.MaxBatchRows, convey.ShouldEqual, 200_000)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field each", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":               func(c *config.Config) { c.Addr = "" },
			"max_scan_rate must be positive":       func(c *config.Config) { c.MaxScanRate = 0 },
			"reference_scan_rate must be positive": func(c *config.Config) { c.ReferenceScanRate = math.Inf(1) },
			"expected_length must be positive":     func(c *config.Config) { c.ExpectedLength = -1 },
			"max_body_bytes must be positive":      func(c *config.Config) { c.MaxBodyBytes = 0 },
			"is below expected_length":             func(c *config.Config) { c.MaxBatchRows = 10 },
		}

		for want, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, want)
		}
	})
}
