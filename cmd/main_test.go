package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/config"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, name := range []string{
		"N2BG_CONFIG", "N2BG_ADDR", "N2BG_LOG_LEVEL", "N2BG_MAX_SCAN_RATE", "N2BG_EXPECTED_LENGTH",
		"N2BG_REFERENCE_SCAN_RATE", "N2BG_MAX_BODY_BYTES", "N2BG_MAX_BATCH_ROWS",
	} {
		v, ok := kv[name]
		t.Setenv(name, v)
		if !ok {
			_ = os.Unsetenv(name)
		}
	}
}

func sweep(n int, rate float64) model.Batch {
	out := make(model.Batch, n)
	for i := range out {
		out[i] = model.Sample{
			Potential:      0.05 + float64(i)*0.005,
			CurrentDensity: -2e-4 + float64(i)*1e-6,
			ScanRate:       rate,
			Segment:        1,
			Source:         "n2.par",
		}
	}
	return out
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given a configuration from the environment", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		_ = logger.SetLevelString("error")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		setEnv(t, map[string]string{
			"N2BG_ADDR":            ":8080",
			"N2BG_MAX_SCAN_RATE":   "0.02",
			"N2BG_EXPECTED_LENGTH": "100",
			"N2BG_MAX_BATCH_ROWS":  "150",
		})
		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)

		svc := newService(logger.NewNop(), cfg)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		h := newHandler(ctx, cfg, svc)

		convey.Convey("When the service is built from it", func() {
			stats := svc.GetStats()

			convey.Convey("Then the configured settings are applied", func() {
				convey.So(stats["maxScanRate"], convey.ShouldEqual, 0.02)
				convey.So(stats["expectedLength"], convey.ShouldEqual, 100)
				convey.So(stats["maxBatchRows"], convey.ShouldEqual, 150)
			})
		})

		convey.Convey("When posting a 15 mV/s sweep of the configured length", func() {
			var body bytes.Buffer
			convey.So(csvio.WriteBatch(&body, sweep(100, 0.015)), convey.ShouldBeNil)
			req := httptest.NewRequest(http.MethodPost, "/background", &body)
			req.Header.Set("Content-Type", "text/csv")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			convey.Convey("Then it is selected and normalized", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				var resp types.ScanResponse
				convey.So(json.Unmarshal(w.Body.Bytes(), &resp), convey.ShouldBeNil)
				convey.So(resp.Outcome, convey.ShouldEqual, "selected")
				convey.So(resp.Normalized, convey.ShouldBeTrue)
				convey.So(resp.Factor, convey.ShouldAlmostEqual, 1.5, 1e-9)
			})
		})

		convey.Convey("When posting more rows than the configured limit", func() {
			var body bytes.Buffer
			convey.So(csvio.WriteBatch(&body, sweep(200, 0.01)), convey.ShouldBeNil)
			req := httptest.NewRequest(http.MethodPost, "/background", &body)
			req.Header.Set("Content-Type", "text/csv")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			convey.Convey("Then it is rejected as too large", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusRequestEntityTooLarge)
			})
		})

		convey.Convey("When fetching the docs and metrics", func() {
			for _, path := range []string{"/openapi.yaml", "/api-docs", "/healthz", "/stats"} {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMainConfigErrors(t *testing.T) {
	convey.Convey("Given an invalid scan rate in the environment", t, func() {
		setEnv(t, map[string]string{"N2BG_MAX_SCAN_RATE": "-1"})

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("When updating once", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx)
				close(done)
			}()

			convey.Convey("Then the updater returns", func() {
				select {
				case <-done:
				case <-time.After(time.Second):
					t.Fatal("updater did not stop")
				}
			})
		})
	})
}
