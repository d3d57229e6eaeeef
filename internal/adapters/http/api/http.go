// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/n2bg/internal/adapters/csvio"
	"github.com/okian/n2bg/internal/domain/background"
	"github.com/okian/n2bg/internal/domain/model"
	"github.com/okian/n2bg/internal/domain/types"
	"github.com/okian/n2bg/pkg/logger"
	"github.com/okian/n2bg/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults for request limits.
const (
	defaultMaxBodyBytes = 32 << 20
	defaultMaxBatchRows = 200_000
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Detect(ctx context.Context, batch model.Batch, overrides ...background.Option) (background.Verdict, error)
	SelectBackground(ctx context.Context, batch model.Batch, overrides ...background.Option) (string, background.Result, error)
	Inventory(ctx context.Context, batch model.Batch, overrides ...background.Option) ([]background.Group, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	detectHandler     *DetectHandler
	backgroundHandler *BackgroundHandler
	inventoryHandler  *InventoryHandler
	metrics           *metrics.Manager
}

type serverConfig struct {
	decoder  decoder
	gatherer prometheus.Gatherer
	metrics  *metrics.Manager
	logger   logger.Logger
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.decoder.maxBodyBytes = n
		}
	}
}

// WithMaxBatchRows caps the samples accepted in one request.
func WithMaxBatchRows(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.decoder.maxBatchRows = n
		}
	}
}

// WithMetrics records request metrics to m and serves g on /healthz.
func WithMetrics(m *metrics.Manager, g prometheus.Gatherer) ServerOption {
	return func(c *serverConfig) {
		if m != nil && g != nil {
			c.metrics = m
			c.gatherer = g
		}
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := serverConfig{
		decoder:  decoder{maxBodyBytes: defaultMaxBodyBytes, maxBatchRows: defaultMaxBatchRows},
		gatherer: metrics.GetRegistry(),
		metrics:  metrics.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}

	return &Server{
		healthHandler:     NewHealthHandler(cfg.gatherer),
		statsHandler:      NewStatsHandler(statsProvider),
		detectHandler:     &DetectHandler{deps: deps, decoder: cfg.decoder, logger: cfg.logger},
		backgroundHandler: &BackgroundHandler{deps: deps, decoder: cfg.decoder, logger: cfg.logger},
		inventoryHandler:  &InventoryHandler{deps: deps, decoder: cfg.decoder, logger: cfg.logger},
		metrics:           cfg.metrics,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	route := func(path, endpoint string, h http.HandlerFunc) {
		mux.HandleFunc(path, RequestID(MetricsMiddleware(s.metrics, h, endpoint)))
	}
	route("/healthz", "healthz", s.healthHandler.HandleHealth)
	route("/stats", "stats", s.statsHandler.HandleStats)
	route("/detect", "detect", s.detectHandler.HandleDetect)
	route("/background", "background", s.backgroundHandler.HandleBackground)
	route("/inventory", "inventory", s.inventoryHandler.HandleInventory)
}

// batchRequest mirrors the OpenAPI schema for JSON batch bodies.
type batchRequest struct {
	Samples           []types.Sample `json:"samples"`
	MaxScanRate       *float64       `json:"max_scan_rate,omitempty"`
	ExpectedLength    *int           `json:"expected_length,omitempty"`
	ReferenceScanRate *float64       `json:"reference_scan_rate,omitempty"`
}

func (b batchRequest) options() ([]background.Option, error) {
	var opts []background.Option
	if b.MaxScanRate != nil {
		if !positive(*b.MaxScanRate) {
			return nil, errors.New("max_scan_rate must be positive")
		}
		opts = append(opts, background.WithMaxScanRate(*b.MaxScanRate))
	}
	if b.ExpectedLength != nil {
		if *b.ExpectedLength <= 0 {
			return nil, errors.New("expected_length must be positive")
		}
		opts = append(opts, background.WithExpectedLength(*b.ExpectedLength))
	}
	if b.ReferenceScanRate != nil {
		if !positive(*b.ReferenceScanRate) {
			return nil, errors.New("reference_scan_rate must be positive")
		}
		opts = append(opts, background.WithReferenceScanRate(*b.ReferenceScanRate))
	}
	return opts, nil
}

// decoder turns a request body into a batch and per-request overrides.
// JSON bodies carry samples and overrides; text/csv bodies carry samples and
// take overrides from the query string.
type decoder struct {
	maxBodyBytes int64
	maxBatchRows int
}

func (d decoder) decode(op string, w http.ResponseWriter, r *http.Request) (model.Batch, []background.Option, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil, WrapKind(op, ErrBadRequest, errors.New("empty body"))
	}
	body := http.MaxBytesReader(w, r.Body, d.maxBodyBytes)

	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return nil, nil, WrapKind(op, ErrUnsupportedMedia, err)
		}
		mediaType = mt
	}

	var (
		batch model.Batch
		opts  []background.Option
		err   error
	)
	switch mediaType {
	case "application/json":
		var req batchRequest
		if err = json.NewDecoder(body).Decode(&req); err != nil {
			return nil, nil, d.readError(op, err)
		}
		if len(req.Samples) > d.maxBatchRows {
			return nil, nil, d.tooMany(op, len(req.Samples))
		}
		if opts, err = req.options(); err != nil {
			return nil, nil, WrapKind(op, ErrBadRequest, err)
		}
		batch = types.ToModel(req.Samples)

	case "text/csv":
		q := r.URL.Query()
		var copts []csvio.Option
		if src := q.Get("source"); src != "" {
			copts = append(copts, csvio.WithSource(src))
		}
		if batch, err = csvio.Read(r.Context(), body, copts...); err != nil {
			return nil, nil, d.readError(op, err)
		}
		if len(batch) > d.maxBatchRows {
			return nil, nil, d.tooMany(op, len(batch))
		}
		if opts, err = queryOptions(q.Get); err != nil {
			return nil, nil, WrapKind(op, ErrBadRequest, err)
		}

	default:
		return nil, nil, WrapKind(op, ErrUnsupportedMedia, fmt.Errorf("%q", mediaType))
	}

	return batch, opts, nil
}

func (d decoder) readError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return WrapKind(op, ErrPayloadTooLarge, fmt.Errorf("body exceeds %d bytes", tooLarge.Limit))
	}
	return WrapKind(op, ErrBadRequest, err)
}

func (d decoder) tooMany(op string, n int) error {
	return WrapKind(op, ErrPayloadTooLarge, fmt.Errorf("%d samples, limit %d", n, d.maxBatchRows))
}

func queryOptions(get func(string) string) ([]background.Option, error) {
	var opts []background.Option
	if v := get("max_scan_rate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !positive(f) {
			return nil, fmt.Errorf("invalid max_scan_rate %q", v)
		}
		opts = append(opts, background.WithMaxScanRate(f))
	}
	if v := get("expected_length"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid expected_length %q", v)
		}
		opts = append(opts, background.WithExpectedLength(n))
	}
	if v := get("reference_scan_rate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !positive(f) {
			return nil, fmt.Errorf("invalid reference_scan_rate %q", v)
		}
		opts = append(opts, background.WithReferenceScanRate(f))
	}
	return opts, nil
}

func positive(v float64) bool { return v > 0 && !math.IsInf(v, 0) }

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail maps err to a status code and writes it. Errors from dependencies are
// logged and reported as unavailable.
func fail(ctx context.Context, log logger.Logger, w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err)
	case errors.Is(err, ErrUnsupportedMedia):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", err)
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
	}
}

// wantsCSV reports whether the client asked for a CSV response.
func wantsCSV(r *http.Request) bool {
	if r.URL.Query().Get("format") == "csv" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}
