// Package metrics provides Prometheus metrics for the N2 background selection service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the n2bg service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	rowBuckets       []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Core domain metrics
	batches           *prometheus.CounterVec
	batchRows         prometheus.Histogram
	rejections        *prometheus.CounterVec
	selections        *prometheus.CounterVec
	normalizations    prometheus.Counter
	duplicatesRemoved prometheus.Counter
	warnings          *prometheus.CounterVec
	selectionLatency  prometheus.Histogram

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "n2bg",
		subsystem:        "background",
		histogramBuckets: prometheus.DefBuckets,
		rowBuckets:       prometheus.ExponentialBuckets(250, 2, 12),
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.batches = auto.NewCounterVec(
		m.counter("batches_total", "Total number of sample batches handled by operation"),
		[]string{"operation"},
	)
	m.batchRows = auto.NewHistogram(
		m.histogram("batch_rows", "Rows per submitted batch", m.rowBuckets),
	)
	m.rejections = auto.NewCounterVec(
		m.counter("rejections_total", "Batches rejected by the detector by reason"),
		[]string{"reason"},
	)
	m.selections = auto.NewCounterVec(
		m.counter("selections_total", "Background selections by outcome and branch"),
		[]string{"outcome", "branch"},
	)
	m.normalizations = auto.NewCounter(
		m.counter("normalizations_total", "Selections rescaled to the reference scan rate"),
	)
	m.duplicatesRemoved = auto.NewCounter(
		m.counter("duplicates_removed_total", "Duplicate sample rows dropped before selection"),
	)
	m.warnings = auto.NewCounterVec(
		m.counter("warnings_total", "Selection warnings by kind"),
		[]string{"kind"},
	)
	m.selectionLatency = auto.NewHistogram(
		m.histogram("selection_latency_milliseconds", "Background selection latency in milliseconds", m.histogramBuckets),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// RecordBatch counts one batch of rows handled by operation (detect, select, inventory).
func (m *Manager) RecordBatch(operation string, rows int) {
	m.batches.WithLabelValues(operation).Inc()
	m.batchRows.Observe(float64(rows))
}

// RecordRejection counts a detector rejection.
func (m *Manager) RecordRejection(reason string) {
	m.rejections.WithLabelValues(reason).Inc()
}

// RecordSelection counts a finished selection.
func (m *Manager) RecordSelection(outcome, branch string, latencyMs float64) {
	m.selections.WithLabelValues(outcome, branch).Inc()
	m.selectionLatency.Observe(latencyMs)
}

// RecordNormalization counts a rescaled selection.
func (m *Manager) RecordNormalization() {
	m.normalizations.Inc()
}

// RecordDuplicates adds n dropped duplicate rows.
func (m *Manager) RecordDuplicates(n int) {
	if n > 0 {
		m.duplicatesRemoved.Add(float64(n))
	}
}

// RecordWarning counts one selection warning.
func (m *Manager) RecordWarning(kind string) {
	m.warnings.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystem sets the runtime gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int) {
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// RecordGCPause records GC pause time in milliseconds.
func (m *Manager) RecordGCPause(pauseMs float64) {
	m.systemGCPauseTime.Observe(pauseMs)
}

// Default returns the process-wide manager registered on GetRegistry.
func Default() *Manager {
	return globalManager
}

// RecordBatch counts a batch on the global manager.
func RecordBatch(operation string, rows int) { globalManager.RecordBatch(operation, rows) }

// RecordRejection counts a detector rejection on the global manager.
func RecordRejection(reason string) { globalManager.RecordRejection(reason) }

// RecordSelection counts a selection on the global manager.
func RecordSelection(outcome, branch string, latencyMs float64) {
	globalManager.RecordSelection(outcome, branch, latencyMs)
}

// RecordNormalization counts a rescaled selection on the global manager.
func RecordNormalization() { globalManager.RecordNormalization() }

// RecordDuplicates adds dropped duplicates on the global manager.
func RecordDuplicates(n int) { globalManager.RecordDuplicates(n) }

// RecordWarning counts a warning on the global manager.
func RecordWarning(kind string) { globalManager.RecordWarning(kind) }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByEndpoint records an endpoint error on the global manager.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.RecordGCPause(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
