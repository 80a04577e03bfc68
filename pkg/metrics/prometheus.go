// Package metrics provides Prometheus metrics for the arcadeboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for dataset loads.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultShared  = "shared"
)

// Manager owns all Prometheus collectors of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Dataset loading
	datasetLoads        *prometheus.CounterVec
	datasetLoadErrors   *prometheus.CounterVec
	datasetLoadDuration prometheus.Histogram
	datasetRecords      prometheus.Gauge

	// Ranking engine
	deriveDuration    prometheus.Histogram
	participantsTotal prometheus.Gauge
	fieldCoercions    *prometheus.CounterVec
	keyCollisions     prometheus.Counter

	// Snapshot store
	snapshotGeneration prometheus.Gauge
	snapshotLastUnix   prometheus.Gauge
	snapshotRejected   prometheus.Counter

	// Queries
	leaderboardQueries *prometheus.CounterVec
	reloadsRateLimited prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /healthz

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arcadeboard",
		subsystem:        "leaderboard",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // collector declarations
	auto := promauto.With(m.registry)

	m.datasetLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_loads_total",
		Help:        "Dataset load cycles by result",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.datasetLoadErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_load_errors_total",
		Help:        "Dataset load failures by kind (fetch, parse)",
		ConstLabels: m.constLabels,
	}, []string{"kind"})

	m.datasetLoadDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_load_duration_milliseconds",
		Help:        "Time to fetch and parse the dataset",
		Buckets:     []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: m.constLabels,
	})

	m.datasetRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_records",
		Help:        "Raw records produced by the last successful load",
		ConstLabels: m.constLabels,
	})

	m.deriveDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "derive_duration_milliseconds",
		Help:        "Time to normalize, sort and index participants",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.participantsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "participants_total",
		Help:        "Participants in the current ranked list",
		ConstLabels: m.constLabels,
	})

	m.fieldCoercions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "field_coercions_total",
		Help:        "Count fields coerced to zero because they were missing or non-numeric",
		ConstLabels: m.constLabels,
	}, []string{"field"})

	m.keyCollisions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "identity_key_collisions_total",
		Help:        "Identity keys disambiguated because another participant already used them",
		ConstLabels: m.constLabels,
	})

	m.snapshotGeneration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_generation",
		Help:        "Generation of the published snapshot",
		ConstLabels: m.constLabels,
	})

	m.snapshotLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_last_unix",
		Help:        "Unix time of the last published snapshot",
		ConstLabels: m.constLabels,
	})

	m.snapshotRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "snapshot_rejected_total",
		Help:        "Snapshots discarded because a newer generation was already published",
		ConstLabels: m.constLabels,
	})

	m.leaderboardQueries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "leaderboard_queries_total",
		Help:        "Leaderboard reads, split by whether a search query was applied",
		ConstLabels: m.constLabels,
	}, []string{"filtered"})

	m.reloadsRateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "reloads_rate_limited_total",
		Help:        "Manual reload requests rejected by the rate limiter",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status code",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "HTTP errors by endpoint, method and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})
}

// RecordDatasetLoad counts a load cycle and observes its duration.
func (m *Manager) RecordDatasetLoad(result string, durationMs float64) {
	m.datasetLoads.WithLabelValues(result).Inc()
	if result != ResultShared {
		m.datasetLoadDuration.Observe(durationMs)
	}
}

// RecordDatasetLoadError counts a failed load by kind.
func (m *Manager) RecordDatasetLoadError(kind string) {
	m.datasetLoadErrors.WithLabelValues(kind).Inc()
}

// UpdateDatasetRecords sets the raw record count of the last load.
func (m *Manager) UpdateDatasetRecords(count int) {
	m.datasetRecords.Set(float64(count))
}

// RecordDerive observes derivation latency and the resulting participant count.
func (m *Manager) RecordDerive(durationMs float64, participants int) {
	m.deriveDuration.Observe(durationMs)
	m.participantsTotal.Set(float64(participants))
}

// RecordFieldCoercion counts a count field that was coerced to zero.
func (m *Manager) RecordFieldCoercion(field string) {
	m.fieldCoercions.WithLabelValues(field).Inc()
}

// RecordKeyCollision counts a disambiguated identity key.
func (m *Manager) RecordKeyCollision() {
	m.keyCollisions.Inc()
}

// RecordSnapshotPublished updates the snapshot gauges.
func (m *Manager) RecordSnapshotPublished(generation uint64, unix int64) {
	m.snapshotGeneration.Set(float64(generation))
	m.snapshotLastUnix.Set(float64(unix))
}

// RecordSnapshotRejected counts a stale snapshot.
func (m *Manager) RecordSnapshotRejected() {
	m.snapshotRejected.Inc()
}

// RecordLeaderboardQuery counts a leaderboard read.
func (m *Manager) RecordLeaderboardQuery(filtered bool) {
	label := "false"
	if filtered {
		label = "true"
	}
	m.leaderboardQueries.WithLabelValues(label).Inc()
}

// RecordReloadRateLimited counts a throttled reload request.
func (m *Manager) RecordReloadRateLimited() {
	m.reloadsRateLimited.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystem sets memory and goroutine gauges.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int) {
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// Package-level helpers delegating to the global manager.

// RecordDatasetLoad counts a load cycle on the global manager.
func RecordDatasetLoad(result string, durationMs float64) {
	globalManager.RecordDatasetLoad(result, durationMs)
}

// RecordDatasetLoadError counts a failed load on the global manager.
func RecordDatasetLoadError(kind string) { globalManager.RecordDatasetLoadError(kind) }

// UpdateDatasetRecords sets the raw record gauge on the global manager.
func UpdateDatasetRecords(count int) { globalManager.UpdateDatasetRecords(count) }

// RecordDerive records derivation on the global manager.
func RecordDerive(durationMs float64, participants int) {
	globalManager.RecordDerive(durationMs, participants)
}

// RecordFieldCoercion counts a coerced field on the global manager.
func RecordFieldCoercion(field string) { globalManager.RecordFieldCoercion(field) }

// RecordKeyCollision counts a key collision on the global manager.
func RecordKeyCollision() { globalManager.RecordKeyCollision() }

// RecordSnapshotPublished updates snapshot gauges on the global manager.
func RecordSnapshotPublished(generation uint64, unix int64) {
	globalManager.RecordSnapshotPublished(generation, unix)
}

// RecordSnapshotRejected counts a stale snapshot on the global manager.
func RecordSnapshotRejected() { globalManager.RecordSnapshotRejected() }

// RecordLeaderboardQuery counts a read on the global manager.
func RecordLeaderboardQuery(filtered bool) { globalManager.RecordLeaderboardQuery(filtered) }

// RecordReloadRateLimited counts a throttled reload on the global manager.
func RecordReloadRateLimited() { globalManager.RecordReloadRateLimited() }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByEndpoint records an HTTP error on the global manager.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateSystem sets system gauges on the global manager.
func UpdateSystem(memBytes uint64, goroutines int) { globalManager.UpdateSystem(memBytes, goroutines) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
