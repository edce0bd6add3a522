// Package metrics provides Prometheus metrics for the qbduel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rating deltas for K=32 stay within [-32, 32].
var deltaBuckets = []float64{-32, -24, -16, -8, -4, 0, 4, 8, 16, 24, 32} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the qbduel service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Matchmaking
	pairsServed        prometheus.Counter
	freshnessFallbacks prometheus.Counter
	toleranceFallbacks prometheus.Counter
	redraws            prometheus.Counter
	selectionLatency   prometheus.Histogram

	// Rating
	votesApplied    prometheus.Counter
	ratingConflicts prometheus.Counter
	ratingDelta     prometheus.Histogram
	population      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
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
		namespace:        "qbduel",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.pairsServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pairs_served_total",
		Help:      "Total number of pairs handed to sessions",
	})
	m.freshnessFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "freshness_fallbacks_total",
		Help:      "Selections that ignored recent history because too few fresh seasons remained",
	})
	m.toleranceFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tolerance_fallbacks_total",
		Help:      "Selections whose opponent came from outside the rating tolerance band",
	})
	m.redraws = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "redraws_total",
		Help:      "Opponent redraws caused by drawing the first season twice",
	})
	m.selectionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "selection_latency_milliseconds",
		Help:      "Pair selection latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.votesApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_applied_total",
		Help:      "Total number of votes committed",
	})
	m.ratingConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_conflicts_total",
		Help:      "Rating commits rejected because a concurrent vote changed a rating",
	})
	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_delta",
		Help:      "Per-season rating change applied by a vote",
		Buckets:   deltaBuckets,
	})
	m.population = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "population",
		Help:      "Number of rated seasons",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.repositoryUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Repository update operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Repository query operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)
}

// RecordPairServed increments the pairs served counter.
func RecordPairServed() {
	globalManager.pairsServed.Inc()
}

// RecordFreshnessFallback counts a selection that ignored recent history.
func RecordFreshnessFallback() {
	globalManager.freshnessFallbacks.Inc()
}

// RecordToleranceFallback counts an opponent drawn outside the tolerance band.
func RecordToleranceFallback() {
	globalManager.toleranceFallbacks.Inc()
}

// RecordRedraw counts one opponent redraw.
func RecordRedraw() {
	globalManager.redraws.Inc()
}

// RecordSelectionLatency records pair selection latency in milliseconds.
func RecordSelectionLatency(latencyMs float64) {
	globalManager.selectionLatency.Observe(latencyMs)
}

// RecordVoteApplied increments the committed votes counter.
func RecordVoteApplied() {
	globalManager.votesApplied.Inc()
}

// RecordRatingConflict counts a commit rejected by a concurrent update.
func RecordRatingConflict() {
	globalManager.ratingConflicts.Inc()
}

// RecordRatingDelta observes one season's rating change.
func RecordRatingDelta(delta float64) {
	globalManager.ratingDelta.Observe(delta)
}

// UpdatePopulation sets the number of rated seasons.
func UpdatePopulation(count int) {
	globalManager.population.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
