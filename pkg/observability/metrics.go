package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Dynamic dispatch metrics
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	// Resolver metrics
	ResolveCacheHits   prometheus.Counter
	ResolveCacheMisses prometheus.Counter

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Registry metrics
	CollectionsActive prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		DispatchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchboard_dispatch_total",
				Help: "Total number of dynamic endpoint dispatches",
			},
			[]string{"method", "purpose", "outcome"},
		),
		DispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchboard_dispatch_duration_seconds",
				Help:    "Dynamic endpoint dispatch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "purpose"},
		),
		ResolveCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "switchboard_resolve_cache_hits_total",
				Help: "Total number of endpoint resolution cache hits",
			},
		),
		ResolveCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "switchboard_resolve_cache_misses_total",
				Help: "Total number of endpoint resolution cache misses",
			},
		),
		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchboard_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "backend", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchboard_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "backend"},
		),
		CollectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "switchboard_collections_active",
				Help: "Number of collection handles held by the registry",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DispatchTotal,
		m.DispatchDuration,
		m.ResolveCacheHits,
		m.ResolveCacheMisses,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.CollectionsActive,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
