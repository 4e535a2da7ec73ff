// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the service collectors on a private registry so tests can
// construct isolated instances. All record methods are nil-safe: components
// accept an optional *Metrics and skip instrumentation when it is absent.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
	storageReads  prometheus.Counter
	collectorRuns *prometheus.CounterVec
	rowsInserted  prometheus.Counter
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricefeed_http_requests_total",
			Help: "HTTP requests by method, path and status code.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pricefeed_http_request_duration_seconds",
			Help:    "HTTP request latency by path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricefeed_http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricefeed_cache_hits_total",
			Help: "Snapshot cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricefeed_cache_misses_total",
			Help: "Snapshot cache misses, including cache errors.",
		}),
		storageReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricefeed_storage_reads_total",
			Help: "Latest-price storage queries issued.",
		}),
		collectorRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricefeed_collector_runs_total",
			Help: "Collector runs by outcome.",
		}, []string{"outcome"}),
		rowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pricefeed_rows_inserted_total",
			Help: "Price rows committed by the collector.",
		}),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.httpInFlight,
		m.cacheHits,
		m.cacheMisses,
		m.storageReads,
		m.collectorRuns,
		m.rowsInserted,
	)
	return m
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpDuration.WithLabelValues(path).Observe(duration.Seconds())
}

func (m *Metrics) IncrementInFlight() {
	if m == nil {
		return
	}
	m.httpInFlight.Inc()
}

func (m *Metrics) DecrementInFlight() {
	if m == nil {
		return
	}
	m.httpInFlight.Dec()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) StorageRead() {
	if m == nil {
		return
	}
	m.storageReads.Inc()
}

func (m *Metrics) CollectorRun(success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.collectorRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RowsInserted(n int) {
	if m == nil {
		return
	}
	m.rowsInserted.Add(float64(n))
}
