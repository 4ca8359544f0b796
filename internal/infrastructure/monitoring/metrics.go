package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the vault service. Collectors
// register against an injected registry so tests can use isolated ones.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Store operation metrics
	FileOps        *prometheus.CounterVec
	FileOpDuration *prometheus.HistogramVec

	// Store state gauges
	CacheEntries   prometheus.Gauge
	CacheHitRate   prometheus.Gauge
	TrackedDigests prometheus.Gauge
	SecurityEvents prometheus.Gauge

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for the JSON API
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current aggregate values for the JSON metrics endpoint.
type Snapshot struct {
	TotalRequests int64
	TotalErrors   int64
	TotalFileOps  int64
	FileOpErrors  int64
	TotalDuration float64
	RequestCount  int64
}

// NewMetrics creates a metrics collector registered on its own registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith creates a metrics collector on the given registry.
func NewMetricsWith(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vault_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vault_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vault_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		FileOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vault_file_operations_total",
				Help: "Total number of file store operations",
			},
			[]string{"op", "status"},
		),
		FileOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vault_file_operation_duration_seconds",
				Help:    "File store operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"op"},
		),

		CacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vault_cache_entries",
				Help: "Number of entries in the content cache",
			},
		),
		CacheHitRate: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vault_cache_hit_rate",
				Help: "Fraction of cache lookups served from memory",
			},
		),
		TrackedDigests: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vault_tracked_checksums",
				Help: "Number of paths with a stored checksum",
			},
		),
		SecurityEvents: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vault_security_events_total",
				Help: "Security events recorded since startup",
			},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "vault_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	go m.updateUptime()

	return m
}

// Registry returns the registry backing this collector, for exposition.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// ObserveOp mirrors one file store operation into Prometheus. It
// satisfies the store's observer hook.
func (m *Metrics) ObserveOp(kind string, duration time.Duration, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	m.FileOps.WithLabelValues(kind, status).Inc()
	m.FileOpDuration.WithLabelValues(kind).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalFileOps++
	if !success {
		m.snapshot.FileOpErrors++
	}
	m.mu.Unlock()
}

// SetStoreState updates the store-level gauges from a metrics snapshot.
func (m *Metrics) SetStoreState(cacheEntries int, cacheHitRate float64, checksums int, securityEvents int64) {
	m.CacheEntries.Set(float64(cacheEntries))
	m.CacheHitRate.Set(cacheHitRate)
	m.TrackedDigests.Set(float64(checksums))
	m.SecurityEvents.Set(float64(securityEvents))
}

// GetSnapshot returns current aggregate values for the JSON API.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// UptimeSeconds reports seconds since the collector was created.
func (m *Metrics) UptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}
