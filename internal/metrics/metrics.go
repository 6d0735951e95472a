// Package metrics exposes Prometheus instrumentation for the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ultragrab"

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Extraction metrics
	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec

	// Relay metrics
	relayOutcomesTotal *prometheus.CounterVec
	relayFallbacks     prometheus.Counter
	relayBytesTotal    *prometheus.CounterVec
	relayActive        prometheus.Gauge

	// History metrics
	historyPrunedTotal prometheus.Counter
}

// New registers all collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.extractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Metadata extractions by backend and result code",
		},
		[]string{"backend", "result"},
	)
	m.extractionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of metadata extraction in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"backend"},
	)

	m.relayOutcomesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_outcomes_total",
			Help:      "Finished relays by outcome and serving source",
		},
		[]string{"outcome", "source"},
	)
	m.relayFallbacks = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_fallbacks_total",
			Help:      "Relays that switched to the fallback source",
		},
	)
	m.relayBytesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_bytes_total",
			Help:      "Bytes written to clients by serving source",
		},
		[]string{"source"},
	)
	m.relayActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_active",
			Help:      "Relays currently streaming",
		},
	)

	m.historyPrunedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_pruned_total",
			Help:      "History entries removed by retention",
		},
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one served request. route is the matched pattern.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveExtraction records one extraction attempt. result is "ok" or an error code.
func (m *Metrics) ObserveExtraction(backend, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(backend, result).Inc()
	m.extractionDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// RelayStarted marks a relay as in flight. Call the returned func when it ends.
func (m *Metrics) RelayStarted() func() {
	if m == nil {
		return func() {}
	}
	m.relayActive.Inc()
	return m.relayActive.Dec
}

// RelayFallback counts a switch to the fallback source.
func (m *Metrics) RelayFallback() {
	if m == nil {
		return
	}
	m.relayFallbacks.Inc()
}

// RelayFinished records the outcome and bytes of one relay.
func (m *Metrics) RelayFinished(outcome, source string, bytes int64) {
	if m == nil {
		return
	}
	m.relayOutcomesTotal.WithLabelValues(outcome, source).Inc()
	if bytes > 0 {
		m.relayBytesTotal.WithLabelValues(source).Add(float64(bytes))
	}
}

// HistoryPruned counts entries removed by retention.
func (m *Metrics) HistoryPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.historyPrunedTotal.Add(float64(n))
}
