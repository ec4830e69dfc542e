package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the flow and gateway metrics.
const (
	OutcomeSuccess     = "success"
	OutcomeBusy        = "busy"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
	OutcomeStale       = "stale"
	OutcomeAbsent      = "absent"
	OutcomeFailed      = "failed"
)

// Metrics contains all Prometheus metrics for humandex. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	// Capture flows
	CapturesTotal  *prometheus.CounterVec
	FlowDuration   prometheus.Histogram
	NarrationTotal *prometheus.CounterVec

	// Gateway calls
	GatewayRequests        *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Catalog
	CatalogEntries  prometheus.Gauge
	MigratedEntries prometheus.Counter

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CapturesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humandex_captures_total",
			Help: "Total number of capture flows by outcome",
		}, []string{"outcome"}),
		FlowDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "humandex_flow_duration_seconds",
			Help:    "Time from capture to analysis result",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to ~32s
		}),
		NarrationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humandex_narrations_total",
			Help: "Total number of narration attempts by outcome",
		}, []string{"outcome"}),

		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humandex_gateway_requests_total",
			Help: "Total number of remote gateway requests",
		}, []string{"gateway", "outcome"}),
		GatewayRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "humandex_gateway_request_duration_seconds",
			Help:    "Duration of remote gateway requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}, []string{"gateway"}),

		CatalogEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "humandex_catalog_entries",
			Help: "Current number of entries in the catalog",
		}),
		MigratedEntries: factory.NewCounter(prometheus.CounterOpts{
			Name: "humandex_legacy_migrated_entries_total",
			Help: "Total number of entries copied from legacy storage",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "humandex_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "humandex_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordCapture records the outcome of one capture flow
func (m *Metrics) RecordCapture(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.CapturesTotal.WithLabelValues(outcome).Inc()
	if durationSeconds > 0 {
		m.FlowDuration.Observe(durationSeconds)
	}
}

// RecordNarration records the outcome of one narration attempt
func (m *Metrics) RecordNarration(outcome string) {
	if m == nil {
		return
	}
	m.NarrationTotal.WithLabelValues(outcome).Inc()
}

// RecordGatewayRequest records one call to a remote gateway
func (m *Metrics) RecordGatewayRequest(gateway, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(gateway, outcome).Inc()
	m.GatewayRequestDuration.WithLabelValues(gateway).Observe(durationSeconds)
}

// SetCatalogEntries sets the current catalog size
func (m *Metrics) SetCatalogEntries(count int) {
	if m == nil {
		return
	}
	m.CatalogEntries.Set(float64(count))
}

// RecordMigrated adds to the migrated entries counter
func (m *Metrics) RecordMigrated(count int) {
	if m == nil {
		return
	}
	m.MigratedEntries.Add(float64(count))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}
