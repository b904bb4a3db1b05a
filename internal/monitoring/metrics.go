// Package monitoring carries the Prometheus instrumentation and
// alerting the admin surface exposes at /metrics and the health
// reports it exposes at /api/v1/health.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every metric this process exports. Only the admin HTTP,
// panic and memory metrics are updated at runtime; the query-path,
// catalogue/zone-cache and control-loop metrics are registered but no
// component records into them, so they stay at zero.
type Metrics struct {
	// Query path.
	QueriesTotal   *prometheus.CounterVec // labels: transport, qtype, rcode
	QueryDuration  *prometheus.HistogramVec
	TruncatedTotal prometheus.Counter

	// Catalogue / zone cache.
	DomainsByLifecycle *prometheus.GaugeVec // labels: state
	ZoneCacheSize      prometheus.Gauge

	// Control loops.
	VerifierTicksTotal      prometheus.Counter
	VerifierTransitionsTotal *prometheus.CounterVec // labels: from, to
	VerifierLookupErrors    prometheus.Counter
	SyncTicksTotal          prometheus.Counter
	SyncUpsertsTotal        prometheus.Counter
	SyncDisabledTotal       prometheus.Counter
	SyncFailuresTotal       prometheus.Counter

	// Admin HTTP surface.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	PanicsTotal         prometheus.Counter

	// Process.
	MemoryUsage prometheus.Gauge
}

// New registers and returns every metric via promauto, mirroring the
// teacher's single-call-site registration pattern.
func New() *Metrics {
	return &Metrics{
		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogdns_queries_total",
				Help: "Total DNS queries answered, by transport, question type and response code.",
			},
			[]string{"transport", "qtype", "rcode"},
		),
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalogdns_query_duration_seconds",
				Help:    "Time to construct a DNS response from the zone cache.",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 12),
			},
			[]string{"transport"},
		),
		TruncatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_queries_truncated_total",
				Help: "Total UDP responses emitted with TC=1.",
			},
		),

		DomainsByLifecycle: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "catalogdns_domains_by_lifecycle",
				Help: "Number of catalogued domains in each lifecycle state.",
			},
			[]string{"state"},
		),
		ZoneCacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalogdns_zone_cache_size",
				Help: "Number of answerable zones currently held in the zone cache.",
			},
		),

		VerifierTicksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_verifier_ticks_total",
				Help: "Total verifier ticks completed.",
			},
		),
		VerifierTransitionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogdns_verifier_transitions_total",
				Help: "Total lifecycle transitions applied by the verifier, by origin and destination state.",
			},
			[]string{"from", "to"},
		),
		VerifierLookupErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_verifier_lookup_errors_total",
				Help: "Total NS lookups that failed or timed out during verification.",
			},
		),
		SyncTicksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_sync_ticks_total",
				Help: "Total synchroniser ticks completed.",
			},
		),
		SyncUpsertsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_sync_upserts_total",
				Help: "Total domains upserted from the upstream catalogue during reconciliation.",
			},
		),
		SyncDisabledTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_sync_disabled_total",
				Help: "Total domains disabled because they were absent or inactive upstream.",
			},
		),
		SyncFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_sync_failures_total",
				Help: "Total synchroniser ticks that failed to fetch the upstream catalogue.",
			},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalogdns_admin_http_requests_total",
				Help: "Total admin HTTP requests, by method, route and status code.",
			},
			[]string{"method", "route", "status_code"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalogdns_admin_http_request_duration_seconds",
				Help:    "Admin HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "catalogdns_admin_panics_total",
				Help: "Total panics recovered in the admin HTTP surface.",
			},
		),

		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalogdns_memory_usage_bytes",
				Help: "Resident heap memory, sampled periodically.",
			},
		),
	}
}

// RecordQuery records one completed query against the responder.
func (m *Metrics) RecordQuery(transport, qtype, rcode string, duration time.Duration, truncated bool) {
	m.QueriesTotal.WithLabelValues(transport, qtype, rcode).Inc()
	m.QueryDuration.WithLabelValues(transport).Observe(duration.Seconds())
	if truncated {
		m.TruncatedTotal.Inc()
	}
}

// RecordTransition records one verifier lifecycle transition.
func (m *Metrics) RecordTransition(from, to string) {
	m.VerifierTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SetLifecycleCounts updates the lifecycle gauge from a fresh count, replacing
// the previous values for states absent from counts with zero.
func (m *Metrics) SetLifecycleCounts(counts map[string]int) {
	for _, state := range []string{"pending", "verified", "grace", "disabled"} {
		m.DomainsByLifecycle.WithLabelValues(state).Set(float64(counts[state]))
	}
}

// RecordHTTPRequest records one completed admin HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}
