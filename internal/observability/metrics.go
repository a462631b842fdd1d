// Package observability is the process-wide metrics client: a
// Prometheus registry, the counters/gauges every component shares,
// and the usage tracker the Data-Plane Selector's dedicated-pool
// promotion decision reads from (spec.md 4.2, 5 "one observability
// client").
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client bundles the process-wide Prometheus registry and the common
// request-path counters every component may want, without requiring
// every package to construct its own collectors against a shared
// registerer.
type Client struct {
	Registry *prometheus.Registry

	TenantUsageTicks *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
	SLAViolations    *prometheus.CounterVec
}

// New constructs a Client with a fresh registry.
func New() *Client {
	reg := prometheus.NewRegistry()
	return &Client{
		Registry: reg,
		TenantUsageTicks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_tenant_usage_ticks_total",
			Help: "Per-tenant request ticks, used for usage-based dedicated pool promotion.",
		}, []string{"tenant"}),
		RequestLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "telemetry_request_latency_seconds",
			Help:    "End-to-end ingestion request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tenant", "outcome"}),
		SLAViolations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_sla_violations_total",
			Help: "Requests that exceeded the end-to-end SLA budget, by tenant.",
		}, []string{"tenant"}),
	}
}

// Handler returns the /metrics HTTP handler for this client's registry.
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// TickTenantUsage records one request against a tenant, the
// "tenant-usage tick" metric counter from spec.md 4.7 step 2.
func (c *Client) TickTenantUsage(tenantID string) {
	c.TenantUsageTicks.WithLabelValues(tenantID).Inc()
}

// RecordRequest records end-to-end latency and SLA compliance for one
// request.
func (c *Client) RecordRequest(tenantID, outcome string, seconds float64, slaCompliant bool) {
	c.RequestLatency.WithLabelValues(tenantID, outcome).Observe(seconds)
	if !slaCompliant {
		c.SLAViolations.WithLabelValues(tenantID).Inc()
	}
}
