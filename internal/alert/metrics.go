package alert

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the Prometheus collectors the dispatcher emits to
// (spec.md 4.4 step 3 / SPEC_FULL.md 4.4 additions).
type Metrics struct {
	AlertsTotal    *prometheus.CounterVec
	SeverityScore  *prometheus.GaugeVec
	MetricValue    *prometheus.GaugeVec
}

// NewMetrics registers the dispatcher's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_alerts_total",
			Help: "Total alerts dispatched, by tenant, equipment, kind and severity.",
		}, []string{"tenant", "equipment", "kind", "severity"}),
		SeverityScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telemetry_alert_severity_score",
			Help: "Most recent alert severity score, by tenant and equipment.",
		}, []string{"tenant", "equipment"}),
		MetricValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telemetry_alert_metric_value",
			Help: "Most recent measurement value that triggered an alert, by tenant, equipment and threshold kind.",
		}, []string{"tenant", "equipment", "threshold_kind"}),
	}
	reg.MustRegister(m.AlertsTotal, m.SeverityScore, m.MetricValue)
	return m
}

func severityScore(s string) float64 {
	switch s {
	case "critical":
		return 4
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}
