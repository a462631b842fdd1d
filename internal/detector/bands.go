package detector

import "github.com/foundry-iot/telemetry-ingest/pkg/types"

// band is one severity tier of a metric's threshold ladder. Bands are
// evaluated high-to-low so the highest applicable band wins per metric
// (spec.md 4.3 "Tie-break").
type band struct {
	severity  types.Severity
	kind      types.AnomalyKind
	threshold float64
	message   string
	// match reports whether v falls in this band given the metric's
	// normal range [low, high].
	match func(v, low, high float64) bool
}

// Thresholds holds the configurable threshold set for one metric
// (spec.md 4.3's table is the default). The running process uses
// DefaultThresholds; internal/config has no setting that overrides them.
type Thresholds struct {
	Low          float64
	High         float64
	HighBreach   float64
	CriticalBreach float64
}

// DefaultTemperature, DefaultVibration and DefaultPressure are the
// thresholds from spec.md 4.3's table.
var (
	DefaultTemperature = Thresholds{Low: 0, High: 150, HighBreach: 150, CriticalBreach: 180}
	DefaultVibration   = Thresholds{Low: 0, High: 2.0, HighBreach: 2.0, CriticalBreach: 5.0}
	DefaultPressure    = Thresholds{Low: 50, High: 500, HighBreach: 500, CriticalBreach: 800}
)

func evaluateTemperature(v float64, t Thresholds) (types.AnomalyKind, types.Severity, float64, string, bool) {
	switch {
	case v > t.CriticalBreach:
		return types.KindCriticalTemperature, types.SeverityCritical, t.CriticalBreach, "critical temperature", true
	case v > t.HighBreach:
		return types.KindHighTemperature, types.SeverityHigh, t.HighBreach, "high temperature", true
	case v < t.Low:
		return types.KindHighTemperature, types.SeverityMedium, t.Low, "low temperature", true
	default:
		return "", "", 0, "", false
	}
}

func evaluateVibration(v float64, t Thresholds) (types.AnomalyKind, types.Severity, float64, string, bool) {
	switch {
	case v > t.CriticalBreach:
		return types.KindCriticalVibration, types.SeverityCritical, t.CriticalBreach, "critical vibration", true
	case v > t.HighBreach:
		return types.KindHighVibration, types.SeverityHigh, t.HighBreach, "high vibration", true
	default:
		return "", "", 0, "", false
	}
}

func evaluatePressure(v float64, t Thresholds) (types.AnomalyKind, types.Severity, float64, string, bool) {
	switch {
	case v > t.CriticalBreach:
		return types.KindCriticalPressure, types.SeverityCritical, t.CriticalBreach, "critical pressure", true
	case v > t.HighBreach:
		return types.KindAbnormalPressure, types.SeverityHigh, t.HighBreach, "abnormal pressure (high)", true
	case v < t.Low:
		return types.KindAbnormalPressure, types.SeverityMedium, t.Low, "abnormal pressure (low)", true
	default:
		return "", "", 0, "", false
	}
}
