package detector

import (
	"testing"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

func TestEvaluateTemperature(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		wantHit  bool
		wantKind types.AnomalyKind
		wantSev  types.Severity
	}{
		{"normal", 75, false, "", ""},
		{"high breach", 160, true, types.KindHighTemperature, types.SeverityHigh},
		{"critical breach", 200, true, types.KindCriticalTemperature, types.SeverityCritical},
		{"low breach", -5, true, types.KindHighTemperature, types.SeverityMedium},
		{"at high boundary", 150, false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, sev, _, _, hit := evaluateTemperature(tt.value, DefaultTemperature)
			if hit != tt.wantHit {
				t.Fatalf("hit = %v, want %v", hit, tt.wantHit)
			}
			if hit && (kind != tt.wantKind || sev != tt.wantSev) {
				t.Errorf("got kind=%s severity=%s, want kind=%s severity=%s", kind, sev, tt.wantKind, tt.wantSev)
			}
		})
	}
}

func TestEvaluateVibrationNeverFlagsLow(t *testing.T) {
	_, _, _, _, hit := evaluateVibration(0, DefaultVibration)
	if hit {
		t.Error("vibration at zero should never be an anomaly; there is no low band")
	}
}

func TestEvaluatePressureBothDirections(t *testing.T) {
	_, sevHigh, _, _, hitHigh := evaluatePressure(900, DefaultPressure)
	if !hitHigh || sevHigh != types.SeverityCritical {
		t.Errorf("expected critical pressure breach, got hit=%v severity=%s", hitHigh, sevHigh)
	}

	_, sevLow, _, _, hitLow := evaluatePressure(10, DefaultPressure)
	if !hitLow || sevLow != types.SeverityMedium {
		t.Errorf("expected medium-severity low pressure, got hit=%v severity=%s", hitLow, sevLow)
	}
}
