package storage

import (
	"testing"
	"time"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

func floatPtr(v float64) *float64 { return &v }

func TestContentHashIsDeterministic(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r := types.SensorReading{
		EquipmentID: "eq-1",
		Timestamp:   ts,
		Temperature: floatPtr(72.5),
		Vibration:   floatPtr(0.3),
	}

	a := ContentHash(r)
	b := ContentHash(r)
	if a != b {
		t.Errorf("ContentHash is not deterministic: %d != %d", a, b)
	}
}

func TestContentHashDiffersOnMeasurementChange(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	base := types.SensorReading{EquipmentID: "eq-1", Timestamp: ts, Temperature: floatPtr(72.5)}
	changed := base
	changed.Temperature = floatPtr(73.0)

	if ContentHash(base) == ContentHash(changed) {
		t.Error("expected differing temperature to produce a different hash")
	}
}

func TestContentHashHexIsFixedWidth(t *testing.T) {
	r := types.SensorReading{EquipmentID: "eq-1", Timestamp: time.Now()}
	hex := ContentHashHex(r)
	if len(hex) != 16 {
		t.Errorf("ContentHashHex length = %d, want 16", len(hex))
	}
}
