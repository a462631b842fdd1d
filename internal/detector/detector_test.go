package detector

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBaseline struct {
	avg float64
	err error
}

func (f *fakeBaseline) TrailingAveragePower(ctx context.Context, tenantID, equipmentID string) (float64, error) {
	return f.avg, f.err
}

func floatPtr(v float64) *float64 { return &v }

func reading(equipmentID string) types.SensorReading {
	return types.SensorReading{
		EquipmentID: equipmentID,
		TenantID:    "tenant-1",
		Timestamp:   time.Now(),
	}
}

func TestDetectNormalReadingHasNoAnomalies(t *testing.T) {
	d := New(DefaultThresholds(), &fakeBaseline{avg: 10}, testLogger())
	r := reading("eq-1")
	r.Temperature = floatPtr(70)
	r.Vibration = floatPtr(0.5)

	anomalies := d.Detect(context.Background(), r)
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies, got %v", anomalies)
	}
}

func TestDetectCriticalTemperature(t *testing.T) {
	d := New(DefaultThresholds(), nil, testLogger())
	r := reading("eq-1")
	r.Temperature = floatPtr(200)

	anomalies := d.Detect(context.Background(), r)
	if len(anomalies) != 1 {
		t.Fatalf("expected exactly one anomaly, got %d", len(anomalies))
	}
	if anomalies[0].Kind != types.KindCriticalTemperature {
		t.Errorf("kind = %s, want %s", anomalies[0].Kind, types.KindCriticalTemperature)
	}
	if anomalies[0].Severity != types.SeverityCritical {
		t.Errorf("severity = %s, want critical", anomalies[0].Severity)
	}
}

func TestDetectMultipleCriticalAnomalies(t *testing.T) {
	d := New(DefaultThresholds(), nil, testLogger())
	r := reading("eq-1")
	r.Temperature = floatPtr(200)
	r.Vibration = floatPtr(6)
	r.Pressure = floatPtr(900)

	anomalies := d.Detect(context.Background(), r)
	if len(anomalies) != 3 {
		t.Fatalf("expected 3 anomalies, got %d: %+v", len(anomalies), anomalies)
	}
}

func TestDetectPowerSpikeAgainstBaseline(t *testing.T) {
	d := New(DefaultThresholds(), &fakeBaseline{avg: 100}, testLogger())
	r := reading("eq-1")
	r.PowerConsumption = floatPtr(200)

	anomalies := d.Detect(context.Background(), r)
	if len(anomalies) != 1 || anomalies[0].Kind != types.KindPowerSpike {
		t.Fatalf("expected a power spike anomaly, got %+v", anomalies)
	}
}

func TestDetectPowerSpikeSkippedWithoutBaseline(t *testing.T) {
	d := New(DefaultThresholds(), nil, testLogger())
	r := reading("eq-1")
	r.PowerConsumption = floatPtr(10000)

	anomalies := d.Detect(context.Background(), r)
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies when baseline is nil, got %v", anomalies)
	}
}

func TestDetectBaselineLookupFailureIsNonFatal(t *testing.T) {
	d := New(DefaultThresholds(), &fakeBaseline{err: context.DeadlineExceeded}, testLogger())
	r := reading("eq-1")
	r.PowerConsumption = floatPtr(500)

	anomalies := d.Detect(context.Background(), r)
	if len(anomalies) != 0 {
		t.Fatalf("expected baseline errors to be swallowed, got %v", anomalies)
	}
}
