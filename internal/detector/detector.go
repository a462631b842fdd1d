// Package detector implements synchronous anomaly detection against
// configurable thresholds (spec.md 4.3).
package detector

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// PowerBaseline supplies the trailing rolling average a tenant's power
// consumption is compared against, backing the power-spike evaluator
// (SPEC_FULL.md 4.3 additions). Backed by the hot tier's trailing
// one-hour average in this implementation.
type PowerBaseline interface {
	TrailingAveragePower(ctx context.Context, tenantID, equipmentID string) (float64, error)
}

// ThresholdSet bundles the per-metric threshold ladders a Detector
// evaluates against. Hot-reload is explicitly out of scope (spec.md
// 4.3 "Non-goals"); these are read once at process start.
type ThresholdSet struct {
	Temperature Thresholds
	Vibration   Thresholds
	Pressure    Thresholds
	// PowerSpikeMultiplier is the factor over the trailing average that
	// triggers a power-spike anomaly.
	PowerSpikeMultiplier float64
}

// DefaultThresholds returns spec.md 4.3's table plus a 1.5x default
// power-spike multiplier.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		Temperature:          DefaultTemperature,
		Vibration:             DefaultVibration,
		Pressure:              DefaultPressure,
		PowerSpikeMultiplier: 1.5,
	}
}

// Detector evaluates a SensorReading against ThresholdSet, producing
// zero or more Anomalies (spec.md 4.3).
type Detector struct {
	thresholds ThresholdSet
	baseline   PowerBaseline
	logger     *slog.Logger
}

// New constructs a Detector. baseline may be nil, in which case the
// power-spike evaluator is skipped.
func New(thresholds ThresholdSet, baseline PowerBaseline, logger *slog.Logger) *Detector {
	return &Detector{thresholds: thresholds, baseline: baseline, logger: logger}
}

// Detect runs the temperature, vibration, pressure and power
// evaluators concurrently, bounded by the 5 ms budget from spec.md 4.3.
// A slow evaluator's result is discarded and logged rather than
// blocking the others or the caller.
func (d *Detector) Detect(ctx context.Context, r types.SensorReading) []types.Anomaly {
	ctx, cancel := context.WithTimeout(ctx, config.AnomalyDetectionBudget)
	defer cancel()

	results := make(chan types.Anomaly, 4)
	g, gctx := errgroup.WithContext(ctx)

	if r.Temperature != nil {
		v := *r.Temperature
		g.Go(func() error {
			return d.runBanded(gctx, results, r, func() (types.AnomalyKind, types.Severity, float64, string, bool) {
				return evaluateTemperature(v, d.thresholds.Temperature)
			}, v)
		})
	}
	if r.Vibration != nil {
		v := *r.Vibration
		g.Go(func() error {
			return d.runBanded(gctx, results, r, func() (types.AnomalyKind, types.Severity, float64, string, bool) {
				return evaluateVibration(v, d.thresholds.Vibration)
			}, v)
		})
	}
	if r.Pressure != nil {
		v := *r.Pressure
		g.Go(func() error {
			return d.runBanded(gctx, results, r, func() (types.AnomalyKind, types.Severity, float64, string, bool) {
				return evaluatePressure(v, d.thresholds.Pressure)
			}, v)
		})
	}
	if r.PowerConsumption != nil && d.baseline != nil {
		v := *r.PowerConsumption
		g.Go(func() error {
			return d.runPowerSpike(gctx, results, r, v)
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("anomaly detection budget exceeded", "equipment_id", r.EquipmentID, "tenant_id", r.TenantID)
	}
	// results is never closed: an evaluator still running after the
	// budget may yet send, so drain only what has already arrived.
	var anomalies []types.Anomaly
	for {
		select {
		case a := <-results:
			anomalies = append(anomalies, a)
		default:
			return anomalies
		}
	}
}

func (d *Detector) runBanded(ctx context.Context, out chan<- types.Anomaly, r types.SensorReading, eval func() (types.AnomalyKind, types.Severity, float64, string, bool), value float64) error {
	kind, severity, threshold, msg, hit := eval()
	if !hit {
		return nil
	}
	select {
	case out <- types.Anomaly{
		Kind:        kind,
		EquipmentID: r.EquipmentID,
		TenantID:    r.TenantID,
		Timestamp:   r.Timestamp,
		Value:       value,
		Threshold:   threshold,
		Severity:    severity,
		Message:     fmt.Sprintf("%s: %.2f (threshold %.2f)", msg, value, threshold),
	}:
	case <-ctx.Done():
	}
	return nil
}

func (d *Detector) runPowerSpike(ctx context.Context, out chan<- types.Anomaly, r types.SensorReading, value float64) error {
	avg, err := d.baseline.TrailingAveragePower(ctx, r.TenantID, r.EquipmentID)
	if err != nil {
		d.logger.Warn("power baseline lookup failed", "equipment_id", r.EquipmentID, "error", err)
		return nil
	}
	if avg <= 0 {
		return nil
	}
	threshold := avg * d.thresholds.PowerSpikeMultiplier
	if value <= threshold {
		return nil
	}
	select {
	case out <- types.Anomaly{
		Kind:        types.KindPowerSpike,
		EquipmentID: r.EquipmentID,
		TenantID:    r.TenantID,
		Timestamp:   r.Timestamp,
		Value:       value,
		Threshold:   threshold,
		Severity:    types.SeverityHigh,
		Message:     fmt.Sprintf("power spike: %.2f exceeds %.2fx trailing average (%.2f)", value, d.thresholds.PowerSpikeMultiplier, avg),
	}:
	case <-ctx.Done():
	}
	return nil
}

