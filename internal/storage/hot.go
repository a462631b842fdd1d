// Package storage implements the Storage Fan-out component: three
// independent tiers (hot time-series, warm relational, cold object)
// written concurrently as a background task, with per-tier outcomes
// and an error archive on partial failure (spec.md 4.5).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// HotStore writes readings into the time-series hypertable.
type HotStore struct{}

// NewHotStore constructs a HotStore. It carries no state of its own —
// the pool and RLS discipline are supplied per call via DataPlane,
// since which pool a reading uses depends on the resolved tenant.
func NewHotStore() *HotStore { return &HotStore{} }

// Schema (the hypertable, its one-hour chunk interval and 30-day
// retention policy from spec.md 4.5) is created by db/migrate's hot-tier
// migration set, run once against the shared hot pool at startup.

// Upsert writes one reading's row. In shared mode the caller must have
// acquired conn via dataplane.BorrowShared so app.current_tenant_id is
// set for row-level security; in isolated/dedicated mode tenant_id is
// still stored as a plain tag.
func (h *HotStore) Upsert(ctx context.Context, conn *dataplane.BorrowedConn, r types.SensorReading) error {
	metrics, err := json.Marshal(r.CustomMetrics)
	if err != nil {
		return fmt.Errorf("storage: marshal custom metrics: %w", err)
	}
	_, err = conn.Conn().Exec(ctx, `
		INSERT INTO sensor_data_raw
			(time, equipment_id, tenant_id, temperature, vibration, pressure,
			 power_consumption, custom_metrics, facility_id, line_id,
			 ingestion_timestamp, source, has_anomalies, data_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (time, equipment_id) DO UPDATE SET
			tenant_id           = EXCLUDED.tenant_id,
			temperature         = EXCLUDED.temperature,
			vibration           = EXCLUDED.vibration,
			pressure            = EXCLUDED.pressure,
			power_consumption   = EXCLUDED.power_consumption,
			custom_metrics      = EXCLUDED.custom_metrics,
			facility_id         = EXCLUDED.facility_id,
			line_id             = EXCLUDED.line_id,
			ingestion_timestamp = EXCLUDED.ingestion_timestamp,
			has_anomalies       = EXCLUDED.has_anomalies,
			data_hash           = EXCLUDED.data_hash
	`,
		r.Timestamp, r.EquipmentID, nullableString(r.TenantID), r.Temperature, r.Vibration, r.Pressure,
		r.PowerConsumption, metrics, r.FacilityID, r.LineID,
		r.IngestionTimestamp, r.SourceLabel, r.HasAnomalies, ContentHashHex(r),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert hot tier row for %q: %w", r.EquipmentID, err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListRecent implements the Query Surface's "recent sensor data"
// operation (spec.md 4.8): rows for one equipment over [start, end],
// capped at 1000, newest first. Always borrowed through
// dataplane.BorrowShared/BorrowDedicated by the caller so row-level
// security applies in shared mode.
func (h *HotStore) ListRecent(ctx context.Context, conn *dataplane.BorrowedConn, equipmentID string, start, end time.Time) ([]types.SensorReading, error) {
	rows, err := conn.Conn().Query(ctx, `
		SELECT time, equipment_id, temperature, vibration, pressure, power_consumption,
		       facility_id, line_id, ingestion_timestamp, source, has_anomalies
		FROM sensor_data_raw
		WHERE equipment_id = $1 AND time BETWEEN $2 AND $3
		ORDER BY time DESC
		LIMIT 1000
	`, equipmentID, start, end)
	if err != nil {
		return nil, fmt.Errorf("storage: list recent hot tier rows for %q: %w", equipmentID, err)
	}
	defer rows.Close()

	var out []types.SensorReading
	for rows.Next() {
		var r types.SensorReading
		if err := rows.Scan(&r.Timestamp, &r.EquipmentID, &r.Temperature, &r.Vibration, &r.Pressure,
			&r.PowerConsumption, &r.FacilityID, &r.LineID, &r.IngestionTimestamp, &r.SourceLabel, &r.HasAnomalies); err != nil {
			return nil, fmt.Errorf("storage: scan hot tier row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TrailingAveragePower implements detector.PowerBaseline by averaging
// power_consumption over the trailing hour, backing the power-spike
// evaluator (SPEC_FULL.md 4.3 additions).
func (h *HotStore) TrailingAveragePower(ctx context.Context, conn *dataplane.BorrowedConn, equipmentID string) (float64, error) {
	var avg *float64
	err := conn.Conn().QueryRow(ctx, `
		SELECT avg(power_consumption)
		FROM sensor_data_raw
		WHERE equipment_id = $1 AND power_consumption IS NOT NULL
		  AND time > now() - INTERVAL '1 hour'
	`, equipmentID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("storage: trailing average power for %q: %w", equipmentID, err)
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
