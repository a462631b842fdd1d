package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// WarmStore writes the latest-known snapshot per equipment (spec.md
// 4.5 "Warm tier"). Always the shared pool, per spec.md 4.2 ("always
// shared in this design even for isolated tenants"). Writes and reads go
// straight through the pool: no app.current_tenant_id session variable
// is set, and equipment_status rows carry no tenant_id.
type WarmStore struct{}

func NewWarmStore() *WarmStore { return &WarmStore{} }

// Schema (the equipment_status table) is created by db/migrate's
// warm-tier migration set, run once against the shared warm pool at
// startup.

// Upsert writes one equipment's current snapshot, conflicting on
// equipment_id per spec.md 4.5.
func (w *WarmStore) Upsert(ctx context.Context, pool *pgxpool.Pool, r types.SensorReading) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO equipment_status
			(equipment_id, last_seen, current_temperature, current_vibration,
			 current_pressure, status, facility_id, line_id, updated_at)
		VALUES ($1,$2,$3,$4,$5,'online',$6,$7,now())
		ON CONFLICT (equipment_id) DO UPDATE SET
			last_seen           = EXCLUDED.last_seen,
			current_temperature = EXCLUDED.current_temperature,
			current_vibration   = EXCLUDED.current_vibration,
			current_pressure    = EXCLUDED.current_pressure,
			status              = 'online',
			facility_id         = EXCLUDED.facility_id,
			line_id             = EXCLUDED.line_id,
			updated_at          = now()
	`, r.EquipmentID, r.Timestamp, r.Temperature, r.Vibration, r.Pressure, r.FacilityID, r.LineID)
	if err != nil {
		return fmt.Errorf("storage: upsert warm tier row for %q: %w", r.EquipmentID, err)
	}
	return nil
}

// ListStale implements detector.StatusStore: equipment whose last_seen
// is older than threshold and still marked online.
func (w *WarmStore) ListStale(ctx context.Context, pool *pgxpool.Pool, threshold time.Duration) ([]StaleRow, error) {
	rows, err := pool.Query(ctx, `
		SELECT equipment_id, facility_id, line_id, last_seen
		FROM equipment_status
		WHERE status = 'online' AND last_seen < now() - $1::interval
	`, threshold.String())
	if err != nil {
		return nil, fmt.Errorf("storage: list stale equipment: %w", err)
	}
	defer rows.Close()

	var out []StaleRow
	for rows.Next() {
		var s StaleRow
		if err := rows.Scan(&s.EquipmentID, &s.FacilityID, &s.LineID, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("storage: scan stale equipment row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MarkOffline flips an equipment row's status.
func (w *WarmStore) MarkOffline(ctx context.Context, pool *pgxpool.Pool, equipmentID string) error {
	_, err := pool.Exec(ctx, `UPDATE equipment_status SET status = 'offline', updated_at = now() WHERE equipment_id = $1`, equipmentID)
	if err != nil {
		return fmt.Errorf("storage: mark equipment %q offline: %w", equipmentID, err)
	}
	return nil
}

// StaleRow is one equipment_status row returned by ListStale.
type StaleRow struct {
	EquipmentID string
	FacilityID  string
	LineID      string
	LastSeen    time.Time
}

// EquipmentStatus is one equipment_status row, the Query Surface's
// "equipment current status" operation (spec.md 4.8).
type EquipmentStatus struct {
	EquipmentID        string    `json:"equipment_id"`
	LastSeen           time.Time `json:"last_seen"`
	CurrentTemperature *float64  `json:"current_temperature,omitempty"`
	CurrentVibration   *float64  `json:"current_vibration,omitempty"`
	CurrentPressure    *float64  `json:"current_pressure,omitempty"`
	Status             string    `json:"status"`
	FacilityID         string    `json:"facility_id,omitempty"`
	LineID             string    `json:"line_id,omitempty"`
}

// GetStatus returns one equipment's current snapshot.
func (w *WarmStore) GetStatus(ctx context.Context, pool *pgxpool.Pool, equipmentID string) (*EquipmentStatus, error) {
	var s EquipmentStatus
	err := pool.QueryRow(ctx, `
		SELECT equipment_id, last_seen, current_temperature, current_vibration,
		       current_pressure, status, facility_id, line_id
		FROM equipment_status
		WHERE equipment_id = $1
	`, equipmentID).Scan(&s.EquipmentID, &s.LastSeen, &s.CurrentTemperature, &s.CurrentVibration,
		&s.CurrentPressure, &s.Status, &s.FacilityID, &s.LineID)
	if err != nil {
		return nil, fmt.Errorf("storage: get equipment status for %q: %w", equipmentID, err)
	}
	return &s, nil
}

// ListStatus returns every tracked equipment's current snapshot, for
// the GET /equipment listing endpoint.
func (w *WarmStore) ListStatus(ctx context.Context, pool *pgxpool.Pool) ([]EquipmentStatus, error) {
	rows, err := pool.Query(ctx, `
		SELECT equipment_id, last_seen, current_temperature, current_vibration,
		       current_pressure, status, facility_id, line_id
		FROM equipment_status
		ORDER BY equipment_id
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: list equipment status: %w", err)
	}
	defer rows.Close()

	var out []EquipmentStatus
	for rows.Next() {
		var s EquipmentStatus
		if err := rows.Scan(&s.EquipmentID, &s.LastSeen, &s.CurrentTemperature, &s.CurrentVibration,
			&s.CurrentPressure, &s.Status, &s.FacilityID, &s.LineID); err != nil {
			return nil, fmt.Errorf("storage: scan equipment status row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
