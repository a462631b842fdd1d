package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundry-iot/telemetry-ingest/internal/detector"
)

// WarmStatusAdapter satisfies detector.StatusStore over a single shared
// warm pool. equipment_status carries no tenant_id column in this
// design (spec.md 6 "Persisted state layout"), so offline anomalies
// raised from the sweep carry an empty TenantID; routing them to a
// specific tenant's alert sinks is therefore not possible from the
// warm tier alone.
type WarmStatusAdapter struct {
	Warm *WarmStore
	Pool *pgxpool.Pool
}

func (a *WarmStatusAdapter) ListStale(ctx context.Context, threshold time.Duration) ([]detector.StaleEquipment, error) {
	rows, err := a.Warm.ListStale(ctx, a.Pool, threshold)
	if err != nil {
		return nil, err
	}
	out := make([]detector.StaleEquipment, 0, len(rows))
	for _, r := range rows {
		out = append(out, detector.StaleEquipment{
			EquipmentID: r.EquipmentID,
			FacilityID:  r.FacilityID,
			LineID:      r.LineID,
			LastSeen:    r.LastSeen,
		})
	}
	return out, nil
}

func (a *WarmStatusAdapter) MarkOffline(ctx context.Context, equipmentID string) error {
	return a.Warm.MarkOffline(ctx, a.Pool, equipmentID)
}
