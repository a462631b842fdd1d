package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
)

// HotBaselineAdapter implements detector.PowerBaseline over the shared
// hot pool. The detector is constructed once at process start and has
// no access to a per-request DataPlane, so it always reads the trailing
// average from the shared pool under that tenant's row-level-security
// session rather than from a dedicated pool a promoted tenant might
// have been routed to — an accepted approximation, since the power-spike
// signal is best-effort and bounded by the same 5 ms detection budget
// as every other evaluator.
type HotBaselineAdapter struct {
	Hot        *HotStore
	SharedPool *pgxpool.Pool
}

func (a *HotBaselineAdapter) TrailingAveragePower(ctx context.Context, tenantID, equipmentID string) (float64, error) {
	conn, err := dataplane.BorrowShared(ctx, a.SharedPool, tenantID)
	if err != nil {
		return 0, fmt.Errorf("storage: borrow shared connection for power baseline: %w", err)
	}
	defer conn.Release()
	return a.Hot.TrailingAveragePower(ctx, conn, equipmentID)
}
