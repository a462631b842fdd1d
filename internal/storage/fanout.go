package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// Fanout implements the Storage Fan-out contract: store(reading,
// tenant_ctx) -> FanoutOutcome, writing all three tiers concurrently
// and archiving to the cold-tier error location on any tier failure
// (spec.md 4.5).
type Fanout struct {
	hot    *HotStore
	warm   *WarmStore
	cold   *ColdStore
	logger *slog.Logger
}

func NewFanout(hot *HotStore, warm *WarmStore, cold *ColdStore, logger *slog.Logger) *Fanout {
	return &Fanout{hot: hot, warm: warm, cold: cold, logger: logger}
}

// Store runs the three tiers concurrently. It never returns an error
// to the caller — all outcomes are structured and logged, per spec.md
// 4.5 "it never raises to the orchestrator."
func (f *Fanout) Store(ctx context.Context, dp dataplane.DataPlane, r types.SensorReading) types.FanoutOutcome {
	start := time.Now()
	outcome := types.FanoutOutcome{EquipmentID: r.EquipmentID}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		outcome.Hot = f.storeHot(ctx, dp, r)
	}()
	go func() {
		defer wg.Done()
		outcome.Warm = f.storeWarm(ctx, dp, r)
	}()
	go func() {
		defer wg.Done()
		outcome.Cold = f.storeCold(ctx, dp, r)
	}()
	wg.Wait()

	if !outcome.Hot.Succeeded || !outcome.Warm.Succeeded || !outcome.Cold.Succeeded {
		if _, err := f.cold.ArchiveError(ctx, dp.Object, r); err != nil {
			f.logger.Error("cold tier error archive failed", "equipment_id", r.EquipmentID, "error", err)
		} else {
			outcome.ErrorArchived = true
		}
	}

	outcome.LatencyMs = time.Since(start).Milliseconds()
	return outcome
}

func (f *Fanout) storeHot(ctx context.Context, dp dataplane.DataPlane, r types.SensorReading) types.TierOutcome {
	var conn *dataplane.BorrowedConn
	var err error
	if dp.Shared {
		conn, err = dataplane.BorrowShared(ctx, dp.HotPool, r.TenantID)
	} else {
		conn, err = dataplane.BorrowDedicated(ctx, dp.HotPool)
	}
	if err != nil {
		f.logger.Error("hot tier acquire failed", "equipment_id", r.EquipmentID, "error", err)
		return types.TierOutcome{Attempted: true, Error: err.Error()}
	}
	defer conn.Release()

	if err := f.hot.Upsert(ctx, conn, r); err != nil {
		f.logger.Error("hot tier upsert failed", "equipment_id", r.EquipmentID, "error", err)
		return types.TierOutcome{Attempted: true, Error: err.Error()}
	}
	return types.TierOutcome{Attempted: true, Succeeded: true}
}

func (f *Fanout) storeWarm(ctx context.Context, dp dataplane.DataPlane, r types.SensorReading) types.TierOutcome {
	if err := f.warm.Upsert(ctx, dp.WarmPool, r); err != nil {
		f.logger.Error("warm tier upsert failed", "equipment_id", r.EquipmentID, "error", err)
		return types.TierOutcome{Attempted: true, Error: err.Error()}
	}
	return types.TierOutcome{Attempted: true, Succeeded: true}
}

func (f *Fanout) storeCold(ctx context.Context, dp dataplane.DataPlane, r types.SensorReading) types.TierOutcome {
	if _, err := f.cold.Archive(ctx, dp.Object, r); err != nil {
		f.logger.Error("cold tier archive failed", "equipment_id", r.EquipmentID, "error", err)
		return types.TierOutcome{Attempted: true, Error: err.Error()}
	}
	return types.TierOutcome{Attempted: true, Succeeded: true}
}
