package detector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// StaleEquipment is one row of the warm tier's equipment_status table
// that has gone silent past the offline threshold.
type StaleEquipment struct {
	EquipmentID string
	TenantID    string
	FacilityID  string
	LineID      string
	LastSeen    time.Time
}

// StatusStore is the warm-tier read/write surface the offline sweep
// needs. Grounded on the teacher's StateStore interface shape in
// worker/state_worker.go: a narrow, read-then-transition contract
// rather than a general-purpose repository.
type StatusStore interface {
	ListStale(ctx context.Context, threshold time.Duration) ([]StaleEquipment, error)
	MarkOffline(ctx context.Context, equipmentID string) error
}

// OfflineSink receives the equipment-offline anomalies the sweep
// produces, for the caller to route through the Alert Dispatcher.
type OfflineSink interface {
	HandleOfflineAnomaly(ctx context.Context, a types.Anomaly)
}

// OfflineThreshold is how long an equipment can go without a reading
// before it is considered offline.
const OfflineThreshold = 10 * time.Minute

// OfflineSweeper periodically scans the warm tier for equipment that
// has stopped reporting, since an offline piece of equipment never
// sends a reading and therefore can never be caught by Detector.Detect
// on the request path (SPEC_FULL.md 4.3 additions).
type OfflineSweeper struct {
	store    StatusStore
	sink     OfflineSink
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
}

// NewOfflineSweeper constructs a sweeper that checks every interval.
func NewOfflineSweeper(store StatusStore, sink OfflineSink, interval time.Duration, logger *slog.Logger) *OfflineSweeper {
	return &OfflineSweeper{
		store:    store,
		sink:     sink,
		interval: interval,
		logger:   logger.With("component", "offline_sweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop in a goroutine until Stop or ctx cancellation.
func (s *OfflineSweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the sweep loop to exit.
func (s *OfflineSweeper) Stop() {
	close(s.stopCh)
}

func (s *OfflineSweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *OfflineSweeper) sweepOnce(ctx context.Context) {
	stale, err := s.store.ListStale(ctx, OfflineThreshold)
	if err != nil {
		s.logger.Error("list stale equipment failed", "error", err)
		return
	}

	for _, eq := range stale {
		if err := s.store.MarkOffline(ctx, eq.EquipmentID); err != nil {
			s.logger.Error("mark equipment offline failed", "equipment_id", eq.EquipmentID, "error", err)
			continue
		}
		anomaly := types.Anomaly{
			Kind:        types.KindEquipmentOffline,
			EquipmentID: eq.EquipmentID,
			TenantID:    eq.TenantID,
			Timestamp:   time.Now().UTC(),
			Value:       time.Since(eq.LastSeen).Seconds(),
			Threshold:   OfflineThreshold.Seconds(),
			Severity:    types.SeverityHigh,
			Message:     fmt.Sprintf("equipment offline: no reading since %s", eq.LastSeen.Format(time.RFC3339)),
		}
		s.sink.HandleOfflineAnomaly(ctx, anomaly)
	}
}
