package runtime

import (
	"context"
	"log/slog"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// offlineAlertSink implements detector.OfflineSink. Offline anomalies
// carry no tenant_id (storage.WarmStatusAdapter's doc comment explains
// why), so they cannot be routed through a tenant's configured
// notification sinks the way request-path anomalies are; this sink
// only logs the anomaly at the severity it was raised.
type offlineAlertSink struct {
	logger *slog.Logger
}

func (s *offlineAlertSink) HandleOfflineAnomaly(ctx context.Context, a types.Anomaly) {
	s.logger.Warn("equipment offline",
		"equipment_id", a.EquipmentID,
		"severity", a.Severity,
		"message", a.Message,
	)
}
