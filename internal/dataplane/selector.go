package dataplane

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundry-iot/telemetry-ingest/db/migrate"
	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// UsageSource supplies the usage statistics the dedicated-pool
// promotion decision needs (spec.md 4.2 "Dedicated hot-store
// promotion"). The specification treats these as opaque inputs from
// an external metrics interface; this implementation backs them with
// the in-memory observability.UsageTracker.
type UsageSource interface {
	DailyVolumeGB(ctx context.Context, tenantID string) (float64, error)
	AvgQPS(ctx context.Context, tenantID string) (float64, error)
	RecentSLAViolations(ctx context.Context, tenantID string) (int, error)
}

// DataPlane is the resolved set of resources a request must use,
// returned by Selector.Select.
type DataPlane struct {
	HotPool  *pgxpool.Pool
	WarmPool *pgxpool.Pool
	// Shared is true when HotPool is the shared pool and callers must
	// borrow connections through BorrowShared, not BorrowDedicated.
	Shared bool

	Object types.ObjectTarget
	Topics types.StreamTopics
	Sinks  types.AlertSinks
}

// Selector implements the Data-Plane Selector component (spec.md 4.2).
type Selector struct {
	sharedHot          *pgxpool.Pool
	sharedWarm         *pgxpool.Pool
	usage              UsageSource
	priorityAlertTopic string
	logger             *slog.Logger

	mu        sync.Mutex
	dedicated map[string]*pgxpool.Pool
}

// NewSelector constructs a Selector over the process-wide shared pools.
// priorityAlertTopic is the identifier every tenant's priority alerts
// publish to (spec.md 6 PRIORITY_ALERT_TOPIC_IDENTIFIER).
func NewSelector(sharedHot, sharedWarm *pgxpool.Pool, usage UsageSource, priorityAlertTopic string, logger *slog.Logger) *Selector {
	return &Selector{
		sharedHot:          sharedHot,
		sharedWarm:         sharedWarm,
		usage:              usage,
		priorityAlertTopic: priorityAlertTopic,
		logger:             logger,
		dedicated:          make(map[string]*pgxpool.Pool),
	}
}

// Select resolves a TenantContext into a DataPlane, promoting an
// isolated-mode tenant to a dedicated hot pool when usage thresholds
// are exceeded (spec.md 4.2).
func (s *Selector) Select(ctx context.Context, tc types.TenantContext) (DataPlane, error) {
	dp := DataPlane{
		WarmPool: s.sharedWarm,
		Object:   objectTarget(tc),
		Topics:   streamTopics(tc, s.priorityAlertTopic),
		Sinks: types.AlertSinks{
			NotificationTopics: tc.Alert.NotificationTopics,
			WebhookURLs:        tc.Alert.WebhookURLs,
		},
	}

	if tc.DeploymentMode != types.ModeIsolated {
		dp.HotPool = s.sharedHot
		dp.Shared = true
		return dp, nil
	}

	promote, err := s.shouldPromote(ctx, tc)
	if err != nil {
		return DataPlane{}, fmt.Errorf("dataplane: evaluate promotion for tenant %q: %w", tc.TenantID, err)
	}
	if !promote {
		dp.HotPool = s.sharedHot
		dp.Shared = true
		return dp, nil
	}

	pool, err := s.dedicatedPool(ctx, tc)
	if err != nil {
		return DataPlane{}, err
	}
	dp.HotPool = pool
	dp.Shared = false
	return dp, nil
}

// shouldPromote implements the policy in spec.md 4.2: promote when
// tier is enterprise, or any usage threshold is exceeded.
func (s *Selector) shouldPromote(ctx context.Context, tc types.TenantContext) (bool, error) {
	if tc.Tier == types.TierEnterprise {
		return true, nil
	}
	if s.usage == nil {
		return false, nil
	}
	volume, err := s.usage.DailyVolumeGB(ctx, tc.TenantID)
	if err != nil {
		return false, err
	}
	if volume > config.PromoteDailyVolumeGB {
		return true, nil
	}
	qps, err := s.usage.AvgQPS(ctx, tc.TenantID)
	if err != nil {
		return false, err
	}
	if qps > config.PromoteAvgQPS {
		return true, nil
	}
	violations, err := s.usage.RecentSLAViolations(ctx, tc.TenantID)
	if err != nil {
		return false, err
	}
	return violations > config.PromoteRecentSLAViolations, nil
}

// dedicatedPool returns (lazily creating) the pool dedicated to one
// tenant, keyed by tenant_id per spec.md 5 "Process-wide state".
func (s *Selector) dedicatedPool(ctx context.Context, tc types.TenantContext) (*pgxpool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pool, ok := s.dedicated[tc.TenantID]; ok {
		return pool, nil
	}

	cfg, err := pgxpool.ParseConfig(tc.Data.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("parse dedicated pool config: %w", err)
	}
	maxConns := int32(tc.Data.MaxPoolConnections)
	if maxConns <= 0 || maxConns > config.DedicatedHotPoolMax {
		maxConns = config.DedicatedHotPoolMax
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open dedicated pool for tenant %q: %w", tc.TenantID, err)
	}
	if err := migrate.Run(ctx, pool, migrate.HotTier, s.logger.With("tenant_id", tc.TenantID)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate dedicated pool for tenant %q: %w", tc.TenantID, err)
	}
	s.dedicated[tc.TenantID] = pool
	return pool, nil
}

// objectTarget implements spec.md 4.2's bucket/prefix mapping.
func objectTarget(tc types.TenantContext) types.ObjectTarget {
	if tc.DeploymentMode == types.ModeIsolated {
		return types.ObjectTarget{Bucket: tc.Object.Bucket, EncryptionKeyRef: tc.Object.EncryptionKeyRef}
	}
	return types.ObjectTarget{
		Bucket:           tc.Object.Bucket,
		Prefix:           fmt.Sprintf("tenants/%s/", tc.TenantID),
		EncryptionKeyRef: tc.Object.EncryptionKeyRef,
	}
}

// streamTopics implements spec.md 4.2's topic-naming scheme.
func streamTopics(tc types.TenantContext, priorityAlertTopic string) types.StreamTopics {
	topics := types.StreamTopics{
		SensorData:     fmt.Sprintf("sensor-data-%s", tc.TenantID),
		Alerts:         fmt.Sprintf("alerts-%s", tc.TenantID),
		PriorityAlerts: priorityAlertTopic,
	}
	if tc.DeploymentMode != types.ModeIsolated {
		topics.Shared = "manufacturing-shared"
	}
	return topics
}

// Close tears down every dedicated pool this selector opened.
func (s *Selector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pool := range s.dedicated {
		pool.Close()
	}
}
