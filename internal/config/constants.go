// Package config centralizes the latency budgets, promotion thresholds
// and TTLs the pipeline runs against (the anomaly threshold bands live
// in internal/detector), plus the environment-variable surface
// documented in spec.md 6. Keeping them here — rather than scattered
// through the packages that use them — mirrors how the teacher corpus
// separates tunables from logic.
package config

import "time"

// Critical-path latency budgets (spec.md 5).
const (
	SLABudget              = 500 * time.Millisecond
	AnomalyDetectionBudget = 5 * time.Millisecond
	AlertDispatchBudget    = 100 * time.Millisecond
	StreamPublishBudget    = 100 * time.Millisecond

	HotPoolAcquireTimeout  = 1000 * time.Millisecond
	WarmPoolAcquireTimeout = 2000 * time.Millisecond

	AlertAwaitTimeout = 100 * time.Millisecond // severity=high await-with-timeout
)

// Tenant directory cache (spec.md 4.1).
const (
	TenantCacheTTL = 5 * time.Minute
)

// Hot/warm pool sizing (spec.md 5).
const (
	SharedHotPoolMaxConns  = 30
	SharedWarmPoolMaxConns = 20
	DedicatedHotPoolMax    = 100
)

// Dedicated hot-store promotion thresholds (spec.md 4.2).
const (
	PromoteDailyVolumeGB       = 100
	PromoteAvgQPS              = 50
	PromoteRecentSLAViolations = 5
)

// Response cache TTLs for the query surface (spec.md 4.8).
const (
	CacheTTLRecentReadings = 15 * time.Second
	CacheTTLEquipmentStatus = 15 * time.Second
	CacheTTLHistoricalKeys  = 60 * time.Second
)

// Hot-tier partitioning/retention (spec.md 6 "Persisted state layout").
const (
	HotTierChunkInterval    = time.Hour
	HotTierRetentionPeriod  = 30 * 24 * time.Hour
)

// Background fan-out pool defaults (SPEC_FULL.md 4.5).
const (
	DefaultFanoutWorkers    = 32
	DefaultFanoutQueueDepth = 4096
)

// OfflineSweepInterval is how often the offline-equipment sweep runs
// (SPEC_FULL.md 4.3 additions).
const OfflineSweepInterval = time.Minute

// Query-surface defaults (spec.md 4.8).
const (
	DefaultHistoryWindow  = 30 * 24 * time.Hour
	MaxRecentReadingsRows = 1000
)
