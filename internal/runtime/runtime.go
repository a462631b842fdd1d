// Package runtime constructs the Runtime value every request handler
// is wired against (spec.md 9 "global mutable caches and pools"): one
// place where initialization order is explicit and every pool, cache
// and client is built exactly once.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundry-iot/telemetry-ingest/db/migrate"
	"github.com/foundry-iot/telemetry-ingest/internal/alert"
	"github.com/foundry-iot/telemetry-ingest/internal/background"
	"github.com/foundry-iot/telemetry-ingest/internal/cache"
	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
	"github.com/foundry-iot/telemetry-ingest/internal/detector"
	"github.com/foundry-iot/telemetry-ingest/internal/observability"
	"github.com/foundry-iot/telemetry-ingest/internal/orchestrator"
	"github.com/foundry-iot/telemetry-ingest/internal/secrets"
	"github.com/foundry-iot/telemetry-ingest/internal/storage"
	"github.com/foundry-iot/telemetry-ingest/internal/stream"
	"github.com/foundry-iot/telemetry-ingest/internal/tenant"
)

// Runtime owns every process-wide resource: the shared pools, the
// stream producer, the tenant cache, the observability client and the
// object-store client named in spec.md 5 "Process-wide state".
type Runtime struct {
	Env    config.Env
	Logger *slog.Logger

	SharedHotPool  *pgxpool.Pool
	SharedWarmPool *pgxpool.Pool

	Repository *tenant.PostgresRepository
	Policy     *tenant.CompliancePolicy
	Directory  *tenant.Directory
	Selector   *dataplane.Selector

	Detector   *detector.Detector
	Dispatcher *alert.Dispatcher
	Publisher  *stream.Publisher

	Hot    *storage.HotStore
	Warm   *storage.WarmStore
	Cold   *storage.ColdStore
	Fanout *storage.Fanout

	OfflineSweeper *detector.OfflineSweeper

	Cache      *cache.Cache
	KeyStore   secrets.KeyStore
	Metrics    *observability.Client
	UsageTrack *observability.UsageTracker

	BackgroundPool *background.Pool
	Server         *orchestrator.Server
}

// New performs the full wiring sequence. The order matters: pools
// before the selector, the selector before the orchestrator's
// Dependencies, schema initialization before anything queries it.
func New(ctx context.Context, env config.Env, logger *slog.Logger) (*Runtime, error) {
	rt := &Runtime{Env: env, Logger: logger}

	hotPool, err := newPool(ctx, hotDSN(env), config.SharedHotPoolMaxConns)
	if err != nil {
		return nil, fmt.Errorf("runtime: open shared hot pool: %w", err)
	}
	rt.SharedHotPool = hotPool

	warmPool, err := newPool(ctx, warmDSN(env), config.SharedWarmPoolMaxConns)
	if err != nil {
		return nil, fmt.Errorf("runtime: open shared warm pool: %w", err)
	}
	rt.SharedWarmPool = warmPool

	if err := migrate.Run(ctx, hotPool, migrate.HotTier, logger.With("component", "migrate")); err != nil {
		return nil, fmt.Errorf("runtime: apply hot tier migrations: %w", err)
	}
	if err := migrate.Run(ctx, warmPool, migrate.WarmTier, logger.With("component", "migrate")); err != nil {
		return nil, fmt.Errorf("runtime: apply warm tier migrations: %w", err)
	}

	rt.Hot = storage.NewHotStore()
	rt.Warm = storage.NewWarmStore()
	rt.Repository = tenant.NewPostgresRepository(warmPool)

	policy, err := tenant.NewCompliancePolicy(ctx, env.OPAPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("runtime: prepare compliance policy: %w", err)
	}
	rt.Policy = policy
	rt.Directory = tenant.New(rt.Repository, policy, logger.With("component", "tenant_directory"))

	rt.Metrics = observability.New()
	rt.UsageTrack = observability.NewUsageTracker()
	rt.Selector = dataplane.NewSelector(hotPool, warmPool, rt.UsageTrack, env.PriorityAlertTopicIdentifier, logger.With("component", "dataplane_selector"))

	baseline := &storage.HotBaselineAdapter{Hot: rt.Hot, SharedPool: hotPool}
	rt.Detector = detector.New(detector.DefaultThresholds(), baseline, logger.With("component", "detector"))

	rt.Publisher = stream.New(env.StreamBrokers)

	alertMetrics := alert.NewMetrics(rt.Metrics.Registry)
	rt.Dispatcher = alert.New(rt.Publisher, alertMetrics, env.DashboardURL, logger.With("component", "alert_dispatcher"))

	keyStore, err := secrets.New(secrets.ConfigFromEnv(os.Getenv), logger.With("component", "secrets"))
	if err != nil {
		logger.Warn("keystore disabled", "error", err)
	} else {
		rt.KeyStore = keyStore
	}

	s3Client, err := newS3Client(ctx, env)
	if err != nil {
		return nil, err
	}
	rt.Cold = storage.NewColdStore(s3Client, rt.KeyStore)
	rt.Fanout = storage.NewFanout(rt.Hot, rt.Warm, rt.Cold, logger.With("component", "storage_fanout"))

	statusAdapter := &storage.WarmStatusAdapter{Warm: rt.Warm, Pool: warmPool}
	rt.OfflineSweeper = detector.NewOfflineSweeper(statusAdapter, &offlineAlertSink{logger: logger}, config.OfflineSweepInterval, logger.With("component", "offline_sweeper"))

	if env.RedisURL != "" {
		c, err := cache.New(env.RedisURL, logger.With("component", "cache"))
		if err != nil {
			logger.Warn("response cache disabled", "error", err)
		} else {
			rt.Cache = c
		}
	}

	rt.BackgroundPool = background.New(env.FanoutWorkers, env.FanoutQueueDepth, logger.With("component", "background_pool"))
	rt.BackgroundPool.Start(ctx)

	rt.Server = orchestrator.NewServer(orchestrator.Dependencies{
		Directory:       rt.Directory,
		Selector:        rt.Selector,
		Detector:        rt.Detector,
		Dispatch:        rt.Dispatcher,
		Fanout:          rt.Fanout,
		Hot:             rt.Hot,
		Warm:            rt.Warm,
		Cold:            rt.Cold,
		Publisher:       rt.Publisher,
		Pool:            rt.BackgroundPool,
		Metrics:         rt.Metrics,
		Cache:           rt.Cache,
		UsageTrack:      rt.UsageTrack,
		Region:          env.Region,
		SlackWebhookURL: env.SlackWebhookURL,
	}, logger.With("component", "orchestrator"))

	return rt, nil
}

// Start launches background processes that run for the lifetime of
// the runtime (the offline-equipment sweeper).
func (rt *Runtime) Start(ctx context.Context) {
	rt.OfflineSweeper.Start(ctx)
}

// Shutdown drains the background pool and closes every owned resource,
// bounded by ctx.
func (rt *Runtime) Shutdown(ctx context.Context) {
	rt.OfflineSweeper.Stop()
	if err := rt.BackgroundPool.Drain(ctx); err != nil {
		rt.Logger.Warn("background pool drain did not complete cleanly", "error", err)
	}
	if err := rt.Publisher.Close(); err != nil {
		rt.Logger.Warn("stream publisher close failed", "error", err)
	}
	rt.Selector.Close()
	rt.SharedHotPool.Close()
	rt.SharedWarmPool.Close()
	if rt.KeyStore != nil {
		_ = rt.KeyStore.Close()
	}
}

func newPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("runtime: parse pool config: %w", err)
	}
	cfg.MaxConns = maxConns
	return pgxpool.NewWithConfig(ctx, cfg)
}

func hotDSN(env config.Env) string {
	if env.SharedConnectionString != "" {
		return env.SharedConnectionString
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", env.HotStoreUser, env.HotStorePassword, env.HotStoreHost, env.HotStorePort, env.HotStoreDB)
}

func warmDSN(env config.Env) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", env.WarmStoreUser, env.WarmStorePassword, env.WarmStoreHost, env.WarmStorePort, env.WarmStoreDB)
}

func newS3Client(ctx context.Context, env config.Env) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(env.Region))
	if err != nil {
		return nil, fmt.Errorf("runtime: load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

