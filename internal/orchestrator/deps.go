package orchestrator

import (
	"github.com/foundry-iot/telemetry-ingest/internal/alert"
	"github.com/foundry-iot/telemetry-ingest/internal/background"
	"github.com/foundry-iot/telemetry-ingest/internal/cache"
	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
	"github.com/foundry-iot/telemetry-ingest/internal/detector"
	"github.com/foundry-iot/telemetry-ingest/internal/observability"
	"github.com/foundry-iot/telemetry-ingest/internal/storage"
	"github.com/foundry-iot/telemetry-ingest/internal/stream"
	"github.com/foundry-iot/telemetry-ingest/internal/tenant"
)

// Dependencies is the Runtime's surface as seen by the orchestrator —
// the "constructed Runtime value passed to request handlers" from
// spec.md 9's "global mutable caches and pools" redesign.
type Dependencies struct {
	Directory *tenant.Directory
	Selector  *dataplane.Selector
	Detector  *detector.Detector
	Dispatch  *alert.Dispatcher
	Fanout    *storage.Fanout
	Hot       *storage.HotStore
	Warm      *storage.WarmStore
	Cold      *storage.ColdStore
	Publisher *stream.Publisher
	Pool      *background.Pool
	Metrics   *observability.Client
	Cache     *cache.Cache

	// UsageTrack feeds the Selector's promotion decision (spec.md 4.2):
	// the request path is the only place that can observe an accepted
	// request's size and whether it met the SLA budget, so it is the
	// one that has to record both.
	UsageTrack *observability.UsageTracker

	// Region is this process's deployment region, used as the request
	// region the compliance policy evaluates a tenant's data region
	// against (spec.md 4.1 "region-restricted" compliance tags).
	Region string

	// SlackWebhookURL backs every "slack:#channel" notification topic
	// identifier a tenant configures.
	SlackWebhookURL string
}
