// Package tenant resolves an inbound request to a TenantContext,
// caches resolutions for a fixed TTL counted from insertion, and enforces compliance and
// rate-limit policy on every resolution (spec.md 4.1).
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// Repository loads a TenantContext from the external tenant directory
// (a database, a config service, whatever backs tenant onboarding —
// out of scope per spec.md 2 "Deliberately out of scope").
type Repository interface {
	GetTenant(ctx context.Context, tenantID string) (*types.TenantContext, error)
}

type cacheEntry struct {
	ctx       types.TenantContext
	expiresAt time.Time
	limiter   *rate.Limiter
}

// Directory resolves requests to tenant contexts, caching them with a
// five-minute TTL and collapsing concurrent cache misses for the same
// tenant through a singleflight.Group (spec.md 4.1 "Caching").
type Directory struct {
	repo   Repository
	policy *CompliancePolicy
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*cacheEntry

	group singleflight.Group
}

// New constructs a Directory. policy may be nil only in tests that do
// not exercise compliance checks.
func New(repo Repository, policy *CompliancePolicy, logger *slog.Logger) *Directory {
	return &Directory{
		repo:   repo,
		policy: policy,
		logger: logger,
		cache:  make(map[string]*cacheEntry),
	}
}

// Resolve implements the contract in spec.md 4.1: identify the tenant,
// load (or reuse a cached) TenantContext, then enforce compliance and
// rate-limit policy. Errors are always one of ErrMissing, ErrUnknown,
// or ErrDenied so the orchestrator can map them to HTTP statuses.
func (d *Directory) Resolve(ctx context.Context, r *http.Request, requestRegion string) (types.TenantContext, error) {
	id := Identify(r)
	if id == "" {
		return types.TenantContext{}, ErrMissing
	}

	entry, err := d.load(ctx, id)
	if err != nil {
		return types.TenantContext{}, err
	}

	if d.policy != nil {
		allow, err := d.policy.Allow(ctx, PolicyInput{
			ComplianceTags: entry.ctx.ComplianceTags,
			RequestRegion:  requestRegion,
		})
		if err != nil {
			d.logger.Warn("compliance policy evaluation failed", "tenant_id", id, "error", err)
			return types.TenantContext{}, fmt.Errorf("%w: %v", ErrDenied, err)
		}
		if !allow {
			return types.TenantContext{}, fmt.Errorf("%w: compliance policy rejected region %q", ErrDenied, requestRegion)
		}
	}

	if entry.limiter != nil && !entry.limiter.Allow() {
		return types.TenantContext{}, fmt.Errorf("%w: rate limit exceeded for tenant %q", ErrDenied, id)
	}

	return entry.ctx, nil
}

// load returns a cached, unexpired entry or fetches one through the
// singleflight group, guaranteeing at most one concurrent repository
// round trip per tenant_id.
func (d *Directory) load(ctx context.Context, id string) (*cacheEntry, error) {
	d.mu.RLock()
	entry, ok := d.cache[id]
	d.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry, nil
	}

	v, err, _ := d.group.Do(id, func() (any, error) {
		tc, err := d.repo.GetTenant(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		if tc == nil {
			return nil, ErrUnknown
		}
		if err := tc.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnknown, err)
		}

		limiter := newTenantLimiter(tc.Feature.APIRateLimit)

		newEntry := &cacheEntry{
			ctx:       *tc,
			expiresAt: time.Now().Add(config.TenantCacheTTL),
			limiter:   limiter,
		}

		d.mu.Lock()
		d.cache[id] = newEntry
		d.mu.Unlock()

		return newEntry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*cacheEntry), nil
}

// newTenantLimiter builds a limiter refilled at ratePerHour tokens/hour
// with a burst equal to one hour's allowance, per spec.md 4.1
// "features.api_rate_limit". A non-positive rate disables limiting.
func newTenantLimiter(ratePerHour int) *rate.Limiter {
	if ratePerHour <= 0 {
		return nil
	}
	perSecond := rate.Limit(float64(ratePerHour) / time.Hour.Seconds())
	return rate.NewLimiter(perSecond, ratePerHour)
}

// Invalidate drops a tenant's cached entry, e.g. on a directory update
// signal (spec.md 3 "Lifecycle"); wiring the signal source is out of
// scope here.
func (d *Directory) Invalidate(id string) {
	d.mu.Lock()
	delete(d.cache, id)
	d.mu.Unlock()
}
