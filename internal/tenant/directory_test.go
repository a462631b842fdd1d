package tenant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

type fakeRepository struct {
	calls atomic.Int32
	tc    *types.TenantContext
	err   error
}

func (f *fakeRepository) GetTenant(ctx context.Context, tenantID string) (*types.TenantContext, error) {
	f.calls.Add(1)
	return f.tc, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sharedTenant(id string) *types.TenantContext {
	return &types.TenantContext{
		TenantID:       id,
		DeploymentMode: types.ModeShared,
		Data:           types.DataConfig{RowLevelSecurity: true},
	}
}

func TestResolveMissingIdentifier(t *testing.T) {
	d := New(&fakeRepository{}, nil, testLogger())
	r := httptest.NewRequest("POST", "/data", nil)

	_, err := d.Resolve(context.Background(), r, "us-east")
	if !errors.Is(err, ErrMissing) {
		t.Errorf("err = %v, want ErrMissing", err)
	}
}

func TestResolveUnknownTenant(t *testing.T) {
	repo := &fakeRepository{tc: nil}
	d := New(repo, nil, testLogger())
	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("X-Tenant-ID", "ghost-corp")

	_, err := d.Resolve(context.Background(), r, "us-east")
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("err = %v, want ErrUnknown", err)
	}
}

func TestResolveCachesAcrossCalls(t *testing.T) {
	repo := &fakeRepository{tc: sharedTenant("acme")}
	d := New(repo, nil, testLogger())
	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("X-Tenant-ID", "acme")

	for i := 0; i < 5; i++ {
		tc, err := d.Resolve(context.Background(), r, "us-east")
		if err != nil {
			t.Fatalf("unexpected error on call %d: %v", i, err)
		}
		if tc.TenantID != "acme" {
			t.Fatalf("unexpected tenant id: %q", tc.TenantID)
		}
	}

	if calls := repo.calls.Load(); calls != 1 {
		t.Errorf("repository called %d times, want 1 (cache should absorb repeats)", calls)
	}
}

func TestResolveEnforcesRateLimit(t *testing.T) {
	tc := sharedTenant("acme")
	tc.Feature.APIRateLimit = 1
	repo := &fakeRepository{tc: tc}
	d := New(repo, nil, testLogger())
	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("X-Tenant-ID", "acme")

	if _, err := d.Resolve(context.Background(), r, "us-east"); err != nil {
		t.Fatalf("first request should be allowed: %v", err)
	}
	if _, err := d.Resolve(context.Background(), r, "us-east"); !errors.Is(err, ErrDenied) {
		t.Errorf("second request should be rate limited, got err = %v", err)
	}
}

func TestInvalidateDropsCacheEntry(t *testing.T) {
	repo := &fakeRepository{tc: sharedTenant("acme")}
	d := New(repo, nil, testLogger())
	r := httptest.NewRequest("POST", "/data", nil)
	r.Header.Set("X-Tenant-ID", "acme")

	if _, err := d.Resolve(context.Background(), r, "us-east"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Invalidate("acme")
	if _, err := d.Resolve(context.Background(), r, "us-east"); err != nil {
		t.Fatalf("unexpected error after invalidate: %v", err)
	}
	if calls := repo.calls.Load(); calls != 2 {
		t.Errorf("repository called %d times, want 2 (invalidate should force a reload)", calls)
	}
}
