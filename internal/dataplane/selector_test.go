package dataplane

import (
	"context"
	"testing"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

type fakeUsage struct {
	volume     float64
	qps        float64
	violations int
	err        error
}

func (f *fakeUsage) DailyVolumeGB(ctx context.Context, tenantID string) (float64, error) {
	return f.volume, f.err
}

func (f *fakeUsage) AvgQPS(ctx context.Context, tenantID string) (float64, error) {
	return f.qps, f.err
}

func (f *fakeUsage) RecentSLAViolations(ctx context.Context, tenantID string) (int, error) {
	return f.violations, f.err
}

func TestShouldPromoteEnterpriseTierAlwaysPromotes(t *testing.T) {
	s := &Selector{usage: &fakeUsage{}}
	tc := types.TenantContext{Tier: types.TierEnterprise}

	promote, err := s.shouldPromote(context.Background(), tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !promote {
		t.Error("expected enterprise tier to always promote")
	}
}

func TestShouldPromoteBelowThresholdsDoesNotPromote(t *testing.T) {
	s := &Selector{usage: &fakeUsage{volume: 1, qps: 1, violations: 0}}
	tc := types.TenantContext{Tier: types.TierBasic}

	promote, err := s.shouldPromote(context.Background(), tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promote {
		t.Error("expected a tenant under every threshold to not be promoted")
	}
}

func TestShouldPromoteAboveVolumeThresholdPromotes(t *testing.T) {
	s := &Selector{usage: &fakeUsage{volume: 1_000_000}}
	tc := types.TenantContext{Tier: types.TierBasic}

	promote, err := s.shouldPromote(context.Background(), tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !promote {
		t.Error("expected a tenant over the daily volume threshold to be promoted")
	}
}

func TestShouldPromoteNilUsageSourceIsNotPromoted(t *testing.T) {
	s := &Selector{usage: nil}
	tc := types.TenantContext{Tier: types.TierBasic}

	promote, err := s.shouldPromote(context.Background(), tc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promote {
		t.Error("expected a nil usage source to never promote a non-enterprise tenant")
	}
}

func TestObjectTargetSharedModeGetsTenantPrefix(t *testing.T) {
	tc := types.TenantContext{TenantID: "acme", DeploymentMode: types.ModeShared, Object: types.ObjectTarget{Bucket: "telemetry-cold"}}
	target := objectTarget(tc)
	if target.Prefix != "tenants/acme/" {
		t.Errorf("Prefix = %q, want tenants/acme/", target.Prefix)
	}
}

func TestObjectTargetIsolatedModeHasNoPrefix(t *testing.T) {
	tc := types.TenantContext{TenantID: "acme", DeploymentMode: types.ModeIsolated, Object: types.ObjectTarget{Bucket: "acme-cold"}}
	target := objectTarget(tc)
	if target.Prefix != "" {
		t.Errorf("Prefix = %q, want empty for isolated deployment", target.Prefix)
	}
}

func TestStreamTopicsSharedModeIncludesSharedTopic(t *testing.T) {
	tc := types.TenantContext{TenantID: "acme", DeploymentMode: types.ModeShared}
	topics := streamTopics(tc, "priority-alerts")
	if topics.Shared != "manufacturing-shared" {
		t.Errorf("Shared = %q, want manufacturing-shared", topics.Shared)
	}
	if topics.SensorData != "sensor-data-acme" {
		t.Errorf("SensorData = %q, want sensor-data-acme", topics.SensorData)
	}
}

func TestStreamTopicsIsolatedModeHasNoSharedTopic(t *testing.T) {
	tc := types.TenantContext{TenantID: "acme", DeploymentMode: types.ModeIsolated}
	topics := streamTopics(tc, "priority-alerts")
	if topics.Shared != "" {
		t.Errorf("Shared = %q, want empty for isolated deployment", topics.Shared)
	}
}
