package alert

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

type fakePublisher struct {
	calls atomic.Int32
	err   error
}

func (f *fakePublisher) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	f.calls.Add(1)
	return f.err
}

type fakeSink struct {
	name      string
	delivered bool
	err       error
	calls     atomic.Int32
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Publish(ctx context.Context, payload types.NotificationPayload) (SinkOutcome, error) {
	f.calls.Add(1)
	if f.err != nil {
		return SinkOutcome{}, f.err
	}
	return SinkOutcome{Delivered: f.delivered}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAnomaly(severity types.Severity) types.Anomaly {
	return types.Anomaly{
		Kind:        types.KindCriticalTemperature,
		EquipmentID: "eq-1",
		TenantID:    "acme",
		Timestamp:   time.Now(),
		Severity:    severity,
		Value:       200,
		Threshold:   180,
		Message:     "critical temperature",
	}
}

func TestDispatchPublishesToEveryConfiguredSink(t *testing.T) {
	pub := &fakePublisher{}
	sinkA := &fakeSink{name: "webhook:a", delivered: true}
	sinkB := &fakeSink{name: "webhook:b", delivered: true}
	d := New(pub, nil, "https://dashboard.example.com", testLogger())

	outcome := d.Dispatch(context.Background(), testAnomaly(types.SeverityHigh), types.TenantContext{TenantID: "acme"}, "alerts-priority", []Sink{sinkA, sinkB}, time.Now())

	if !outcome.ChannelResults["webhook:a"] || !outcome.ChannelResults["webhook:b"] {
		t.Fatalf("expected both sinks delivered, got %+v", outcome.ChannelResults)
	}
	if !outcome.TopicPublished {
		t.Error("expected topic publish to succeed")
	}
	if pub.calls.Load() != 1 {
		t.Errorf("publisher called %d times, want 1", pub.calls.Load())
	}
}

func TestDispatchRecordsFailedSinkWithoutBlockingOthers(t *testing.T) {
	pub := &fakePublisher{}
	good := &fakeSink{name: "webhook:good", delivered: true}
	bad := &fakeSink{name: "webhook:bad", err: context.DeadlineExceeded}
	d := New(pub, nil, "", testLogger())

	outcome := d.Dispatch(context.Background(), testAnomaly(types.SeverityHigh), types.TenantContext{TenantID: "acme"}, "alerts-priority", []Sink{good, bad}, time.Now())

	if !outcome.ChannelResults["webhook:good"] {
		t.Error("expected the healthy sink to be marked delivered")
	}
	if outcome.ChannelResults["webhook:bad"] {
		t.Error("expected the failing sink to be marked undelivered")
	}
}

func TestDispatchCriticalSeverityIsFireAndForget(t *testing.T) {
	pub := &fakePublisher{}
	d := New(pub, nil, "", testLogger())

	outcome := d.Dispatch(context.Background(), testAnomaly(types.SeverityCritical), types.TenantContext{TenantID: "acme"}, "alerts-priority", nil, time.Now())

	if !outcome.TopicPublished {
		t.Error("critical severity should report the topic publish as accepted immediately")
	}
}

func TestBreakerForReusesSameBreakerPerSinkName(t *testing.T) {
	d := New(&fakePublisher{}, nil, "", testLogger())
	b1 := d.breakerFor("webhook:a")
	b2 := d.breakerFor("webhook:a")
	if b1 != b2 {
		t.Error("expected the same circuit breaker instance for the same sink name")
	}
}
