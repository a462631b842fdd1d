package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foundry-iot/telemetry-ingest/internal/alert"
	"github.com/foundry-iot/telemetry-ingest/internal/config"
	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
	"github.com/foundry-iot/telemetry-ingest/internal/tenant"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// handleIngest implements the critical-path sequence in spec.md 4.7:
// tenant resolution, usage tick, parse/validate, enrichment, detection,
// alert dispatch, then detached storage fan-out and stream publish.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	requestID := uuid.NewString()

	// Step 1: tenant resolution.
	tc, err := s.deps.Directory.Resolve(ctx, r, s.deps.Region)
	if err != nil {
		s.writeTenantError(w, err)
		return
	}

	// Step 2: tenant-usage tick.
	if s.deps.Metrics != nil {
		s.deps.Metrics.TickTenantUsage(tc.TenantID)
	}
	if s.deps.UsageTrack != nil {
		s.deps.UsageTrack.RecordRequest(tc.TenantID, int(max(r.ContentLength, 0)))
	}

	// Step 3: parse body.
	var reading types.SensorReading
	if err := s.readJSON(r, &reading); err != nil {
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return
	}

	if missing := validateReading(reading); len(missing) > 0 {
		s.writeEnvelope(w, http.StatusBadRequest, nil, "validation failed", missing)
		return
	}

	// Step 4: enrich.
	reading.TenantID = tc.TenantID
	reading.IngestionTimestamp = time.Now().UTC()
	reading.SourceLabel = types.Source

	dp, err := s.deps.Selector.Select(ctx, tc)
	if err != nil {
		s.logger.Error("data-plane selection failed", "tenant_id", tc.TenantID, "error", err)
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
		return
	}

	// Step 5: detect anomalies.
	anomalies := s.deps.Detector.Detect(ctx, reading)
	if len(anomalies) > 0 {
		reading.HasAnomalies = true
		reading.Anomalies = anomalies
	}

	// Step 6: dispatch alerts for severity >= high, concurrently, await all.
	alertsCreated := s.dispatchAlerts(ctx, anomalies, tc, dp, start)

	// Step 7: detached background work — never adds to the response latency.
	s.launchBackground(requestID, dp, reading)

	// Step 8: respond.
	latency := time.Since(start)
	data := types.IngestData{
		Message:             "reading accepted",
		EquipmentID:         reading.EquipmentID,
		Timestamp:           reading.Timestamp.UTC().Format(time.RFC3339),
		AnomaliesDetected:   len(anomalies),
		AlertsCreated:       alertsCreated,
		ProcessingLatencyMs: latency.Milliseconds(),
		SLACompliant:        latency < config.SLABudget,
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRequest(tc.TenantID, "ok", latency.Seconds(), data.SLACompliant)
	}
	if !data.SLACompliant && s.deps.UsageTrack != nil {
		s.deps.UsageTrack.RecordSLAViolation(tc.TenantID)
	}
	s.writeEnvelope(w, http.StatusOK, data, "", nil)
}

// dispatchAlerts runs the Alert Dispatcher concurrently for every
// qualifying anomaly and waits for all of them, per spec.md 4.7 step 6.
func (s *Server) dispatchAlerts(ctx context.Context, anomalies []types.Anomaly, tc types.TenantContext, dp dataplane.DataPlane, requestStart time.Time) int {
	var qualifying []types.Anomaly
	for _, a := range anomalies {
		if a.Severity.AtLeast(types.SeverityHigh) {
			qualifying = append(qualifying, a)
		}
	}
	if len(qualifying) == 0 {
		return 0
	}

	sinks := buildSinks(dp, s.deps.Publisher, s.deps.SlackWebhookURL)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	wg.Add(len(qualifying))
	for _, a := range qualifying {
		go func(a types.Anomaly) {
			defer wg.Done()
			s.deps.Dispatch.Dispatch(ctx, a, tc, dp.Topics.PriorityAlerts, sinks, requestStart)
			mu.Lock()
			created++
			mu.Unlock()
		}(a)
	}
	wg.Wait()
	return created
}

// buildSinks turns a tenant's configured notification destinations into
// the uniform Sink value set the dispatcher iterates (spec.md 9
// "inheritance-less polymorphism over channels").
func buildSinks(dp dataplane.DataPlane, publisher alert.Publisher, slackWebhookURL string) []alert.Sink {
	var sinks []alert.Sink
	for _, url := range dp.Sinks.WebhookURLs {
		sinks = append(sinks, alert.NewWebhookSink(url))
	}
	for _, topic := range dp.Sinks.NotificationTopics {
		if strings.HasPrefix(topic, "slack:") {
			sinks = append(sinks, alert.NewSlackSink(topic, slackWebhookURL))
			continue
		}
		sinks = append(sinks, &alert.TopicSink{Publisher: publisher, Topic: topic})
	}
	return sinks
}

// launchBackground enqueues storage fan-out and the sensor-data topic
// publish as detached work, per spec.md 4.7 step 7. A full queue drops
// the job rather than blocking the request path or spawning an
// unbounded goroutine (spec.md 9 "background fan-out after response").
func (s *Server) launchBackground(requestID string, dp dataplane.DataPlane, reading types.SensorReading) {
	enqueued := s.deps.Pool.TryEnqueue(backgroundJob(requestID, func(ctx context.Context) {
		outcome := s.deps.Fanout.Store(ctx, dp, reading)
		s.logger.Info("storage fan-out complete", "request_id", requestID, "equipment_id", reading.EquipmentID,
			"hot_ok", outcome.Hot.Succeeded, "warm_ok", outcome.Warm.Succeeded, "cold_ok", outcome.Cold.Succeeded,
			"latency_ms", outcome.LatencyMs)
	}))
	if !enqueued {
		s.logger.Warn("storage fan-out dropped, background pool saturated", "request_id", requestID, "equipment_id", reading.EquipmentID)
	}

	publishCtx, cancel := context.WithTimeout(context.Background(), config.StreamPublishBudget)
	published := s.deps.Pool.TryEnqueue(backgroundJob(requestID, func(ctx context.Context) {
		defer cancel()
		body, err := marshalReading(reading)
		if err != nil {
			s.logger.Error("marshal sensor-data message failed", "request_id", requestID, "error", err)
			return
		}
		if err := s.deps.Publisher.Publish(publishCtx, dp.Topics.SensorData, reading.EquipmentID, body, nil); err != nil {
			s.logger.Warn("sensor-data publish failed", "request_id", requestID, "topic", dp.Topics.SensorData, "error", err)
		}
	}))
	if !published {
		cancel()
		s.logger.Warn("sensor-data publish dropped, background pool saturated", "request_id", requestID, "equipment_id", reading.EquipmentID)
	}
}

func (s *Server) writeTenantError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tenant.ErrMissing):
		s.writeEnvelope(w, http.StatusBadRequest, nil, "tenant identifier missing", nil)
	case errors.Is(err, tenant.ErrUnknown):
		s.writeEnvelope(w, http.StatusNotFound, nil, "tenant not found", nil)
	case errors.Is(err, tenant.ErrDenied):
		status := http.StatusForbidden
		// ErrDenied's own text mentions "rate limit"; only the wrapping
		// detail tells a rate-limit denial from a policy denial.
		if strings.Contains(strings.TrimPrefix(err.Error(), tenant.ErrDenied.Error()), "rate limit") {
			status = http.StatusTooManyRequests
		}
		s.writeEnvelope(w, status, nil, "tenant access denied", []string{err.Error()})
	default:
		s.writeEnvelope(w, http.StatusInternalServerError, nil, "Internal server error", []string{err.Error()})
	}
}
