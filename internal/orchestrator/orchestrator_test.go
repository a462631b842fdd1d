package orchestrator

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry-iot/telemetry-ingest/internal/alert"
	"github.com/foundry-iot/telemetry-ingest/internal/dataplane"
	"github.com/foundry-iot/telemetry-ingest/internal/tenant"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(v float64) *float64 { return &v }

func TestValidateReadingRequiresEquipmentAndTimestamp(t *testing.T) {
	missing := validateReading(types.SensorReading{})
	assert.Len(t, missing, 2)
}

func TestValidateReadingRejectsOutOfRangeTemperature(t *testing.T) {
	r := types.SensorReading{
		EquipmentID: "eq-1",
		Timestamp:   time.Now(),
		Temperature: floatPtr(-400),
	}
	assert.NotEmpty(t, validateReading(r))
}

func TestValidateReadingAcceptsWellFormedReading(t *testing.T) {
	r := types.SensorReading{
		EquipmentID: "eq-1",
		Timestamp:   time.Now(),
		Temperature: floatPtr(72.5),
	}
	assert.Empty(t, validateReading(r))
}

func TestReadJSONWrapsDecodeErrorWithSentinel(t *testing.T) {
	s := &Server{logger: testLogger()}
	r := httptest.NewRequest("POST", "/data", strings.NewReader("{not json"))

	var reading types.SensorReading
	err := s.readJSON(r, &reading)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedJSON)
}

func TestWriteTenantErrorMapsMissingToBadRequest(t *testing.T) {
	s := &Server{logger: testLogger()}
	w := httptest.NewRecorder()
	s.writeTenantError(w, tenant.ErrMissing)
	assert.Equal(t, 400, w.Code)
}

func TestWriteTenantErrorMapsUnknownToNotFound(t *testing.T) {
	s := &Server{logger: testLogger()}
	w := httptest.NewRecorder()
	s.writeTenantError(w, tenant.ErrUnknown)
	assert.Equal(t, 404, w.Code)
}

func TestWriteTenantErrorMapsRateLimitDenialToTooManyRequests(t *testing.T) {
	s := &Server{logger: testLogger()}
	w := httptest.NewRecorder()
	s.writeTenantError(w, errors.Join(tenant.ErrDenied, errors.New("rate limit exceeded")))
	assert.Equal(t, 429, w.Code)
}

func TestWriteTenantErrorMapsOtherDenialToForbidden(t *testing.T) {
	s := &Server{logger: testLogger()}
	w := httptest.NewRecorder()
	s.writeTenantError(w, errors.Join(tenant.ErrDenied, errors.New("compliance region mismatch")))
	assert.Equal(t, 403, w.Code)
}

func TestWriteEnvelopeSetsSuccessFlag(t *testing.T) {
	s := &Server{logger: testLogger()}
	w := httptest.NewRecorder()
	s.writeEnvelope(w, 200, map[string]string{"ok": "yes"}, "", nil)

	var env types.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
}

func TestBuildSinksMapsWebhooksAndTopics(t *testing.T) {
	dp := dataplane.DataPlane{
		Sinks: types.AlertSinks{
			WebhookURLs:        []string{"https://example.com/hook"},
			NotificationTopics: []string{"slack:#alerts", "alerts-general"},
		},
	}
	sinks := buildSinks(dp, nil, "https://hooks.slack.com/services/x")

	require.Len(t, sinks, 3)
	foundWebhook, foundSlack, foundTopic := false, false, false
	for _, sk := range sinks {
		switch sk.(type) {
		case *alert.WebhookSink:
			foundWebhook = true
		case *alert.SlackSink:
			foundSlack = true
		case *alert.TopicSink:
			foundTopic = true
		}
	}
	assert.True(t, foundWebhook && foundSlack && foundTopic, "expected one of each sink kind, got %#v", sinks)
}

func TestMarshalReadingRoundTrips(t *testing.T) {
	r := types.SensorReading{EquipmentID: "eq-1", Timestamp: time.Now().UTC()}
	body, err := marshalReading(r)
	require.NoError(t, err)

	var decoded types.SensorReading
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "eq-1", decoded.EquipmentID)
}
