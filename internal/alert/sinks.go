package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// SinkOutcome records whether one configured channel accepted a
// notification.
type SinkOutcome struct {
	Delivered bool
	Error     string
}

// Sink is the capability every notification channel implements,
// modeled as a value rather than a type hierarchy (REDESIGN FLAG
// "inheritance-less polymorphism over channels"). The dispatcher
// iterates a tenant's configured sinks uniformly through this
// interface.
type Sink interface {
	Publish(ctx context.Context, payload types.NotificationPayload) (SinkOutcome, error)
	Name() string
}

// WebhookSink posts a notification payload as JSON to a tenant-
// configured URL.
type WebhookSink struct {
	URL    string
	Client *http.Client
}

// NewWebhookSink constructs a WebhookSink with a bounded client
// timeout so a slow endpoint cannot consume the dispatcher's budget.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		URL:    url,
		Client: &http.Client{Timeout: 2 * time.Second},
	}
}

func (s *WebhookSink) Name() string { return "webhook:" + s.URL }

func (s *WebhookSink) Publish(ctx context.Context, payload types.NotificationPayload) (SinkOutcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SinkOutcome{}, fmt.Errorf("alert: marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return SinkOutcome{}, fmt.Errorf("alert: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return SinkOutcome{Delivered: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return SinkOutcome{Delivered: false, Error: fmt.Sprintf("webhook returned status %d", resp.StatusCode)}, nil
	}
	return SinkOutcome{Delivered: true}, nil
}

// SlackSink posts a notification as a Slack incoming-webhook message.
// Used when a tenant's notification topic identifier is of the form
// "slack:#channel".
type SlackSink struct {
	WebhookURL string
	Channel    string
}

// NewSlackSink parses a "slack:#channel" identifier alongside the
// workspace's incoming webhook URL.
func NewSlackSink(identifier, webhookURL string) *SlackSink {
	channel := strings.TrimPrefix(identifier, "slack:")
	return &SlackSink{WebhookURL: webhookURL, Channel: channel}
}

func (s *SlackSink) Name() string { return "slack:" + s.Channel }

func (s *SlackSink) Publish(ctx context.Context, payload types.NotificationPayload) (SinkOutcome, error) {
	msg := &slack.WebhookMessage{
		Channel: s.Channel,
		Text:    fmt.Sprintf("[%s] %s on %s: %s", payload.Severity, payload.AlertID, payload.EquipmentID, payload.Message),
	}
	if err := slack.PostWebhookContext(ctx, s.WebhookURL, msg); err != nil {
		return SinkOutcome{Delivered: false, Error: err.Error()}, nil
	}
	return SinkOutcome{Delivered: true}, nil
}

// Publisher is the narrow surface TopicSink needs from the stream
// publisher, satisfied structurally by *stream.Publisher without an
// import-cycle-prone direct dependency.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// TopicSink wraps the Stream Publisher so a tenant/priority topic can
// be addressed through the same Sink interface as webhook/Slack
// channels.
type TopicSink struct {
	Publisher Publisher
	Topic     string
}

func (s *TopicSink) Name() string { return "topic:" + s.Topic }

func (s *TopicSink) Publish(ctx context.Context, payload types.NotificationPayload) (SinkOutcome, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SinkOutcome{}, fmt.Errorf("alert: marshal topic payload: %w", err)
	}
	headers := map[string]string{
		"severity":     string(payload.Severity),
		"equipment_id": payload.EquipmentID,
	}
	if err := s.Publisher.Publish(ctx, s.Topic, payload.AlertID, body, headers); err != nil {
		return SinkOutcome{Delivered: false, Error: err.Error()}, nil
	}
	return SinkOutcome{Delivered: true}, nil
}
