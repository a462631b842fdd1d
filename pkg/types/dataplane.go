package types

// ObjectTarget is the (bucket, prefix) pair a reading's cold-tier writes
// are rooted at (spec.md 4.2).
type ObjectTarget struct {
	Bucket string
	Prefix string

	// EncryptionKeyRef is the tenant's object_config.encryption_key_ref,
	// resolved by the cold tier into SSE-C key material before every
	// put (empty when the tenant has not configured one).
	EncryptionKeyRef string
}

// StreamTopics names the topics a tenant's request must publish to
// (spec.md 4.2).
type StreamTopics struct {
	SensorData      string
	Alerts          string
	PriorityAlerts  string
	Shared          string // only set in shared mode
}

// AlertSinks is the tenant's configured notification destinations,
// copied out of TenantContext.Alert for convenience at the call site.
type AlertSinks struct {
	NotificationTopics []string
	WebhookURLs        []string
}

// TierOutcome records one storage tier's attempt.
type TierOutcome struct {
	Attempted bool
	Succeeded bool
	Error     string
}

// FanoutOutcome is the result of one Storage Fan-out invocation
// (spec.md 4.5): per-tier success flags and total latency. It never
// reaches the HTTP response; callers only log it.
type FanoutOutcome struct {
	EquipmentID  string        `json:"equipment_id"`
	Hot          TierOutcome   `json:"hot"`
	Warm         TierOutcome   `json:"warm"`
	Cold         TierOutcome   `json:"cold"`
	ErrorArchived bool         `json:"error_archived"`
	LatencyMs    int64         `json:"latency_ms"`
}
