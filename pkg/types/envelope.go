package types

import "time"

// Envelope is the response shape for every HTTP endpoint (spec.md 4.7).
type Envelope struct {
	Success   bool     `json:"success"`
	Data      any      `json:"data,omitempty"`
	Error     string   `json:"error,omitempty"`
	Details   []string `json:"details,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// NewEnvelope stamps the current time in RFC3339.
func NewEnvelope(success bool, data any, errMsg string, details []string) Envelope {
	return Envelope{
		Success:   success,
		Data:      data,
		Error:     errMsg,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// IngestData is the success payload for the ingest endpoints.
type IngestData struct {
	Message             string `json:"message"`
	EquipmentID         string `json:"equipment_id"`
	Timestamp           string `json:"timestamp"`
	AnomaliesDetected   int    `json:"anomalies_detected"`
	AlertsCreated       int    `json:"alerts_created"`
	ProcessingLatencyMs int64  `json:"processing_latency_ms"`
	SLACompliant        bool   `json:"sla_compliant"`
}
