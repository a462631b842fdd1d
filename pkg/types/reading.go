// Package types holds the wire and domain records shared across the
// ingestion pipeline: sensor readings, anomalies, alerts and tenant
// context. Keeping them in one package (mirroring how the rest of the
// platform shares data shapes) avoids import cycles between the
// tenant, detector, alert and storage packages, which all need to see
// the same reading shape.
package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// Source is the fixed literal attached to every reading ingested over
// the HTTP path (spec.md 3 "source").
const Source = "http_ingest"

// SensorReading is one telemetry sample from one piece of equipment.
//
// Only EquipmentID and Timestamp are required; every measurement is
// optional and a nil pointer means "not reported" rather than zero.
type SensorReading struct {
	EquipmentID string    `json:"equipment_id"`
	Timestamp   time.Time `json:"timestamp"`

	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,min=-273,max=1000"`
	Vibration        *float64 `json:"vibration,omitempty" validate:"omitempty,min=0,max=100"`
	Pressure         *float64 `json:"pressure,omitempty" validate:"omitempty,min=0,max=10000"`
	PowerConsumption *float64 `json:"power_consumption,omitempty" validate:"omitempty,min=0"`

	FacilityID    string            `json:"facility_id,omitempty"`
	LineID        string            `json:"line_id,omitempty"`
	CustomMetrics map[string]string `json:"custom_metrics,omitempty"`

	// Enrichment, set by the orchestrator after validation.
	IngestionTimestamp time.Time `json:"ingestion_timestamp,omitempty"`
	SourceLabel        string    `json:"source,omitempty"`
	HasAnomalies       bool      `json:"has_anomalies"`
	Anomalies          []Anomaly `json:"anomalies,omitempty"`

	// TenantID is a foreign tag, not an owned relationship: readings do
	// not serialize a tenant object, only the id, carried into every
	// storage tier row (spec.md 3 "Relationships").
	TenantID string `json:"-"`
}

// Validate checks the required-field invariant from spec.md 3: at least
// EquipmentID and Timestamp must be present. It returns the list of
// missing field names, empty when the reading is valid.
func (r SensorReading) Validate() []string {
	var missing []string
	if r.EquipmentID == "" {
		missing = append(missing, "equipment_id")
	}
	if r.Timestamp.IsZero() {
		missing = append(missing, "timestamp")
	}
	return missing
}

// rawReading lets SensorReading decode the timestamp as a plain string,
// so an absent or unparseable value leaves Timestamp zero instead of
// failing the whole decode; validation then reports it as missing.
type rawReading struct {
	EquipmentID      string            `json:"equipment_id"`
	Timestamp        string            `json:"timestamp"`
	Temperature      *float64          `json:"temperature,omitempty"`
	Vibration        *float64          `json:"vibration,omitempty"`
	Pressure         *float64          `json:"pressure,omitempty"`
	PowerConsumption *float64          `json:"power_consumption,omitempty"`
	FacilityID       string            `json:"facility_id,omitempty"`
	LineID           string            `json:"line_id,omitempty"`
	CustomMetrics    map[string]string `json:"custom_metrics,omitempty"`
}

// UnmarshalJSON accepts a missing or malformed timestamp instead of
// failing the whole decode, so the orchestrator can report a precise
// "missing timestamp" validation error rather than a generic parse
// failure (spec.md 8, scenario 4).
func (r *SensorReading) UnmarshalJSON(data []byte) error {
	var raw rawReading
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.EquipmentID = raw.EquipmentID
	r.Temperature = raw.Temperature
	r.Vibration = raw.Vibration
	r.Pressure = raw.Pressure
	r.PowerConsumption = raw.PowerConsumption
	r.FacilityID = raw.FacilityID
	r.LineID = raw.LineID
	r.CustomMetrics = raw.CustomMetrics
	if raw.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, raw.Timestamp); err == nil {
			r.Timestamp = ts.UTC()
		}
	}
	return nil
}

// ContentKey is the tuple content hashing is derived from for
// dedup/idempotence purposes (spec.md 4.5).
func (r SensorReading) ContentKey() string {
	key := r.EquipmentID + "|" + r.Timestamp.UTC().Format(time.RFC3339Nano) + "|"
	key += floatOrEmpty(r.Temperature) + "|" + floatOrEmpty(r.Vibration) + "|" + floatOrEmpty(r.Pressure)
	return key
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}
