package storage

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// ContentHash computes the dedup hash of a reading over its content
// key (equipment_id, timestamp and the three core measurements, per
// spec.md 4.5 "Hot tier"). A duplicate reading hashes identically and
// is a no-op at hot/warm tiers via upsert.
func ContentHash(r types.SensorReading) uint64 {
	return xxhash.Sum64String(r.ContentKey())
}

// ContentHashHex renders ContentHash as a fixed-width hex string
// suitable for a text column.
func ContentHashHex(r types.SensorReading) string {
	return fmt.Sprintf("%016x", ContentHash(r))
}
