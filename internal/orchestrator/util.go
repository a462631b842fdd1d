package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/foundry-iot/telemetry-ingest/internal/background"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

func backgroundJob(requestID string, run func(ctx context.Context)) background.Job {
	return background.Job{RequestID: requestID, Run: run}
}

func marshalReading(r types.SensorReading) ([]byte, error) {
	return json.Marshal(r)
}
