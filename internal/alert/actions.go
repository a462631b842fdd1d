package alert

import "github.com/foundry-iot/telemetry-ingest/pkg/types"

// recommendedActions is the static kind -> actions map the dispatcher
// attaches to every notification payload (spec.md 4.4 step 4).
var recommendedActions = map[types.AnomalyKind][]string{
	types.KindCriticalTemperature: {
		"Dispatch maintenance to inspect cooling system",
		"Consider emergency shutdown if temperature continues rising",
	},
	types.KindHighTemperature: {
		"Schedule inspection of cooling system",
		"Monitor for continued temperature rise",
		"Check for sensor fault or environmental exposure if the reading is unexpectedly low",
	},
	types.KindCriticalVibration: {
		"Stop equipment and inspect for mechanical failure",
		"Check bearing and mounting integrity",
	},
	types.KindHighVibration: {
		"Schedule vibration analysis",
		"Check alignment and balance",
	},
	types.KindAbnormalPressure: {
		"Inspect pressure relief valves",
		"Check for blockages or leaks in the line",
	},
	types.KindCriticalPressure: {
		"Initiate emergency pressure relief procedure",
		"Evacuate area if rupture risk is present",
	},
	types.KindPowerSpike: {
		"Check for mechanical binding or overload",
		"Review recent load changes on this equipment",
	},
	types.KindEquipmentOffline: {
		"Dispatch technician to verify equipment and connectivity",
		"Check network path between equipment and ingestion gateway",
	},
}

// RecommendedActions returns the static action list for a kind, or nil
// if none is configured.
func RecommendedActions(kind types.AnomalyKind) []string {
	return recommendedActions[kind]
}
