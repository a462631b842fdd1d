package config

import (
	"os"
	"strconv"
)

// Env is the process-start configuration surface enumerated in
// spec.md 6, read once by cmd/server/main.go and threaded into the
// Runtime constructor. Nothing below this layer reads os.Getenv
// directly — that keeps every component testable with a literal Env.
type Env struct {
	Region string

	HotStoreHost     string
	HotStorePort     string
	HotStoreDB       string
	HotStoreUser     string
	HotStorePassword string

	WarmStoreHost     string
	WarmStorePort     string
	WarmStoreDB       string
	WarmStoreUser     string
	WarmStorePassword string

	SharedObjectBucket     string
	SharedConnectionString string

	StreamBrokers []string

	PriorityAlertTopicIdentifier string
	DashboardURL                 string
	Environment                  string

	LogLevel     string
	MetricsAddr  string
	OPAPolicyPath string

	FanoutWorkers    int
	FanoutQueueDepth int

	RedisURL string

	// SlackWebhookURL is the workspace incoming-webhook URL used for
	// every tenant notification topic of the form "slack:#channel"; the
	// identifier only carries the target channel.
	SlackWebhookURL string
}

// FromEnviron reads the Env from process environment variables,
// applying the same defaults the teacher's agent config layer applies
// (DefaultConfig + ApplyEnvOverrides), just flattened to a single pass
// since this process has no YAML file of its own.
func FromEnviron() Env {
	e := Env{
		Region: getenv("REGION", "us-east"),

		HotStoreHost:     getenv("HOT_STORE_HOST", "localhost"),
		HotStorePort:     getenv("HOT_STORE_PORT", "5432"),
		HotStoreDB:       getenv("HOT_STORE_DB", "telemetry_hot"),
		HotStoreUser:     getenv("HOT_STORE_USER", "telemetry"),
		HotStorePassword: os.Getenv("HOT_STORE_PASSWORD"),

		WarmStoreHost:     getenv("WARM_STORE_HOST", "localhost"),
		WarmStorePort:     getenv("WARM_STORE_PORT", "5432"),
		WarmStoreDB:       getenv("WARM_STORE_DB", "telemetry_warm"),
		WarmStoreUser:     getenv("WARM_STORE_USER", "telemetry"),
		WarmStorePassword: os.Getenv("WARM_STORE_PASSWORD"),

		SharedObjectBucket:     getenv("SHARED_OBJECT_BUCKET", "telemetry-cold"),
		SharedConnectionString: os.Getenv("SHARED_CONNECTION_STRING"),

		PriorityAlertTopicIdentifier: getenv("PRIORITY_ALERT_TOPIC_IDENTIFIER", "manufacturing-alerts-priority"),
		DashboardURL:                 os.Getenv("DASHBOARD_URL"),
		Environment:                  getenv("ENVIRONMENT", "development"),

		LogLevel:      getenv("LOG_LEVEL", "info"),
		MetricsAddr:   getenv("METRICS_ADDR", ":9090"),
		OPAPolicyPath: os.Getenv("OPA_POLICY_PATH"),

		FanoutWorkers:    getenvInt("FANOUT_WORKERS", DefaultFanoutWorkers),
		FanoutQueueDepth: getenvInt("FANOUT_QUEUE_DEPTH", DefaultFanoutQueueDepth),

		RedisURL: os.Getenv("REDIS_URL"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
	}
	e.StreamBrokers = splitCSV(os.Getenv("STREAM_BROKERS"))
	if len(e.StreamBrokers) == 0 {
		e.StreamBrokers = []string{"localhost:9092"}
	}
	return e
}

// RequiresTLS reports whether the stream producer should negotiate TLS,
// gated on ENVIRONMENT per spec.md 6.
func (e Env) RequiresTLS() bool {
	return e.Environment == "production" || e.Environment == "staging"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if i > start {
				out = append(out, v[start:i])
			}
			start = i + 1
		}
	}
	return out
}
