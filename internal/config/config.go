// Package config loads client configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxUploadBytes is the client-side upload ceiling (500 MiB),
// enforced before any network request is made.
const DefaultMaxUploadBytes int64 = 500 * 1024 * 1024

// ServiceConfig identifies this client instance.
type ServiceConfig struct {
	Principal string
}

// BackendConfig points at the diarization processing service.
type BackendConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UploadTimeout  time.Duration
}

// PollConfig controls the status-check loop.
type PollConfig struct {
	// Interval between the completion of one status check and the
	// issuance of the next.
	Interval time.Duration
	// FailureThreshold is the consecutive-failure count at which a
	// not-found or transport-failure streak escalates to a terminal error.
	FailureThreshold int
}

// UploadConfig bounds what the client will submit.
type UploadConfig struct {
	MaxBytes int64
}

// KafkaConfig controls lifecycle event publishing.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicStatus   string
	TopicTerminal string
	Principal     string
}

// ObservabilityConfig controls logging and the metrics endpoint.
type ObservabilityConfig struct {
	LogLevel       string
	MetricsEnabled bool
	MetricsAddr    string
}

// Configuration is the full client configuration.
type Configuration struct {
	Service       ServiceConfig
	Backend       BackendConfig
	Poll          PollConfig
	Upload        UploadConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// Load reads configuration from the environment, falling back to defaults
// for anything unset or unparseable.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "diarize-client")

	return &Configuration{
		Service: ServiceConfig{
			Principal: principal,
		},
		Backend: BackendConfig{
			BaseURL:        strings.TrimRight(envOrDefault("BACKEND_BASE_URL", "http://localhost:8000"), "/"),
			RequestTimeout: envOrDefaultDuration("BACKEND_REQUEST_TIMEOUT", 15*time.Second),
			UploadTimeout:  envOrDefaultDuration("BACKEND_UPLOAD_TIMEOUT", 10*time.Minute),
		},
		Poll: PollConfig{
			Interval:         envOrDefaultDuration("POLL_INTERVAL", 2*time.Second),
			FailureThreshold: envOrDefaultInt("POLL_FAILURE_THRESHOLD", 3),
		},
		Upload: UploadConfig{
			MaxBytes: envOrDefaultInt64("UPLOAD_MAX_BYTES", DefaultMaxUploadBytes),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envOrDefaultList("KAFKA_BROKERS", nil),
			TopicStatus:   envOrDefault("KAFKA_TOPIC_STATUS", "diarize.job.status"),
			TopicTerminal: envOrDefault("KAFKA_TOPIC_TERMINAL", "diarize.job.terminal"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel:       envOrDefault("LOG_LEVEL", "info"),
			MetricsEnabled: envOrDefaultBool("METRICS_ENABLED", false),
			MetricsAddr:    envOrDefault("METRICS_ADDR", ":9091"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
