package config

// ObservabilityConfig groups configuration that controls metrics and logging.
type ObservabilityConfig struct {
	// MetricsEnabled controls whether Prometheus metrics are registered and
	// the /metrics endpoint is exposed.
	MetricsEnabled bool `env:"OBSERVABILITY_METRICS_ENABLED" envDefault:"true"`

	// LogLevel sets the minimum slog level (debug, info, warn, error).
	LogLevel string `env:"OBSERVABILITY_LOG_LEVEL" envDefault:"info"`
}
