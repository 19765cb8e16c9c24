package domain

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the complete Heron configuration.
type Config struct {
	// Server settings
	Server ServerConfig

	// Component configurations
	Repository RepositoryConfig
	Cache      CacheConfig
	EventBus   EventBusConfig

	// Workflow collaborator settings
	Workflow WorkflowConfig

	// Observability
	Logging LoggingConfig
	Tracing TracingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `env:"HERON_HOST"`
	Port         int    `env:"HERON_PORT"`
	ReadTimeout  int    `env:"HERON_READ_TIMEOUT"`  // seconds
	WriteTimeout int    `env:"HERON_WRITE_TIMEOUT"` // seconds
}

// WorkflowConfig holds settings for the policy workflow collaborators.
type WorkflowConfig struct {
	// FraudAPIURL points at the external fraud analysis service. Empty
	// means the built-in deterministic classifier is used instead.
	FraudAPIURL string `env:"HERON_FRAUD_API_URL"`

	// FraudAPITimeout bounds a single fraud analysis call, in seconds.
	FraudAPITimeout int `env:"HERON_FRAUD_API_TIMEOUT"`

	// WorkerEnabled starts the async pipeline worker that drives
	// fraud analysis, payment and subscription from bus events.
	WorkerEnabled bool `env:"HERON_WORKER"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"HERON_LOG_LEVEL"`  // debug, info, warn, error
	Format string `env:"HERON_LOG_FORMAT"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `env:"HERON_TRACING"`
	ServiceName string `env:"HERON_TRACING_SERVICE"`
}

// DefaultConfig returns the default configuration: SQLite, in-memory
// cache and the in-process channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Workflow: WorkflowConfig{
			FraudAPITimeout: 10,
			WorkerEnabled:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "heron",
		},
	}
}

// LoadConfig builds the configuration from defaults overridden by
// environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
