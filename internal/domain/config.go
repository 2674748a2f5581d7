package domain

import (
	"time"
)

// Config holds the complete Agrosight configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Profile determines which backing services are used
	Profile Profile `json:"profile"`

	// Engine settings for the run orchestrator
	Engine EngineConfig `json:"engine"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// Profile selects the deployment shape.
type Profile string

const (
	// ProfileStandalone runs on SQLite + in-process LRU + channel bus.
	ProfileStandalone Profile = "standalone"

	// ProfileHosted runs on PostgreSQL + Redis + NATS.
	ProfileHosted Profile = "hosted"
)

// EngineConfig holds run orchestrator settings.
type EngineConfig struct {
	// Evaluator selects the condition executor adapter: "sql" or "cel".
	Evaluator string `json:"evaluator"`

	// MaxWorkers bounds concurrent rule evaluations within a run.
	MaxWorkers int `json:"maxWorkers"`

	// RuleTimeout bounds a single condition evaluation. A timeout is
	// treated like any other per-rule evaluation failure.
	RuleTimeout time.Duration `json:"ruleTimeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp
	Endpoint     string `json:"endpoint"`
}

// DefaultConfig returns a default configuration for the standalone profile.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Profile: ProfileStandalone,
		Engine: EngineConfig{
			Evaluator:   "sql",
			MaxWorkers:  8,
			RuleTimeout: 15 * time.Second,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./agrosight.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			CatalogTTL:   time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "agrosight",
		},
	}
}

// HostedConfig returns a configuration for the hosted profile.
func HostedConfig() *Config {
	cfg := DefaultConfig()
	cfg.Profile = ProfileHosted
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "agrosight",
	}
	cfg.Cache = CacheConfig{
		Type:       "redis",
		RedisAddr:  "localhost:6379",
		CatalogTTL: time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
