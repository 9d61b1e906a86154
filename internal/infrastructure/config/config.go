package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all host configuration.
type Config struct {
	Server    ServerConfig
	Views     ViewConfig
	Bridge    BridgeConfig
	Storage   StorageConfig
	Fetch     FetchConfig
	Presets   PresetConfig
	Auth      AuthConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"8090"`
	Host        string   `envconfig:"HOST" default:"0.0.0.0"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:""`
}

// ViewConfig holds view registry configuration.
type ViewConfig struct {
	Max           int           `envconfig:"MAX_VIEWS" default:"256"`
	ScriptPool    int           `envconfig:"SCRIPT_POOL_SIZE" default:"8"`
	ScriptTimeout time.Duration `envconfig:"SCRIPT_TIMEOUT" default:"1s"`
}

// BridgeConfig holds message bridge configuration.
type BridgeConfig struct {
	QueueSize      int `envconfig:"BRIDGE_QUEUE_SIZE" default:"256"`
	LatencySamples int `envconfig:"BRIDGE_LATENCY_SAMPLES" default:"1024"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Root          string `envconfig:"STORAGE_ROOT" default:"/var/lib/panehost"`
	SnapshotLevel int    `envconfig:"SNAPSHOT_LEVEL" default:"3"`
}

// FetchConfig holds outbound HTTP client configuration.
type FetchConfig struct {
	Timeout           time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	Retries           int           `envconfig:"FETCH_RETRIES" default:"3"`
	RequestsPerSecond float64       `envconfig:"FETCH_RPS" default:"10"`
	Burst             int           `envconfig:"FETCH_BURST" default:"20"`
}

// PresetConfig holds preset seeding configuration. An empty Dir skips
// on-disk seeding; the built-in defaults always load.
type PresetConfig struct {
	Dir string `envconfig:"PRESETS_DIR" default:""`
}

// AuthConfig holds embedder authentication configuration.
type AuthConfig struct {
	Enabled   bool   `envconfig:"AUTH_ENABLED" default:"false"`
	TokenHash string `envconfig:"AUTH_TOKEN_HASH" default:""`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8090",
			Host: "0.0.0.0",
		},
		Views: ViewConfig{
			Max:           256,
			ScriptPool:    8,
			ScriptTimeout: time.Second,
		},
		Bridge: BridgeConfig{
			QueueSize:      256,
			LatencySamples: 1024,
		},
		Storage: StorageConfig{
			Root:          "/var/lib/panehost",
			SnapshotLevel: 3,
		},
		Fetch: FetchConfig{
			Timeout:           30 * time.Second,
			Retries:           3,
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Auth: AuthConfig{
			Enabled:   false,
			TokenHash: "",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
