// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Scheduler SchedulerConfig
	Upstream  UpstreamConfig
	Persist   PersistConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8130"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// SchedulerConfig holds admission configuration. A concurrency level of 0
// means unlimited.
type SchedulerConfig struct {
	BackgroundConcurrencyLevel            int `envconfig:"BACKGROUND_CONCURRENCY" default:"1"`
	BackgroundInteractiveConcurrencyLevel int `envconfig:"BACKGROUND_INTERACTIVE_CONCURRENCY" default:"3"`
	YieldTimeoutSeconds                   int `envconfig:"YIELD_TIMEOUT_SECONDS" default:"60"`
}

// UpstreamConfig holds provider upstream configuration.
type UpstreamConfig struct {
	ConnectivityURL         string `envconfig:"CONNECTIVITY_URL" default:""`
	ConnectivityPollSeconds int    `envconfig:"CONNECTIVITY_POLL_SECONDS" default:"15"`
}

// PersistConfig holds persistence configuration.
type PersistConfig struct {
	Dir     string `envconfig:"PERSIST_DIR" default:"/var/lib/activityd"`
	SeedDir string `envconfig:"SEED_DIR" default:""`
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
	for _, section := range []interface{}{&cfg.Server, &cfg.Scheduler, &cfg.Upstream, &cfg.Persist, &cfg.Logging, &cfg.RateLimit} {
		if err := envconfig.Process("ACTIVITYD", section); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
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
			Port: "8130",
			Host: "0.0.0.0",
		},
		Scheduler: SchedulerConfig{
			BackgroundConcurrencyLevel:            1,
			BackgroundInteractiveConcurrencyLevel: 3,
			YieldTimeoutSeconds:                   60,
		},
		Upstream: UpstreamConfig{
			ConnectivityPollSeconds: 15,
		},
		Persist: PersistConfig{
			Dir: "/var/lib/activityd",
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

// Validate rejects configurations the scheduler cannot run with.
func (c *Config) Validate() error {
	if c.Scheduler.BackgroundConcurrencyLevel < 0 {
		return fmt.Errorf("background concurrency level must be positive or 0 for unlimited")
	}
	if c.Scheduler.BackgroundInteractiveConcurrencyLevel < 0 {
		return fmt.Errorf("background interactive concurrency level must be positive or 0 for unlimited")
	}
	if c.Scheduler.YieldTimeoutSeconds <= 0 {
		return fmt.Errorf("yield timeout must be positive")
	}
	return nil
}
