package config

import (
	"time"
)

// Config represents the complete application configuration. Values are
// layered: built-in defaults, an optional YAML file, .env files, STACMAN_*
// environment variables and finally runtime overrides.
type Config struct {
	Client   ClientConfig   `mapstructure:"client"`
	Throttle ThrottleConfig `mapstructure:"throttle"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ClientConfig contains the API client settings.
type ClientConfig struct {
	// Key is the application key sent with every request. Optional; keyless
	// requests get a smaller daily quota.
	Key string `mapstructure:"key"`

	// Site is the default site parameter, e.g. stackoverflow or superuser.
	Site string `mapstructure:"site"`

	BaseURL         string        `mapstructure:"base_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxConcurrent   int           `mapstructure:"max_concurrent"`
	RespectBackoffs bool          `mapstructure:"respect_backoffs"`
}

// ThrottleConfig contains the shared request budget.
type ThrottleConfig struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`

	// SafetyMargin scales Limit by a ratio in (0, 1].
	SafetyMargin float64 `mapstructure:"safety_margin"`

	// Persist saves the window and backoffs to the store so consecutive CLI
	// invocations share one budget.
	Persist bool `mapstructure:"persist"`
}

// ServerConfig contains HTTP gateway configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimit is the inbound requests per second accepted by the gateway.
	// Zero disables the inbound limiter.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	Driver    string `mapstructure:"driver"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	AuthToken string `mapstructure:"auth_token"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`

	// Profile selects the logging complexity level
	// Valid values: SIMPLE, STRUCTURED, ENTERPRISE
	Profile string `mapstructure:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}
