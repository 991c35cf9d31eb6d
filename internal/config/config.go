package config

import "time"

// Config is the complete application configuration, merged from defaults,
// the TOML config file and MYGH_* environment variables, in that order.
//
// Credentials are deliberately absent: the token comes from GITHUB_TOKEN,
// GH_TOKEN or the gh CLI and is never read from or written to this file.
type Config struct {
	OutputFormat      string        `mapstructure:"output-format"`
	DefaultPerPage    int           `mapstructure:"default-per-page"`
	MaxRetries        int           `mapstructure:"max-retries"`
	RequestTimeout    time.Duration `mapstructure:"request-timeout"`
	RequestsPerSecond float64       `mapstructure:"requests-per-second"`
	APIURL            string        `mapstructure:"api-url"`
	Concurrency       int           `mapstructure:"concurrency"`

	Retry   RetryConfig   `mapstructure:"retry"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RetryConfig tunes backoff for transient API failures.
type RetryConfig struct {
	InitialBackoff time.Duration `mapstructure:"initial-backoff"`
	MaxBackoff     time.Duration `mapstructure:"max-backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
	Jitter         float64       `mapstructure:"jitter"`
	// SecondaryDelay applies when a secondary rate limit carries no
	// Retry-After header.
	SecondaryDelay time.Duration `mapstructure:"secondary-delay"`
}

// CacheConfig configures the conditional-request response cache (libsql).
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Driver  string        `mapstructure:"driver"`
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	TTL     time.Duration `mapstructure:"ttl"`

	// AuthToken is for remote libsql URLs and only read from the
	// environment.
	AuthToken string `mapstructure:"auth-token"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}
