package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds polling API connection details
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// AuthConfig holds the access token used for voting
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// FilterConfig contains named poll filter expressions
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// WatchConfig contains settings for the watch command
type WatchConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Concurrency int           `mapstructure:"concurrency"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
