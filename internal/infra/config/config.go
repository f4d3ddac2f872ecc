// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Storage   StorageConfig   `yaml:"storage"`
	Content   ContentConfig   `yaml:"content"`
	Identity  IdentityConfig  `yaml:"identity"`
	Payment   PaymentConfig   `yaml:"payment"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Selection SelectionConfig `yaml:"selection"`
	Engine    EngineConfig    `yaml:"engine"`
}

// ServerConfig represents the diagnostics server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info"`
}

// StorageConfig represents local durable storage configuration.
type StorageConfig struct {
	Path string `yaml:"path" default:"kidreel-settings.yaml"`
}

// ContentConfig represents the content listing service configuration.
type ContentConfig struct {
	BaseURL    string `yaml:"base_url" validate:"required,url"`
	TimeoutSec int    `yaml:"timeout_sec" default:"15" validate:"gte=1,lte=120"`
}

// Timeout returns the listing request timeout.
func (c ContentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// IdentityConfig represents the identity provider configuration.
type IdentityConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	APIKey  string `yaml:"api_key" validate:"required"`
}

// PaymentConfig represents the payment processor configuration.
type PaymentConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	LoadTimeoutSec int `yaml:"load_timeout_sec" default:"12" validate:"gte=1,lte=120"`
	MaxRetries     int `yaml:"max_retries" default:"3" validate:"gte=1,lte=10"`
}

// LoadTimeout returns the media load timeout.
func (c PlaybackConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSec) * time.Second
}

// SelectionConfig represents the free-tier selection gate configuration.
type SelectionConfig struct {
	FreeLimit int `yaml:"free_limit" default:"5" validate:"gte=1"`
}

// EngineConfig represents the media engine configuration.
// Settings are engine-specific and decoded by the engine factory.
type EngineConfig struct {
	Type     string         `yaml:"type" default:"sim"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("KIDREEL_IDENTITY_API_KEY"); v != "" {
		c.Identity.APIKey = v
	}
	if v := os.Getenv("KIDREEL_CONTENT_BASE_URL"); v != "" {
		c.Content.BaseURL = v
	}
	if v := os.Getenv("KIDREEL_PAYMENT_BASE_URL"); v != "" {
		c.Payment.BaseURL = v
	}
	if v := os.Getenv("KIDREEL_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
