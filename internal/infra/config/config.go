// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Playback PlaybackConfig `yaml:"playback"`
	Messages MessagesConfig `yaml:"messages"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// CatalogConfig represents the catalog backend configuration.
type CatalogConfig struct {
	Type     string         `yaml:"type" default:"sqlite" validate:"required"`
	Settings map[string]any `yaml:"settings" validate:"required"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	// OfflineDefault starts the engine in offline mode: exhausted
	// rounds reshuffle the loaded list instead of re-fetching.
	OfflineDefault bool `yaml:"offline_default"`
}

// MessagesConfig represents the user-facing status messages.
type MessagesConfig struct {
	FetchFailed          string `yaml:"fetch_failed" default:"Couldn't reach the catalog. Keeping what was already loaded."`
	NothingMatched       string `yaml:"nothing_matched" default:"Nothing matched those filters."`
	EventFiltersRequired string `yaml:"event_filters_required" default:"Pick a city and a genre to narrow that date down."`
	DefaultError         string `yaml:"default_error" default:"Something went wrong."`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Output string `yaml:"output" default:"stdout"`
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
	if v := os.Getenv("CATALOG_DSN"); v != "" {
		if c.Catalog.Settings == nil {
			c.Catalog.Settings = make(map[string]any)
		}
		c.Catalog.Settings["dsn"] = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
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

// GetMessage returns the message for the given status code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "fetch_failed":
		return c.Messages.FetchFailed
	case "nothing_matched":
		return c.Messages.NothingMatched
	case "event_filters_required":
		return c.Messages.EventFiltersRequired
	default:
		return c.Messages.DefaultError
	}
}
