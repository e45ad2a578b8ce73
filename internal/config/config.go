// Package config holds the foodbridge client configuration: remote service
// endpoint, UI preferences and logging. The config lives as a YAML file
// under the state directory (~/.foodbridge) and can be overridden by
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all foodbridge configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// API configures the remote record-keeping service.
	API APIConfig `yaml:"api"`

	// UI configures the interactive dashboard.
	UI UIConfig `yaml:"ui"`

	// Logging configures the categorized file logger.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the remote service connection.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// UIConfig configures the dashboard.
type UIConfig struct {
	Theme    string `yaml:"theme"`     // auto, light, dark
	PageSize int    `yaml:"page_size"` // donations per page, 9/18/27
}

// LoggingConfig configures the file logger. When DebugMode is false no
// logs are written at all.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories,omitempty"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "foodbridge",
		Version: "1.0.0",

		API: APIConfig{
			BaseURL: "http://localhost:8080/api",
			Timeout: "30s",
		},

		UI: UIConfig{
			Theme:    "auto",
			PageSize: 9,
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// StateDir returns the foodbridge state directory (~/.foodbridge),
// creating it if necessary.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".foodbridge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create state directory: %w", err)
	}
	return dir, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FOODBRIDGE_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("FOODBRIDGE_API_TIMEOUT"); v != "" {
		c.API.Timeout = v
	}
	if v := os.Getenv("FOODBRIDGE_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("FOODBRIDGE_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// Validate checks the configuration for values that would break at runtime.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if _, err := time.ParseDuration(c.API.Timeout); err != nil {
		return fmt.Errorf("api.timeout invalid: %w", err)
	}
	switch c.UI.Theme {
	case "auto", "light", "dark":
	default:
		return fmt.Errorf("ui.theme must be auto, light or dark, got %q", c.UI.Theme)
	}
	if c.UI.PageSize <= 0 {
		return fmt.Errorf("ui.page_size must be positive, got %d", c.UI.PageSize)
	}
	return nil
}

// APITimeout returns the parsed request timeout, falling back to 30s.
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
