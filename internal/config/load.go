package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mboyd/warden/internal/wlog"
)

// Load reads the configuration from ConfigPath. A missing file yields the
// defaults; a present but unreadable or invalid file is an error.
func Load() (*Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			wlog.Debug("config: %s not found, using defaults", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse unmarshals, defaults, validates, and path-expands a config document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	cfg.PolicyFile = ExpandPath(cfg.PolicyFile)
	cfg.HistoryDB = ExpandPath(cfg.HistoryDB)
	cfg.Log.Path = ExpandPath(cfg.Log.Path)
	return &cfg, nil
}

// Validate checks cross-field constraints after defaulting.
func Validate(cfg *Config) error {
	if cfg.Agent.CommandTimeoutSeconds < 1 {
		return fmt.Errorf("agent.command_timeout_seconds must be at least 1, got %d", cfg.Agent.CommandTimeoutSeconds)
	}
	if cfg.Agent.ExecutionTimeoutMinutes < 1 {
		return fmt.Errorf("agent.execution_timeout_minutes must be at least 1, got %d", cfg.Agent.ExecutionTimeoutMinutes)
	}
	if cfg.Confirm.TTLSeconds < 1 {
		return fmt.Errorf("confirm.ttl_seconds must be at least 1, got %d", cfg.Confirm.TTLSeconds)
	}
	if cfg.Confirm.SweepSeconds < 1 {
		return fmt.Errorf("confirm.sweep_seconds must be at least 1, got %d", cfg.Confirm.SweepSeconds)
	}
	return nil
}

// APIKey resolves the extraction API key from the configured environment
// variable. Empty means extraction is disabled.
func (c *Config) APIKey() string {
	return os.Getenv(c.Extract.APIKeyEnv)
}
