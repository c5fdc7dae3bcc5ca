// Package config provides warden's YAML configuration: the listen address,
// the agent binary and its timeouts, extraction and notification settings,
// and paths to the policy file and history database. It is typically stored
// at ~/.config/warden/config.yaml.
package config

import "time"

// Config is the top-level configuration.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8090".
	Listen string `yaml:"listen,omitempty"`

	Agent   AgentConfig   `yaml:"agent,omitempty"`
	Extract ExtractConfig `yaml:"extract,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
	Confirm ConfirmConfig `yaml:"confirm,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty"`

	// PolicyFile is the path to the command schema policy file.
	// A missing file falls back to the built-in schemas.
	PolicyFile string `yaml:"policy_file,omitempty"`

	// HistoryDB is the path to the sqlite command history database.
	// Empty disables history.
	HistoryDB string `yaml:"history_db,omitempty"`
}

// AgentConfig describes the external agent binary that runs tasks.
type AgentConfig struct {
	Binary                  string `yaml:"binary,omitempty"`
	CommandTimeoutSeconds   int    `yaml:"command_timeout_seconds,omitempty"`
	ExecutionTimeoutMinutes int    `yaml:"execution_timeout_minutes,omitempty"`
}

// ExtractConfig describes the text-generation service used for command
// extraction. The API key is read from the named environment variable, never
// stored in the file.
type ExtractConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Model     string `yaml:"model,omitempty"`
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// NotifyConfig describes operator notifications. An empty To disables them.
type NotifyConfig struct {
	Channel    string `yaml:"channel,omitempty"`
	To         string `yaml:"to,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	OnQuestion *bool  `yaml:"on_question,omitempty"`
	OnComplete *bool  `yaml:"on_complete,omitempty"`
}

// ConfirmConfig tunes the pending-confirmation store.
type ConfirmConfig struct {
	TTLSeconds   int `yaml:"ttl_seconds,omitempty"`
	SweepSeconds int `yaml:"sweep_seconds,omitempty"`
}

// LogConfig controls operational logging.
type LogConfig struct {
	Path  string `yaml:"path,omitempty"`
	Debug bool   `yaml:"debug,omitempty"`
}

// CommandTimeout returns the bound for a single validated command.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Agent.CommandTimeoutSeconds) * time.Second
}

// ExecutionTimeout returns the bound for one multi-step agent invocation and
// for each wait on operator input.
func (c *Config) ExecutionTimeout() time.Duration {
	return time.Duration(c.Agent.ExecutionTimeoutMinutes) * time.Minute
}

// ConfirmTTL returns how long a command stays pending confirmation.
func (c *Config) ConfirmTTL() time.Duration {
	return time.Duration(c.Confirm.TTLSeconds) * time.Second
}

// SweepInterval returns how often expired pending commands are collected.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Confirm.SweepSeconds) * time.Second
}

// NotifyOnQuestion reports whether question notifications are enabled.
func (c *Config) NotifyOnQuestion() bool {
	return c.Notify.OnQuestion == nil || *c.Notify.OnQuestion
}

// NotifyOnComplete reports whether completion notifications are enabled.
func (c *Config) NotifyOnComplete() bool {
	return c.Notify.OnComplete == nil || *c.Notify.OnComplete
}
