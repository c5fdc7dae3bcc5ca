package config

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// Default returns a Config with all defaults populated. The timeouts mirror
// the deployed service: 30s for a single validated command, 60 minutes for a
// multi-step run or a wait on operator input, 120s confirmation TTL swept
// every 60s.
func Default() *Config {
	return &Config{
		Listen: ":8090",
		Agent: AgentConfig{
			Binary:                  "moltbot",
			CommandTimeoutSeconds:   30,
			ExecutionTimeoutMinutes: 60,
		},
		Extract: ExtractConfig{
			Model:     "claude-sonnet-4-20250514",
			APIKeyEnv: "ANTHROPIC_API_KEY",
		},
		Notify: NotifyConfig{
			Channel:    "whatsapp",
			BaseURL:    "http://localhost:3000",
			OnQuestion: boolPtr(true),
			OnComplete: boolPtr(true),
		},
		Confirm: ConfirmConfig{
			TTLSeconds:   120,
			SweepSeconds: 60,
		},
		PolicyFile: PolicyPath(),
		HistoryDB:  HistoryPath(),
	}
}

// applyDefaults fills zero-valued fields of cfg from Default.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Listen == "" {
		cfg.Listen = def.Listen
	}
	if cfg.Agent.Binary == "" {
		cfg.Agent.Binary = def.Agent.Binary
	}
	if cfg.Agent.CommandTimeoutSeconds == 0 {
		cfg.Agent.CommandTimeoutSeconds = def.Agent.CommandTimeoutSeconds
	}
	if cfg.Agent.ExecutionTimeoutMinutes == 0 {
		cfg.Agent.ExecutionTimeoutMinutes = def.Agent.ExecutionTimeoutMinutes
	}
	if cfg.Extract.Endpoint == "" {
		cfg.Extract.Endpoint = def.Extract.Endpoint
	}
	if cfg.Extract.Model == "" {
		cfg.Extract.Model = def.Extract.Model
	}
	if cfg.Extract.APIKeyEnv == "" {
		cfg.Extract.APIKeyEnv = def.Extract.APIKeyEnv
	}
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = def.Notify.Channel
	}
	if cfg.Notify.BaseURL == "" {
		cfg.Notify.BaseURL = def.Notify.BaseURL
	}
	if cfg.Notify.OnQuestion == nil {
		cfg.Notify.OnQuestion = def.Notify.OnQuestion
	}
	if cfg.Notify.OnComplete == nil {
		cfg.Notify.OnComplete = def.Notify.OnComplete
	}
	if cfg.Confirm.TTLSeconds == 0 {
		cfg.Confirm.TTLSeconds = def.Confirm.TTLSeconds
	}
	if cfg.Confirm.SweepSeconds == 0 {
		cfg.Confirm.SweepSeconds = def.Confirm.SweepSeconds
	}
	if cfg.PolicyFile == "" {
		cfg.PolicyFile = def.PolicyFile
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = def.HistoryDB
	}
}
