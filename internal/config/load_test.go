package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Listen != ":8090" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
	if cfg.Agent.Binary != "moltbot" {
		t.Errorf("Agent.Binary = %q, want moltbot", cfg.Agent.Binary)
	}
	if !cfg.NotifyOnQuestion() || !cfg.NotifyOnComplete() {
		t.Error("notifications should default to enabled")
	}
}

func TestLoadFile_OverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `listen: ":9000"
agent:
  binary: otherbot
  execution_timeout_minutes: 5
notify:
  to: "+15551234"
  on_complete: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Agent.Binary != "otherbot" {
		t.Errorf("Agent.Binary = %q", cfg.Agent.Binary)
	}
	if cfg.ExecutionTimeout() != 5*time.Minute {
		t.Errorf("ExecutionTimeout() = %s, want 5m", cfg.ExecutionTimeout())
	}
	// Unset fields fall back to defaults.
	if cfg.CommandTimeout() != 30*time.Second {
		t.Errorf("CommandTimeout() = %s, want 30s", cfg.CommandTimeout())
	}
	if cfg.ConfirmTTL() != 120*time.Second {
		t.Errorf("ConfirmTTL() = %s, want 120s", cfg.ConfirmTTL())
	}
	// Explicit false is preserved, not re-defaulted to true.
	if cfg.NotifyOnComplete() {
		t.Error("on_complete: false should be preserved")
	}
	if !cfg.NotifyOnQuestion() {
		t.Error("on_question should default to true")
	}
}

func TestParse_RejectsBadTimeout(t *testing.T) {
	_, err := Parse([]byte("agent:\n  execution_timeout_minutes: -2\n"))
	if err == nil || !strings.Contains(err.Error(), "execution_timeout_minutes") {
		t.Errorf("Parse() error = %v, want execution timeout validation error", err)
	}
}

func TestParse_RejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("listen: [unclosed")); err == nil {
		t.Error("malformed YAML should be an error")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := ExpandPath("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("ExpandPath(~/x/y) = %q", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %q", got)
	}
}

func TestConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("WARDEN_CONFIG", "/tmp/custom.yaml")
	if got := ConfigPath(); got != "/tmp/custom.yaml" {
		t.Errorf("ConfigPath() = %q, want env override", got)
	}
}
