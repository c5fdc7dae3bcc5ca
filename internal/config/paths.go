package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigPath returns the config file path. The WARDEN_CONFIG environment
// variable overrides the default ~/.config/warden/config.yaml.
func ConfigPath() string {
	if custom := os.Getenv("WARDEN_CONFIG"); custom != "" {
		return ExpandPath(custom)
	}
	return filepath.Join(configDir(), "config.yaml")
}

// PolicyPath returns the default command policy file path.
func PolicyPath() string {
	return filepath.Join(configDir(), "policy.yaml")
}

// HistoryPath returns the default history database path, following XDG
// state conventions.
func HistoryPath() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		stateDir = filepath.Join(home(), ".local", "state")
	}
	return filepath.Join(stateDir, "warden", "history.db")
}

func configDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home(), ".config")
	}
	return filepath.Join(configHome, "warden")
}

func home() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" {
		return home()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home(), path[2:])
	}
	return path
}
