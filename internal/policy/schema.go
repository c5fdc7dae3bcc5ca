// Package policy implements allowlist-based validation of shell commands
// extracted from operator speech. Commands are opt-in: anything not covered
// by a schema is denied.
package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema describes the policy for a single base command.
// A nil AllowedSubcommands or AllowedFlags slice means the schema does not
// constrain that dimension; an empty slice means nothing is allowed.
type Schema struct {
	// AllowedFlags lists flags permitted for this command.
	// Matching is exact: "--color" does not admit "--color=always".
	AllowedFlags []string `yaml:"allowed_flags,omitempty"`

	// AllowedSubcommands lists permitted first arguments.
	AllowedSubcommands []string `yaml:"allowed_subcommands,omitempty"`

	// DestructiveSubcommands lists subcommands that are permitted only
	// after explicit human confirmation.
	DestructiveSubcommands []string `yaml:"destructive_subcommands,omitempty"`
}

// SchemaFile is the YAML schema for a policy file.
type SchemaFile struct {
	Commands map[string]Schema `yaml:"commands"`
}

// DefaultSchemas returns the built-in command policies. These cover the
// read-only diagnostics an operator typically asks for, plus the service and
// container operations that require confirmation before running.
func DefaultSchemas() map[string]Schema {
	return map[string]Schema{
		"ls":   {AllowedFlags: []string{"-l", "-a", "-h", "-la", "-lah"}},
		"df":   {AllowedFlags: []string{"-h"}},
		"free": {AllowedFlags: []string{"-h", "-m", "-g"}},
		"top":  {AllowedFlags: []string{"-b", "-n"}},
		"ps":   {AllowedFlags: []string{"aux", "-ef", "-e"}},
		"systemctl": {
			AllowedSubcommands:     []string{"status"},
			DestructiveSubcommands: []string{"restart", "stop", "start"},
		},
		"docker": {
			AllowedSubcommands:     []string{"ps", "images", "stats", "logs"},
			DestructiveSubcommands: []string{"rm", "stop", "kill"},
		},
	}
}

// LoadSchemas reads command schemas from a YAML policy file.
// A missing file falls back to DefaultSchemas; a present but malformed or
// empty file is an error, since silently reverting to defaults could widen
// the policy the operator thought was in force.
func LoadSchemas(path string) (map[string]Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultSchemas(), nil
		}
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var file SchemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if len(file.Commands) == 0 {
		return nil, fmt.Errorf("policy file %s defines no commands", path)
	}
	return file.Commands, nil
}
