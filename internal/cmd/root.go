// Package cmd implements the CLI commands for warden.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mboyd/warden/internal/config"
	"github.com/mboyd/warden/internal/term"
	"github.com/mboyd/warden/internal/version"
)

var (
	configPath string
	silent     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Voice-driven server command orchestrator",
	Long: `Warden turns conversational requests into validated server commands.

It extracts commands from transcripts, checks them against a per-command
policy of allowed flags and subcommands, holds destructive commands until the
operator confirms, and runs approved commands through an external agent.
Long-running tasks execute in the background and can pause mid-task to ask
the operator a question.`,
	Version: version.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		term.SetSilent(silent)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.config/warden/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&silent, "silent", false, "suppress normal output")
}

// Execute runs the root command and returns any error.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the configuration from --config or the default path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}
