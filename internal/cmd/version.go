package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mboyd/warden/internal/term"
	"github.com/mboyd/warden/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the warden version",
	Run: func(cmd *cobra.Command, args []string) {
		term.Printf("warden %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
