package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mboyd/warden/internal/config"
	"github.com/mboyd/warden/internal/extract"
	"github.com/mboyd/warden/internal/policy"
	"github.com/mboyd/warden/internal/prompt"
	"github.com/mboyd/warden/internal/runner"
	"github.com/mboyd/warden/internal/term"
)

var (
	checkTranscript string
	checkRun        bool
	checkYes        bool
)

// Interactive prompts used by check. Variables so tests can substitute the
// mock implementations from internal/prompt.
var (
	newYesNoPrompter = func() prompt.YesNoPrompter {
		return prompt.NewStdinYesNoPrompter(os.Stdin, term.Stdout())
	}
	newCredentialReader = func() prompt.CredentialReader {
		return prompt.NewTerminalCredentialReader(os.Stdin, term.Stderr())
	}
)

var checkCmd = &cobra.Command{
	Use:   "check [command...]",
	Short: "Check a command against the policy",
	Long: `Check a command against the policy without going through the server.

The command is given directly as arguments, or extracted from a transcript
with --transcript. With --run, an allowed command is executed through the
agent; destructive commands prompt for confirmation first.

Exit codes: 0 allowed, 2 blocked by policy, 1 on other errors.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkTranscript, "transcript", "", "extract the command from a transcript instead of arguments")
	checkCmd.Flags().BoolVar(&checkRun, "run", false, "execute the command through the agent if allowed")
	checkCmd.Flags().BoolVar(&checkYes, "yes", false, "skip the confirmation prompt for destructive commands")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	command := strings.TrimSpace(strings.Join(args, " "))
	if checkTranscript != "" {
		if command != "" {
			return fmt.Errorf("give a command or --transcript, not both")
		}
		command, err = extractCommand(cfg, checkTranscript)
		if err != nil {
			return err
		}
		if command == "" {
			term.Println("No server command detected in the transcript.")
			return nil
		}
		term.Printf("Extracted command: %s\n", command)
	}
	if command == "" {
		return fmt.Errorf("no command given; pass a command or --transcript")
	}

	schemas, err := policy.LoadSchemas(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}

	result := policy.NewValidator(schemas).Validate(command)
	if !result.Allowed {
		term.Error("%s", result.Reason)
		return blockedError(result.Reason)
	}

	if result.NeedsConfirmation {
		term.Printf("Allowed, requires confirmation: %s\n", result.Reason)
	} else {
		term.Println("Allowed")
	}

	if !checkRun {
		return nil
	}

	if result.NeedsConfirmation && !checkYes {
		ok, err := newYesNoPrompter().PromptYesNo(fmt.Sprintf("Run %q? [y/N]: ", command), false)
		if err != nil {
			return err
		}
		if !ok {
			term.Println("Aborted")
			return nil
		}
	}

	agent := runner.New(cfg.Agent.Binary)
	output, err := agent.Run(cmd.Context(), command, cfg.CommandTimeout())
	if err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	term.Println(output)
	return nil
}

// extractCommand runs transcript extraction, prompting for the API key with
// hidden input when the configured environment variable is not set.
func extractCommand(cfg *config.Config, transcript string) (string, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		key, err := newCredentialReader().ReadCredential(fmt.Sprintf("%s is not set. API key: ", cfg.Extract.APIKeyEnv))
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		apiKey = strings.TrimSpace(key)
		if apiKey == "" {
			return "", fmt.Errorf("no API key provided")
		}
	}

	client := extract.New(cfg.Extract.Endpoint, apiKey, cfg.Extract.Model)
	command, ok := client.Command(context.Background(), transcript)
	if !ok {
		return "", nil
	}
	return command, nil
}
