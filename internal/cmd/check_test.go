package cmd

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mboyd/warden/internal/prompt"
	"github.com/mboyd/warden/internal/term"
)

// runCheckCommand executes "warden check" with the given args against the
// default config and policy, capturing user-facing output.
func runCheckCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Point at a nonexistent config so the defaults are used.
	configPath = filepath.Join(t.TempDir(), "missing.yaml")
	t.Cleanup(func() {
		configPath = ""
		checkTranscript = ""
		checkRun = false
		checkYes = false
	})

	var out bytes.Buffer
	term.SetOutput(&out)
	term.SetErrOutput(&out)
	t.Cleanup(term.Reset)

	cmd := rootCmd
	var cobraOut bytes.Buffer
	cmd.SetOut(&cobraOut)
	cmd.SetErr(&cobraOut)
	cmd.SetArgs(append([]string{"check"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestCheckCommand_Allowed(t *testing.T) {
	out, err := runCheckCommand(t, "df", "-h")
	if err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out, "Allowed") {
		t.Errorf("output = %q, want Allowed", out)
	}
}

func TestCheckCommand_NeedsConfirmation(t *testing.T) {
	out, err := runCheckCommand(t, "docker", "stop", "abc123")
	if err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out, "requires confirmation") {
		t.Errorf("output = %q, want confirmation notice", out)
	}
}

func TestCheckCommand_Blocked(t *testing.T) {
	out, err := runCheckCommand(t, "rm", "-rf", "/tmp")
	if err == nil {
		t.Fatal("expected error for blocked command")
	}

	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %T, want *ExitCodeError", err)
	}
	if exitErr.Code != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.Code)
	}
	if !strings.Contains(out, "unknown command: rm") {
		t.Errorf("output = %q, want block reason", out)
	}
}

func TestCheckCommand_RunDeclined(t *testing.T) {
	mock := prompt.NewMockYesNoPrompter(false)
	orig := newYesNoPrompter
	newYesNoPrompter = func() prompt.YesNoPrompter { return mock }
	t.Cleanup(func() { newYesNoPrompter = orig })

	out, err := runCheckCommand(t, "--run", "docker", "stop", "abc123")
	if err != nil {
		t.Fatalf("check returned error: %v", err)
	}
	if !strings.Contains(out, "Aborted") {
		t.Errorf("output = %q, want Aborted", out)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("prompter called %d times, want 1", len(mock.Calls))
	}
	if !strings.Contains(mock.Calls[0].Prompt, "docker stop abc123") {
		t.Errorf("prompt = %q, want it to name the command", mock.Calls[0].Prompt)
	}
	if mock.Calls[0].DefaultYes {
		t.Error("destructive confirmation must default to no")
	}
}

func TestCheckCommand_TranscriptPromptsForAPIKey(t *testing.T) {
	mock := prompt.NewMockCredentialReader() // no credentials configured
	orig := newCredentialReader
	newCredentialReader = func() prompt.CredentialReader { return mock }
	t.Cleanup(func() { newCredentialReader = orig })
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := runCheckCommand(t, "--transcript", "show disk usage")
	if err == nil {
		t.Fatal("expected error when no API key is provided")
	}
	if !strings.Contains(err.Error(), "no API key provided") {
		t.Errorf("error = %v", err)
	}

	if len(mock.Calls) != 1 {
		t.Fatalf("credential reader called %d times, want 1", len(mock.Calls))
	}
	if !strings.Contains(mock.Calls[0], "ANTHROPIC_API_KEY") {
		t.Errorf("prompt = %q, want it to name the env var", mock.Calls[0])
	}
}

func TestCheckCommand_NoCommand(t *testing.T) {
	_, err := runCheckCommand(t)
	if err == nil {
		t.Fatal("expected error when no command is given")
	}
	if !strings.Contains(err.Error(), "no command given") {
		t.Errorf("error = %v", err)
	}
}
