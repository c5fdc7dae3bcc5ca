package protocol

import (
	"strings"
	"testing"
)

func TestBuildInstruction(t *testing.T) {
	got := BuildInstruction([]string{"docker ps", "df -h"}, nil)

	if !strings.Contains(got, "docker ps\ndf -h") {
		t.Error("instruction should embed the command plan")
	}
	if !strings.Contains(got, "<<<NEED_INPUT>>>") || !strings.Contains(got, "<<<END_INPUT>>>") {
		t.Error("instruction should describe the sentinel format")
	}
	if !strings.Contains(got, "Previous answers from user (if any):\nNone") {
		t.Error("instruction with no answers should say None")
	}
}

func TestBuildInstruction_IncludesAnswerHistory(t *testing.T) {
	answers := []Answer{
		{Question: "Which container?", Answer: "the nginx one"},
		{Question: "Force remove?", Answer: "no"},
	}
	got := BuildInstruction([]string{"docker rm nginx"}, answers)

	if !strings.Contains(got, "Q: Which container?\nA: the nginx one") {
		t.Error("instruction should embed first answer")
	}
	if !strings.Contains(got, "Q: Force remove?\nA: no") {
		t.Error("instruction should embed second answer")
	}
}

func TestParseOutput_NeedsInput(t *testing.T) {
	raw := `Started working on the plan.
<<<NEED_INPUT>>>
Which database should I back up?
<<<CONTEXT>>>
Two databases are running: app_prod and app_staging.
The plan only says "back up the database".
<<<END_INPUT>>>`

	got := ParseOutput(raw)
	if got.Status != StatusNeedsInput {
		t.Fatalf("Status = %q, want %q", got.Status, StatusNeedsInput)
	}
	if got.Question != "Which database should I back up?" {
		t.Errorf("Question = %q", got.Question)
	}
	want := "Two databases are running: app_prod and app_staging.\nThe plan only says \"back up the database\"."
	if got.Context != want {
		t.Errorf("Context = %q, want %q", got.Context, want)
	}
}

func TestParseOutput_Complete(t *testing.T) {
	raw := "All three services restarted cleanly.\nDisk usage is at 42%."

	got := ParseOutput(raw)
	if got.Status != StatusComplete {
		t.Fatalf("Status = %q, want %q", got.Status, StatusComplete)
	}
	if got.Output != raw {
		t.Errorf("Output = %q, want raw text unchanged", got.Output)
	}
}

// A malformed block (any marker missing or out of order) must be treated as
// completion text, never as a pause.
func TestParseOutput_PartialSentinelIsComplete(t *testing.T) {
	inputs := []string{
		"<<<NEED_INPUT>>>\nquestion with no other markers",
		"<<<NEED_INPUT>>>\nquestion\n<<<CONTEXT>>>\ncontext but no end",
		"<<<CONTEXT>>>\ncontext\n<<<NEED_INPUT>>>\nquestion\n<<<END_INPUT>>>",
		"<<<END_INPUT>>>",
	}

	for _, raw := range inputs {
		got := ParseOutput(raw)
		if got.Status != StatusComplete {
			t.Errorf("ParseOutput(%q).Status = %q, want complete", raw, got.Status)
		}
		if got.Output != raw {
			t.Errorf("ParseOutput(%q) should keep raw text as output", raw)
		}
	}
}

func TestParseOutput_BlockEmbeddedInOtherText(t *testing.T) {
	raw := "preamble\n<<<NEED_INPUT>>> Proceed with reboot? <<<CONTEXT>>> Kernel update staged. <<<END_INPUT>>>\ntrailer"

	got := ParseOutput(raw)
	if got.Status != StatusNeedsInput {
		t.Fatalf("Status = %q, want needs_input", got.Status)
	}
	if got.Question != "Proceed with reboot?" {
		t.Errorf("Question = %q", got.Question)
	}
	if got.Context != "Kernel update staged." {
		t.Errorf("Context = %q", got.Context)
	}
}
