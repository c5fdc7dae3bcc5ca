// Package protocol encodes multi-command tasks as instructions for the
// external agent and decodes the agent's raw output into either a pause
// (needs input) or a completion.
package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Answer records one question the agent asked and the operator's reply.
type Answer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Status discriminates the two shapes of parsed agent output.
type Status string

// Parse outcomes.
const (
	StatusNeedsInput Status = "needs_input"
	StatusComplete   Status = "complete"
)

// Parsed is the decoded form of one agent invocation's output.
type Parsed struct {
	Status Status

	// Question and Context are set when Status is StatusNeedsInput.
	Question string
	Context  string

	// Output is the full raw text when Status is StatusComplete.
	Output string
}

// instructionTemplate tells the agent to emit the sentinel block instead of
// guessing when it needs a decision from the operator. The marker strings are
// a wire format shared with the agent side; do not change them.
const instructionTemplate = `Execute the following plan on the server. If at any point you need clarification,
additional information, or a decision from the user, STOP and output exactly this format:

<<<NEED_INPUT>>>
Your question here
<<<CONTEXT>>>
Brief description of what you were doing and why you need input
<<<END_INPUT>>>

Do NOT guess or assume. Wait for the user's response before continuing.

Plan to execute:
%s

Previous answers from user (if any):
%s
`

// needInputPattern matches a complete four-marker sentinel block. (?s) lets
// question and context span lines; the non-greedy groups stop at the next
// marker. Partial blocks (any marker missing or out of order) do not match
// and the whole output is treated as completion text.
var needInputPattern = regexp.MustCompile(
	`(?s)<<<NEED_INPUT>>>\s*(.+?)\s*<<<CONTEXT>>>\s*(.+?)\s*<<<END_INPUT>>>`)

// BuildInstruction renders the agent instruction for one run-loop iteration.
// The full prior question/answer history is embedded so the agent keeps
// cumulative context across pauses.
func BuildInstruction(commands []string, answers []Answer) string {
	prev := "None"
	if len(answers) > 0 {
		var b strings.Builder
		for i, a := range answers {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "Q: %s\nA: %s", a.Question, a.Answer)
		}
		prev = b.String()
	}
	return fmt.Sprintf(instructionTemplate, strings.Join(commands, "\n"), prev)
}

// ParseOutput decodes raw agent output. A well-formed sentinel block yields
// a needs-input result with trimmed question and context; anything else is a
// completion whose output is the raw text unchanged.
func ParseOutput(raw string) Parsed {
	if m := needInputPattern.FindStringSubmatch(raw); m != nil {
		return Parsed{
			Status:   StatusNeedsInput,
			Question: strings.TrimSpace(m[1]),
			Context:  strings.TrimSpace(m[2]),
		}
	}
	return Parsed{Status: StatusComplete, Output: raw}
}
