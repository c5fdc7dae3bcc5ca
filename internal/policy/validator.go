package policy

import (
	"fmt"
	"slices"
	"strings"
)

// allowedChars is the full set of characters permitted in a raw command
// string. Everything else, in particular shell metacharacters, is rejected
// before tokenization. This is the primary defense against injection: the
// command text originates from an LLM fed with free-form transcripts.
const allowedChars = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
	"0123456789" +
	"-._/ "

// Result is the outcome of validating one command.
type Result struct {
	Allowed           bool   `json:"allowed"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
	Reason            string `json:"reason"`
}

// Validator checks commands against a set of per-command schemas.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	schemas map[string]Schema
}

// NewValidator creates a validator over the given schemas.
func NewValidator(schemas map[string]Schema) *Validator {
	return &Validator{schemas: schemas}
}

// Validate decides whether cmd may run, may run only after confirmation, or
// is denied. Checks run in a fixed order and short-circuit on first failure:
// character whitelist, tokenization, base-command allowlist, destructive
// subcommands, allowed subcommands, allowed flags.
//
// The destructive check runs before the subcommand allowlist so that a
// destructive subcommand is surfaced as needs-confirmation rather than
// rejected as unlisted. Reordering these checks changes the policy.
func (v *Validator) Validate(cmd string) Result {
	for _, r := range cmd {
		if !strings.ContainsRune(allowedChars, r) {
			return Result{Reason: fmt.Sprintf("blocked character: %q", r)}
		}
	}

	tokens, err := splitTokens(cmd)
	if err != nil {
		return Result{Reason: fmt.Sprintf("parse error: %v", err)}
	}
	if len(tokens) == 0 {
		return Result{Reason: "empty command"}
	}

	base := tokens[0]
	schema, ok := v.schemas[base]
	if !ok {
		return Result{Reason: fmt.Sprintf("unknown command: %s", base)}
	}

	args := tokens[1:]

	for _, arg := range args {
		if slices.Contains(schema.DestructiveSubcommands, arg) {
			return Result{
				Allowed:           true,
				NeedsConfirmation: true,
				Reason:            fmt.Sprintf("destructive subcommand: %s", arg),
			}
		}
	}

	if schema.AllowedSubcommands != nil && len(args) > 0 {
		if !slices.Contains(schema.AllowedSubcommands, args[0]) &&
			!slices.Contains(schema.DestructiveSubcommands, args[0]) {
			return Result{Reason: fmt.Sprintf("subcommand not allowed: %s", args[0])}
		}
	}

	if schema.AllowedFlags != nil {
		for _, arg := range args {
			if strings.HasPrefix(arg, "-") && !slices.Contains(schema.AllowedFlags, arg) {
				return Result{Reason: fmt.Sprintf("flag not allowed: %s", arg)}
			}
		}
	}

	return Result{Allowed: true, Reason: "OK"}
}
