package policy

import (
	"errors"
	"strings"
)

// ErrUnclosedQuote indicates a command string with an unterminated quote.
var ErrUnclosedQuote = errors.New("unclosed quote in command")

// splitTokens performs shell-style word splitting: whitespace separates
// tokens, single and double quotes group words, backslash escapes the next
// character outside single quotes. It does no expansion of any kind.
func splitTokens(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inToken := false

	const (
		stateBare = iota
		stateSingle
		stateDouble
	)
	state := stateBare
	escaped := false

	for _, r := range s {
		if escaped {
			cur.WriteRune(r)
			escaped = false
			continue
		}

		switch state {
		case stateBare:
			switch {
			case r == '\\':
				escaped = true
				inToken = true
			case r == '\'':
				state = stateSingle
				inToken = true
			case r == '"':
				state = stateDouble
				inToken = true
			case r == ' ' || r == '\t' || r == '\n':
				if inToken {
					tokens = append(tokens, cur.String())
					cur.Reset()
					inToken = false
				}
			default:
				cur.WriteRune(r)
				inToken = true
			}
		case stateSingle:
			if r == '\'' {
				state = stateBare
			} else {
				cur.WriteRune(r)
			}
		case stateDouble:
			switch r {
			case '"':
				state = stateBare
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		}
	}

	if escaped || state != stateBare {
		return nil, ErrUnclosedQuote
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}
