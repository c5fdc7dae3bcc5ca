package cmd

import "fmt"

// ExitCodeError carries a specific process exit code through the command
// error path. main inspects it to choose the exit status.
type ExitCodeError struct {
	Code int
	Msg  string
}

func (e *ExitCodeError) Error() string {
	return e.Msg
}

// blockedError returns the exit-code-2 error used when a checked command is
// rejected by policy, so scripts can distinguish "blocked" from "broken".
func blockedError(reason string) error {
	return &ExitCodeError{Code: 2, Msg: fmt.Sprintf("blocked: %s", reason)}
}
