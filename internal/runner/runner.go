// Package runner invokes the external agent binary that actually performs
// work on the server. The agent receives a single text message and replies
// on stdout; warden never shells out directly.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// MaxOutput is the cap on captured stdout/stderr, in bytes. Oversized output
// is truncated with a marker reporting the original size, which helps the
// operator see how much was cut.
const MaxOutput = 100_000

// DefaultCommandTimeout bounds a single validated command.
const DefaultCommandTimeout = 30 * time.Second

// ErrUnavailable indicates the agent binary is not installed or not on PATH.
var ErrUnavailable = errors.New("agent binary not available")

// TimeoutError indicates the agent was killed for exceeding its deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent timed out after %s", e.Timeout)
}

// ExitError indicates the agent exited non-zero. Stderr is size-capped.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("agent exited %d: %s", e.ExitCode, e.Stderr)
}

// Runner executes the agent binary.
type Runner struct {
	// Binary is the agent executable name or path.
	Binary string

	// MaxOutput caps captured output. Defaults to MaxOutput.
	MaxOutput int
}

// New creates a runner for the given agent binary.
func New(binary string) *Runner {
	return &Runner{Binary: binary, MaxOutput: MaxOutput}
}

// Run sends one message to the agent and returns its stdout, capped.
// The timeout bounds the whole invocation; on expiry the subprocess is
// killed and a TimeoutError is returned. A missing binary is reported as
// ErrUnavailable, a non-zero exit as ExitError.
func (r *Runner) Run(ctx context.Context, message string, timeout time.Duration) (string, error) {
	return r.invoke(ctx, timeout, "agent", "--message", message)
}

// Deliver pushes a message to the operator through the agent's delivery
// channel (e.g. whatsapp). Used by the notifier.
func (r *Runner) Deliver(ctx context.Context, channel, to, message string) error {
	_, err := r.invoke(ctx, DefaultCommandTimeout,
		"agent", "--message", message, "--deliver", "--channel", channel, "--to", to)
	return err
}

func (r *Runner) invoke(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// The context expiring kills the subprocess; report that as a
		// timeout rather than the opaque "signal: killed" exit error.
		if ctx.Err() == context.DeadlineExceeded {
			return "", &TimeoutError{Timeout: timeout}
		}
		if ctx.Err() == context.Canceled {
			return "", ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ExitError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   r.truncate(stderr.String()),
			}
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrUnavailable, r.Binary)
		}
		return "", fmt.Errorf("run agent: %w", err)
	}

	return r.truncate(stdout.String()), nil
}

// truncate caps s at MaxOutput bytes, appending a marker with the original
// size when anything was cut.
func (r *Runner) truncate(s string) string {
	limit := r.MaxOutput
	if limit <= 0 {
		limit = MaxOutput
	}
	if len(s) <= limit {
		return s
	}
	return fmt.Sprintf("%s\n... (truncated, total %d bytes)", s[:limit], len(s))
}
