package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mboyd/warden/internal/protocol"
	"github.com/mboyd/warden/internal/runner"
	"github.com/mboyd/warden/internal/wlog"
)

// ErrNotFound indicates an unknown or already-discarded session id.
var ErrNotFound = errors.New("session not found")

// NotWaitingError indicates an answer was submitted to a session that is not
// waiting for input. The session is left unchanged.
type NotWaitingError struct {
	State State
}

func (e *NotWaitingError) Error() string {
	return fmt.Sprintf("session is %s, not waiting for input", e.State)
}

// TaskRunner is the external agent collaborator. Implementations must kill
// any subprocess when ctx is canceled or the timeout expires.
type TaskRunner interface {
	Run(ctx context.Context, message string, timeout time.Duration) (string, error)
}

// Notifier pushes questions and completion summaries to the operator.
// Delivery failures must be handled internally; the engine never checks them.
type Notifier interface {
	Question(sessionID, question, questionContext string)
	Completion(sessionID, summary string)
}

// Engine orchestrates background execution sessions.
type Engine struct {
	runner    TaskRunner
	notifier  Notifier // may be nil
	timeout   time.Duration
	reg       *registry
	wg        sync.WaitGroup
	retention time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithRetention overrides how long finished sessions remain queryable.
func WithRetention(d time.Duration) Option {
	return func(e *Engine) { e.retention = d }
}

// New creates an engine. The timeout bounds each agent invocation and each
// wait for operator input; notifier may be nil to disable notifications.
func New(tr TaskRunner, notifier Notifier, timeout time.Duration, opts ...Option) *Engine {
	e := &Engine{
		runner:    tr,
		notifier:  notifier,
		timeout:   timeout,
		retention: DefaultRetention,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reg = newRegistry(e.retention)
	return e
}

// Start registers a new session and launches its run loop in the background.
// It returns the generated session id immediately. The run loop stops at its
// next suspension point when ctx is canceled.
func (e *Engine) Start(ctx context.Context, commands []string, transcript string) string {
	x := newExecution(commands, transcript)
	en := e.reg.add(x)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(ctx, en)
	}()

	return x.sessionID
}

// Snapshot returns a copy of the session's current state.
func (e *Engine) Snapshot(sessionID string) (Snapshot, error) {
	en, ok := e.reg.lookup(sessionID)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return en.exec.snapshot(), nil
}

// SubmitAnswer records the operator's answer for a waiting session and
// raises its resume gate. It never blocks. Answering an unknown session or
// one that is not waiting for input is a caller error; no state is mutated.
func (e *Engine) SubmitAnswer(sessionID, answer string) error {
	en, ok := e.reg.lookup(sessionID)
	if !ok {
		return ErrNotFound
	}

	state, accepted := en.exec.recordAnswer(answer)
	if !accepted {
		return &NotWaitingError{State: state}
	}

	en.signal()
	wlog.Debug("engine: session %s answer recorded, resume signaled", sessionID)
	return nil
}

// Wait blocks until all run loops have finished. Intended for shutdown,
// after the context passed to Start has been canceled.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Live returns the number of sessions currently in the registry, including
// finished sessions inside their retention window.
func (e *Engine) Live() int {
	return e.reg.len()
}

// run drives one session to a terminal state. Steps within the session are
// strictly sequential; the agent is never invoked twice concurrently for the
// same session.
func (e *Engine) run(ctx context.Context, en *entry) {
	x := en.exec
	defer e.reg.scheduleRemoval(x.sessionID)

	for {
		x.setRunning()

		commands, answers := x.instructionInput()
		instruction := protocol.BuildInstruction(commands, answers)

		output, err := e.runner.Run(ctx, instruction, e.timeout)
		if err != nil {
			x.fail(failureMessage(err))
			wlog.Warn("engine: session %s failed: %s", x.sessionID, failureMessage(err))
			return
		}

		parsed := protocol.ParseOutput(output)
		if parsed.Status == protocol.StatusComplete {
			x.complete(parsed.Output)
			wlog.Info("engine: session %s completed", x.sessionID)
			if e.notifier != nil {
				e.notifier.Completion(x.sessionID, parsed.Output)
			}
			return
		}

		x.setWaiting(parsed.Question, parsed.Context)
		wlog.Info("engine: session %s waiting for input: %s", x.sessionID, parsed.Question)
		if e.notifier != nil && strings.TrimSpace(parsed.Question) != "" {
			e.notifier.Question(x.sessionID, parsed.Question, parsed.Context)
		}

		waitTimer := time.NewTimer(e.timeout)
		select {
		case <-en.gate:
			// Receiving consumed the signal; the gate is clear for the
			// next pause. The answer was already appended by SubmitAnswer.
			waitTimer.Stop()
		case <-waitTimer.C:
			x.fail(fmt.Sprintf("timed out waiting for user input (%s)", e.timeout))
			return
		case <-ctx.Done():
			waitTimer.Stop()
			x.fail("canceled during shutdown")
			return
		}
	}
}

// failureMessage maps runner errors to the operator-facing failure text.
func failureMessage(err error) string {
	var timeoutErr *runner.TimeoutError
	var exitErr *runner.ExitError
	switch {
	case errors.Is(err, runner.ErrUnavailable):
		return "agent service is unavailable"
	case errors.As(err, &timeoutErr):
		return timeoutErr.Error()
	case errors.As(err, &exitErr):
		return exitErr.Error()
	case errors.Is(err, context.Canceled):
		return "canceled during shutdown"
	default:
		return err.Error()
	}
}
