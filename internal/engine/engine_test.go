package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mboyd/warden/internal/runner"
	"github.com/mboyd/warden/internal/wlog"
)

func TestMain(m *testing.M) {
	wlog.Discard()
	os.Exit(m.Run())
}

// runnerFunc adapts a function to the TaskRunner interface.
type runnerFunc func(ctx context.Context, message string, timeout time.Duration) (string, error)

func (f runnerFunc) Run(ctx context.Context, message string, timeout time.Duration) (string, error) {
	return f(ctx, message, timeout)
}

// scriptedRunner returns each output in turn and records the instructions it
// received.
type scriptedRunner struct {
	mu           sync.Mutex
	outputs      []string
	instructions []string
}

func (s *scriptedRunner) Run(_ context.Context, message string, _ time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instructions = append(s.instructions, message)
	if len(s.outputs) == 0 {
		return "", errors.New("scripted runner exhausted")
	}
	out := s.outputs[0]
	s.outputs = s.outputs[1:]
	return out, nil
}

func (s *scriptedRunner) instruction(i int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.instructions) {
		return ""
	}
	return s.instructions[i]
}

// recordingNotifier captures notification calls.
type recordingNotifier struct {
	mu          sync.Mutex
	questions   []string
	completions []string
}

func (n *recordingNotifier) Question(_, question, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.questions = append(n.questions, question)
}

func (n *recordingNotifier) Completion(_, summary string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completions = append(n.completions, summary)
}

const sentinelOutput = `<<<NEED_INPUT>>>
Which service should I restart first?
<<<CONTEXT>>>
Both api and worker are degraded.
<<<END_INPUT>>>`

// waitForState polls until the session reaches the wanted state.
func waitForState(t *testing.T, e *Engine, id string, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := e.Snapshot(id)
		if err == nil && snap.State == want {
			return snap
		}
		time.Sleep(2 * time.Millisecond)
	}
	snap, err := e.Snapshot(id)
	t.Fatalf("session %s never reached %s (last: %+v, err=%v)", id, want, snap.State, err)
	return Snapshot{}
}

func TestEngine_CompletesWithoutPause(t *testing.T) {
	notifier := &recordingNotifier{}
	sr := &scriptedRunner{outputs: []string{"all done, disk at 40%"}}
	e := New(sr, notifier, time.Minute)

	id := e.Start(context.Background(), []string{"df -h"}, "check disk space")
	snap := waitForState(t, e, id, StateCompleted)

	if len(snap.Results) != 1 || snap.Results[0].Output != "all done, disk at 40%" {
		t.Errorf("Results = %+v, want final output recorded", snap.Results)
	}
	if snap.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", snap.ErrorMessage)
	}

	e.Wait()
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.completions) != 1 {
		t.Errorf("completion notifications = %d, want 1", len(notifier.completions))
	}
}

func TestEngine_PauseAndResume(t *testing.T) {
	notifier := &recordingNotifier{}
	sr := &scriptedRunner{outputs: []string{sentinelOutput, "restarted api, then worker"}}
	e := New(sr, notifier, time.Minute)

	id := e.Start(context.Background(), []string{"systemctl restart api", "systemctl restart worker"}, "restart the degraded services")

	snap := waitForState(t, e, id, StateWaitingForInput)
	if snap.CurrentQuestion != "Which service should I restart first?" {
		t.Errorf("CurrentQuestion = %q", snap.CurrentQuestion)
	}
	if snap.QuestionContext != "Both api and worker are degraded." {
		t.Errorf("QuestionContext = %q", snap.QuestionContext)
	}

	if err := e.SubmitAnswer(id, "api first"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	snap = waitForState(t, e, id, StateCompleted)
	if len(snap.Answers) != 1 {
		t.Fatalf("Answers = %+v, want one recorded answer", snap.Answers)
	}
	if snap.Answers[0].Question != "Which service should I restart first?" ||
		snap.Answers[0].Answer != "api first" {
		t.Errorf("Answer = %+v", snap.Answers[0])
	}
	if snap.CurrentQuestion != "" {
		t.Errorf("CurrentQuestion = %q, want cleared after resume", snap.CurrentQuestion)
	}

	// The second instruction must fold in the recorded answer.
	second := sr.instruction(1)
	if !strings.Contains(second, "Q: Which service should I restart first?\nA: api first") {
		t.Errorf("second instruction missing answer history:\n%s", second)
	}

	e.Wait()
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.questions) != 1 {
		t.Errorf("question notifications = %d, want 1", len(notifier.questions))
	}
}

func TestEngine_SubmitAnswerWhileRunning(t *testing.T) {
	release := make(chan struct{})
	tr := runnerFunc(func(ctx context.Context, _ string, _ time.Duration) (string, error) {
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	e := New(tr, nil, time.Minute)

	id := e.Start(context.Background(), []string{"ls"}, "list files")
	waitForState(t, e, id, StateRunning)

	err := e.SubmitAnswer(id, "unsolicited answer")
	var notWaiting *NotWaitingError
	if !errors.As(err, &notWaiting) {
		t.Fatalf("SubmitAnswer() error = %v, want NotWaitingError", err)
	}
	if notWaiting.State != StateRunning {
		t.Errorf("NotWaitingError.State = %s, want running", notWaiting.State)
	}

	snap, err := e.Snapshot(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Answers) != 0 {
		t.Errorf("rejected answer must not mutate the context, got %+v", snap.Answers)
	}

	close(release)
	waitForState(t, e, id, StateCompleted)
	e.Wait()
}

func TestEngine_SubmitAnswerUnknownSession(t *testing.T) {
	e := New(runnerFunc(func(context.Context, string, time.Duration) (string, error) {
		return "done", nil
	}), nil, time.Minute)

	if err := e.SubmitAnswer("no-such-session", "hello"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SubmitAnswer() error = %v, want ErrNotFound", err)
	}
}

func TestEngine_SnapshotUnknownSession(t *testing.T) {
	e := New(nil, nil, time.Minute)
	if _, err := e.Snapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Snapshot() error = %v, want ErrNotFound", err)
	}
}

func TestEngine_TimeoutWaitingForInput(t *testing.T) {
	sr := &scriptedRunner{outputs: []string{sentinelOutput}}
	e := New(sr, nil, 50*time.Millisecond)

	id := e.Start(context.Background(), []string{"systemctl restart api"}, "restart api")
	snap := waitForState(t, e, id, StateFailed)

	if !strings.Contains(snap.ErrorMessage, "timed out waiting for user input") {
		t.Errorf("ErrorMessage = %q, want input timeout", snap.ErrorMessage)
	}
	e.Wait()
}

func TestEngine_RunnerUnavailable(t *testing.T) {
	tr := runnerFunc(func(context.Context, string, time.Duration) (string, error) {
		return "", fmt.Errorf("%w: moltbot", runner.ErrUnavailable)
	})
	e := New(tr, nil, time.Minute)

	id := e.Start(context.Background(), []string{"ls"}, "list files")
	snap := waitForState(t, e, id, StateFailed)

	if snap.ErrorMessage != "agent service is unavailable" {
		t.Errorf("ErrorMessage = %q", snap.ErrorMessage)
	}
	e.Wait()
}

func TestEngine_ShutdownCancelsWaitingSession(t *testing.T) {
	sr := &scriptedRunner{outputs: []string{sentinelOutput}}
	e := New(sr, nil, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	id := e.Start(ctx, []string{"systemctl restart api"}, "restart api")
	waitForState(t, e, id, StateWaitingForInput)

	cancel()
	snap := waitForState(t, e, id, StateFailed)
	if snap.ErrorMessage != "canceled during shutdown" {
		t.Errorf("ErrorMessage = %q", snap.ErrorMessage)
	}
	e.Wait()
}

func TestEngine_RetentionWindow(t *testing.T) {
	sr := &scriptedRunner{outputs: []string{"done"}}
	e := New(sr, nil, time.Minute, WithRetention(50*time.Millisecond))

	id := e.Start(context.Background(), []string{"ls"}, "list files")
	waitForState(t, e, id, StateCompleted)

	// Queryable inside the window, discarded after it.
	if _, err := e.Snapshot(id); err != nil {
		t.Errorf("Snapshot() inside retention window error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := e.Snapshot(id); errors.Is(err, ErrNotFound) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("finished session was never discarded after the retention window")
}

func TestEngine_MultiplePauses(t *testing.T) {
	second := strings.ReplaceAll(sentinelOutput, "restart first", "stop last")
	sr := &scriptedRunner{outputs: []string{sentinelOutput, second, "all services cycled"}}
	e := New(sr, nil, time.Minute)

	id := e.Start(context.Background(), []string{"systemctl restart api"}, "cycle services")

	waitForState(t, e, id, StateWaitingForInput)
	if err := e.SubmitAnswer(id, "api"); err != nil {
		t.Fatal(err)
	}

	// Second pause: wait until the new question is visible.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := e.Snapshot(id)
		if err == nil && snap.State == StateWaitingForInput &&
			strings.Contains(snap.CurrentQuestion, "stop last") {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := e.SubmitAnswer(id, "worker"); err != nil {
		t.Fatal(err)
	}

	snap := waitForState(t, e, id, StateCompleted)
	if len(snap.Answers) != 2 {
		t.Errorf("Answers = %d, want 2", len(snap.Answers))
	}
	e.Wait()
}
