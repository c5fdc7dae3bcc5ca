// Package engine drives long-running multi-command tasks to completion with
// human-in-the-loop pauses. Each session is an independent run loop that
// alternates between invoking the external agent and, when the agent asks a
// question, blocking on a per-session resume gate until an answer arrives.
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mboyd/warden/internal/protocol"
)

// State is the lifecycle state of one execution session.
type State string

// Execution states. Completed and Failed are terminal.
const (
	StatePending         State = "pending"
	StateRunning         State = "running"
	StateWaitingForInput State = "waiting_for_input"
	StateCompleted       State = "completed"
	StateFailed          State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Result is the output of one completed agent invocation.
type Result struct {
	Output string `json:"output"`
}

// Snapshot is a point-in-time copy of an execution's externally visible
// fields, safe to serialize while the run loop keeps mutating the original.
type Snapshot struct {
	SessionID       string            `json:"session_id"`
	State           State             `json:"state"`
	Transcript      []string          `json:"transcript"`
	Commands        []string          `json:"commands"`
	Results         []Result          `json:"results"`
	CurrentQuestion string            `json:"current_question"`
	QuestionContext string            `json:"question_context"`
	Answers         []protocol.Answer `json:"answers"`
	Topics          []string          `json:"topics"`
	ErrorMessage    string            `json:"error_message"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// execution holds one session's mutable state. The run loop owns all state
// transitions; the resume path appends answers under the same lock, guarded
// by a waiting-state check.
type execution struct {
	mu sync.Mutex

	sessionID       string
	state           State
	transcript      []string
	commands        []string
	results         []Result
	currentQuestion string
	questionContext string
	answers         []protocol.Answer
	topics          []string
	errorMessage    string
	createdAt       time.Time
	updatedAt       time.Time
}

func newExecution(commands []string, transcript string) *execution {
	now := time.Now().UTC()
	return &execution{
		sessionID:  uuid.NewString(),
		state:      StatePending,
		transcript: []string{transcript},
		commands:   append([]string(nil), commands...),
		createdAt:  now,
		updatedAt:  now,
	}
}

func (x *execution) snapshot() Snapshot {
	x.mu.Lock()
	defer x.mu.Unlock()
	return Snapshot{
		SessionID:       x.sessionID,
		State:           x.state,
		Transcript:      append([]string(nil), x.transcript...),
		Commands:        append([]string(nil), x.commands...),
		Results:         append([]Result(nil), x.results...),
		CurrentQuestion: x.currentQuestion,
		QuestionContext: x.questionContext,
		Answers:         append([]protocol.Answer(nil), x.answers...),
		Topics:          append([]string(nil), x.topics...),
		ErrorMessage:    x.errorMessage,
		CreatedAt:       x.createdAt,
		UpdatedAt:       x.updatedAt,
	}
}

// setRunning transitions to RUNNING and clears any pending question.
func (x *execution) setRunning() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state = StateRunning
	x.currentQuestion = ""
	x.questionContext = ""
	x.updatedAt = time.Now().UTC()
}

// setWaiting records the agent's question and transitions to WAITING_FOR_INPUT.
func (x *execution) setWaiting(question, context string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state = StateWaitingForInput
	x.currentQuestion = question
	x.questionContext = context
	x.updatedAt = time.Now().UTC()
}

// complete appends the final output and transitions to COMPLETED.
func (x *execution) complete(output string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state = StateCompleted
	x.results = append(x.results, Result{Output: output})
	x.updatedAt = time.Now().UTC()
}

// fail transitions to FAILED with a human-readable message.
func (x *execution) fail(message string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.state = StateFailed
	x.errorMessage = message
	x.updatedAt = time.Now().UTC()
}

// recordAnswer appends a question/answer pair if the session is waiting for
// input. Returns the current state and whether the answer was accepted; a
// session that is not waiting is left unchanged.
func (x *execution) recordAnswer(answer string) (State, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.state != StateWaitingForInput {
		return x.state, false
	}
	x.answers = append(x.answers, protocol.Answer{
		Question: x.currentQuestion,
		Answer:   answer,
	})
	x.updatedAt = time.Now().UTC()
	return x.state, true
}

// instructionInput returns copies of the commands and answers for building
// the next agent instruction.
func (x *execution) instructionInput() ([]string, []protocol.Answer) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.commands...), append([]protocol.Answer(nil), x.answers...)
}
