// Package notify pushes questions and completion summaries to the operator
// through the agent's delivery channel. Delivery is best-effort: failures
// are logged and swallowed, they never fail the run that triggered them.
package notify

import (
	"context"
	"fmt"

	"github.com/mboyd/warden/internal/wlog"
)

// Deliverer sends a message to a destination on a named channel.
// *runner.Runner satisfies this.
type Deliverer interface {
	Deliver(ctx context.Context, channel, to, message string) error
}

// Notifier formats and delivers the two operator-facing message shapes.
type Notifier struct {
	deliverer  Deliverer
	channel    string
	to         string
	baseURL    string
	onQuestion bool
	onComplete bool
}

// New creates a notifier. An empty destination disables all delivery.
func New(d Deliverer, channel, to, baseURL string, onQuestion, onComplete bool) *Notifier {
	return &Notifier{
		deliverer:  d,
		channel:    channel,
		to:         to,
		baseURL:    baseURL,
		onQuestion: onQuestion,
		onComplete: onComplete,
	}
}

// Question notifies the operator that a session is paused on a question,
// with a link that resumes the session.
func (n *Notifier) Question(sessionID, question, questionContext string) {
	if !n.onQuestion || n.to == "" {
		return
	}
	msg := fmt.Sprintf("I need your input:\n\n%s\n\nContext: %s\n\nAnswer here: %s?session=%s&mode=answer",
		question, questionContext, n.baseURL, sessionID)
	n.send(sessionID, msg)
}

// Completion notifies the operator that a session finished, with a link to
// review the output.
func (n *Notifier) Completion(sessionID, summary string) {
	if !n.onComplete || n.to == "" {
		return
	}
	msg := fmt.Sprintf("Task completed:\n\n%s\n\nReview here: %s?session=%s",
		summary, n.baseURL, sessionID)
	n.send(sessionID, msg)
}

func (n *Notifier) send(sessionID, msg string) {
	if err := n.deliverer.Deliver(context.Background(), n.channel, n.to, msg); err != nil {
		wlog.Warn("notify: delivery failed for session %s: %v", sessionID, err)
	}
}
