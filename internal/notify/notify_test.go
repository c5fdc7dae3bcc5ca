package notify

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/mboyd/warden/internal/wlog"
)

func TestMain(m *testing.M) {
	wlog.Discard()
	os.Exit(m.Run())
}

type fakeDeliverer struct {
	messages []string
	err      error
}

func (f *fakeDeliverer) Deliver(_ context.Context, _, _, message string) error {
	f.messages = append(f.messages, message)
	return f.err
}

func TestNotifier_Question(t *testing.T) {
	d := &fakeDeliverer{}
	n := New(d, "whatsapp", "+15551234", "https://voice.example.com", true, true)

	n.Question("sess-1", "Which database?", "Two candidates found.")

	if len(d.messages) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(d.messages))
	}
	msg := d.messages[0]
	if !strings.Contains(msg, "Which database?") {
		t.Error("message should contain the question")
	}
	if !strings.Contains(msg, "Context: Two candidates found.") {
		t.Error("message should contain the context")
	}
	if !strings.Contains(msg, "https://voice.example.com?session=sess-1&mode=answer") {
		t.Errorf("message should contain the resumption link: %q", msg)
	}
}

func TestNotifier_Completion(t *testing.T) {
	d := &fakeDeliverer{}
	n := New(d, "whatsapp", "+15551234", "https://voice.example.com", true, true)

	n.Completion("sess-1", "All services restarted.")

	if len(d.messages) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(d.messages))
	}
	if !strings.Contains(d.messages[0], "https://voice.example.com?session=sess-1") {
		t.Errorf("message should contain the review link: %q", d.messages[0])
	}
}

func TestNotifier_DisabledByFlag(t *testing.T) {
	d := &fakeDeliverer{}
	n := New(d, "whatsapp", "+15551234", "https://voice.example.com", false, false)

	n.Question("sess-1", "q", "c")
	n.Completion("sess-1", "s")

	if len(d.messages) != 0 {
		t.Errorf("deliveries = %d, want 0 when disabled", len(d.messages))
	}
}

func TestNotifier_NoDestination(t *testing.T) {
	d := &fakeDeliverer{}
	n := New(d, "whatsapp", "", "https://voice.example.com", true, true)

	n.Question("sess-1", "q", "c")

	if len(d.messages) != 0 {
		t.Errorf("deliveries = %d, want 0 without destination", len(d.messages))
	}
}

func TestNotifier_SwallowsDeliveryFailure(t *testing.T) {
	d := &fakeDeliverer{err: errors.New("channel down")}
	n := New(d, "whatsapp", "+15551234", "https://voice.example.com", true, true)

	// Must not panic or propagate.
	n.Question("sess-1", "q", "c")
	n.Completion("sess-1", "s")
}
