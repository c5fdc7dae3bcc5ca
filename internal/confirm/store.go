// Package confirm holds commands that are allowed to run only after the
// operator explicitly says so. Each conversation session may have at most one
// command pending confirmation at a time.
package confirm

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mboyd/warden/internal/wlog"
)

// DefaultTTL is how long a pending command waits for confirmation.
const DefaultTTL = 120 * time.Second

// DefaultSweepInterval is how often expired entries are garbage-collected.
// Expiry is also checked on access, so the sweep bounds memory rather than
// correctness.
const DefaultSweepInterval = 60 * time.Second

// confirmationKeywords are matched against whole words of an utterance.
var confirmationKeywords = map[string]bool{
	"confirm": true,
	"yes":     true,
	"go":      true,
	"execute": true,
	"proceed": true,
	"ok":      true,
	"yep":     true,
}

// IsConfirmation reports whether the utterance contains a confirmation
// keyword. Matching is word-boundary exact after lowercasing and stripping
// surrounding punctuation, so "confirmation" and "unconfirmed" do not match.
func IsConfirmation(utterance string) bool {
	for _, word := range strings.Fields(strings.ToLower(utterance)) {
		if confirmationKeywords[strings.Trim(word, ".,!?;:")] {
			return true
		}
	}
	return false
}

type entry struct {
	command string
	expires time.Time
}

// Store is a thread-safe map of session id to one pending command.
type Store struct {
	mu      sync.Mutex
	pending map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates an empty store with the default TTL.
func NewStore() *Store {
	return NewStoreWithTTL(DefaultTTL)
}

// NewStoreWithTTL creates an empty store with a custom TTL.
func NewStoreWithTTL(ttl time.Duration) *Store {
	return &Store{
		pending: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put records command as pending confirmation for the session, replacing any
// previous pending command for that session.
func (s *Store) Put(sessionID, command string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionID] = entry{
		command: command,
		expires: s.now().Add(s.ttl),
	}
}

// TakeIfConfirmed checks the utterance against the session's pending command.
// If the entry has expired it is evicted and nothing matches. If the
// utterance is a confirmation, the command is removed and returned; a second
// caller can never consume it again. A non-confirming utterance leaves the
// entry intact so a later confirmation within the TTL still works.
func (s *Store) TakeIfConfirmed(sessionID, utterance string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[sessionID]
	if !ok {
		return "", false
	}
	if s.now().After(e.expires) {
		delete(s.pending, sessionID)
		return "", false
	}
	if !IsConfirmation(utterance) {
		return "", false
	}

	delete(s.pending, sessionID)
	return e.command, true
}

// Sweep deletes all expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.pending {
		if now.After(e.expires) {
			delete(s.pending, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of pending entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Run sweeps the store on the given interval until ctx is canceled.
// Intended to be started once as a background goroutine at process startup.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				wlog.Info("confirm: swept %d expired pending commands", n)
			}
		}
	}
}
