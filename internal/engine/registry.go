package engine

import (
	"sync"
	"time"
)

// DefaultRetention is how long a finished session stays queryable so that
// slow pollers can still fetch the terminal state.
const DefaultRetention = 5 * time.Minute

// entry pairs a live execution with its resume gate. The gate is a one-slot
// channel used as a one-shot waitable signal: SubmitAnswer performs a
// non-blocking send, the run loop's receive consumes it. A signal raised
// before the run loop reaches its wait is buffered, never lost, and
// receiving is what clears it (clear-after-wait).
type entry struct {
	exec *execution
	gate chan struct{}
}

// signal raises the resume gate without blocking. Raising an already-raised
// gate is a no-op.
func (e *entry) signal() {
	select {
	case e.gate <- struct{}{}:
	default:
	}
}

// registry is the set of currently live sessions. Map operations are the
// only critical sections; nothing here blocks on subprocesses or waits.
type registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	retention time.Duration
}

func newRegistry(retention time.Duration) *registry {
	return &registry{
		entries:   make(map[string]*entry),
		retention: retention,
	}
}

func (r *registry) add(x *execution) *entry {
	e := &entry{
		exec: x,
		gate: make(chan struct{}, 1),
	}
	r.mu.Lock()
	r.entries[x.sessionID] = e
	r.mu.Unlock()
	return e
}

func (r *registry) lookup(sessionID string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	return e, ok
}

func (r *registry) remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sessionID)
}

// scheduleRemoval drops the entry after the retention window. Called once by
// the run loop when the session reaches a terminal state.
func (r *registry) scheduleRemoval(sessionID string) {
	time.AfterFunc(r.retention, func() {
		r.remove(sessionID)
	})
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
