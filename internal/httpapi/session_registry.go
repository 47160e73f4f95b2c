package httpapi

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kitamura/hanasu/internal/conversation"
	"github.com/kitamura/hanasu/internal/costs"
	"github.com/kitamura/hanasu/internal/eventlog"
	"github.com/kitamura/hanasu/internal/intake"
)

// sessionEntry bundles everything that lives for one conversation session.
type sessionEntry struct {
	sess       *conversation.Session
	controller *intake.Controller
	events     *eventlog.Log
	meter      *costs.Meter
	hub        *updateHub

	mu         sync.Mutex
	lastActive time.Time
}

func (e *sessionEntry) touch() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastActive = time.Now()
}

func (e *sessionEntry) idleFor(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Sub(e.lastActive)
}

// SessionRegistry tracks live sessions and supports graceful draining.
// When draining is enabled, new submissions are rejected while in-flight
// pipelines finish naturally.
//
// The mu mutex makes the draining check and wg.Add atomic in
// BeginSubmission(), preventing a TOCTOU race where StartDraining+Wait could
// be called between the draining check and wg.Add.
type SessionRegistry struct {
	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	inflight atomic.Int64
	sessions map[string]*sessionEntry
}

// NewSessionRegistry creates an empty SessionRegistry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*sessionEntry)}
}

// Put registers a session entry under its session ID.
func (r *SessionRegistry) Put(id string, e *sessionEntry) {
	e.touch()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = e
}

// Get returns the entry for id, if present.
func (r *SessionRegistry) Get(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	return e, ok
}

// Delete removes the session with id, closing its watcher hub.
// Returns false when the session does not exist.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok && e.hub != nil {
		e.hub.closeAll()
	}
	return ok
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than maxIdle and returns how many
// were removed. Session state is in-memory only, so eviction is the one
// thing standing between an abandoned browser tab and unbounded growth.
func (r *SessionRegistry) Sweep(maxIdle time.Duration) int {
	now := time.Now()

	r.mu.Lock()
	var expired []*sessionEntry
	for id, e := range r.sessions {
		if e.idleFor(now) > maxIdle {
			delete(r.sessions, id)
			expired = append(expired, e)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		if e.hub != nil {
			e.hub.closeAll()
		}
	}
	return len(expired)
}

// BeginSubmission registers a new in-flight pipeline run. Returns false if
// the registry is draining, meaning no new submissions should be accepted.
// The draining check and WaitGroup increment are performed atomically under
// a mutex.
func (r *SessionRegistry) BeginSubmission() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.draining {
		return false
	}
	r.wg.Add(1)
	r.inflight.Add(1)
	return true
}

// EndSubmission marks a pipeline run as completed. Must be called exactly
// once per successful BeginSubmission.
func (r *SessionRegistry) EndSubmission() {
	r.inflight.Add(-1)
	r.wg.Done()
}

// StartDraining sets the draining flag so that future BeginSubmission calls
// return false. Safe to call concurrently with BeginSubmission — the mutex
// ensures no submission can slip through after StartDraining returns.
func (r *SessionRegistry) StartDraining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draining = true
}

// IsDraining reports whether the registry is in draining mode.
func (r *SessionRegistry) IsDraining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// InFlight returns the number of currently running submission pipelines.
func (r *SessionRegistry) InFlight() int64 {
	return r.inflight.Load()
}

// Wait blocks until all in-flight submissions have completed.
func (r *SessionRegistry) Wait() {
	r.wg.Wait()
}
