// Package session owns the map of call-id to call state and the
// serialization discipline around it. Every mutation of a session goes
// through Registry.WithSession; the transport layer never touches
// session fields directly.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rakshakai/rakshak/pkg/telemetry"
)

// ErrConcurrentMutation means two mutators reached the same session at
// once. The serialization contract is broken for that session, so it is
// force-terminated rather than left in an unknown state.
var ErrConcurrentMutation = errors.New("session: concurrent mutation detected")

// ErrUnknownSession is returned by operations that need an existing
// session (handoff, termination). Frame routing treats unknown ids as
// "call already ended" instead.
var ErrUnknownSession = errors.New("session: unknown call id")

const defaultIdleTTL = 10 * time.Minute

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTTL time.Duration
	metrics *telemetry.Client

	stopReaper chan struct{}
	closeOnce  sync.Once
}

// NewRegistry creates a registry and starts its idle-session reaper.
// Call Close to stop it.
func NewRegistry(idleTTL time.Duration, metrics *telemetry.Client) *Registry {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	if metrics == nil {
		metrics = telemetry.Global
	}
	r := &Registry{
		sessions:   make(map[string]*Session),
		idleTTL:    idleTTL,
		metrics:    metrics,
		stopReaper: make(chan struct{}),
	}
	go r.reapIdle()
	return r
}

// Connect returns the session for callID, creating it on first contact.
func (r *Registry) Connect(callID string) *Session {
	r.mu.Lock()
	if s, ok := r.sessions[callID]; ok {
		r.mu.Unlock()
		return s
	}
	s := newSession(callID)
	r.sessions[callID] = s
	r.mu.Unlock()

	active := r.metrics.SessionConnected()
	log.Info().Str("call_id", callID).Int64("active_sessions", active).Msg("session_connected")
	return s
}

// Disconnect removes the session. Disconnecting an unknown or already
// removed callID is a no-op; disconnect races are normal operation.
func (r *Registry) Disconnect(callID string) {
	r.mu.Lock()
	_, ok := r.sessions[callID]
	if ok {
		delete(r.sessions, callID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	active := r.metrics.SessionDisconnected()
	log.Info().Str("call_id", callID).Int64("active_sessions", active).Msg("session_disconnected")
}

// Get returns the session or nil. The returned pointer is for identity
// and read-only inspection; mutate only through WithSession.
func (r *Registry) Get(callID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[callID]
}

// ActiveCount returns the number of live sessions.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// WithSession runs fn with exclusive access to the session's mutable
// fields. An unknown callID is a benign no-op returning nil. Mutators
// for the same session are serialized on a per-session lock; sessions
// for other call ids are never blocked, the map lock is held only for
// the lookup. The busy flag double-checks the at-most-one-mutator
// contract: seeing it set under the lock means some code path mutated
// the session without going through here, so the session state can no
// longer be trusted and it is force-terminated.
func (r *Registry) WithSession(callID string, fn func(*Session) error) error {
	r.mu.RLock()
	s, ok := r.sessions[callID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy.CompareAndSwap(false, true) {
		log.Error().Str("call_id", callID).Msg("session_serialization_violated")
		r.Disconnect(callID)
		return ErrConcurrentMutation
	}
	defer s.busy.Store(false)

	s.Touch()
	return fn(s)
}

// Close stops the reaper and terminates all sessions.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.stopReaper) })

	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Disconnect(id)
	}
}

// reapIdle evicts sessions with no activity for idleTTL. Abandoned
// calls otherwise leak map entries when the transport never sends an
// explicit end.
func (r *Registry) reapIdle() {
	interval := r.idleTTL / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopReaper:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.idleTTL)
			r.mu.RLock()
			var stale []string
			for id, s := range r.sessions {
				if s.LastActivity().Before(cutoff) {
					stale = append(stale, id)
				}
			}
			r.mu.RUnlock()

			for _, id := range stale {
				log.Info().Str("call_id", id).Msg("session_idle_reaped")
				r.Disconnect(id)
			}
		}
	}
}
