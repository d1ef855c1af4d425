// Package session holds conversation state for the form agent: a concurrent
// registry of per-session records with TTL-based background eviction.
package session

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an idle session survives before eviction.
	DefaultTTL = 30 * time.Minute
	// DefaultEvictionInterval is how often the background task scans for
	// expired sessions.
	DefaultEvictionInterval = time.Minute
)

// Registry is the only shared mutable structure of the core. A coarse
// registry lock guards insertion and eviction; each session carries its own
// lock for turn-scope mutation, so turns on different sessions run fully
// concurrently.
//
// Construct it at service start, inject it into the orchestrator, and call
// Close on shutdown to stop the eviction task.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*State

	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL sets the idle lifetime of a session.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithEvictionInterval sets the background scan period. A non-positive
// interval disables the background task; EvictExpired can still be called
// directly.
func WithEvictionInterval(interval time.Duration) Option {
	return func(r *Registry) { r.interval = interval }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry builds a registry and starts its eviction task.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*State),
		ttl:      DefaultTTL,
		interval: DefaultEvictionInterval,
		logger:   slog.Default(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interval > 0 {
		go r.evictLoop()
	} else {
		close(r.done)
	}
	return r
}

// GetOrCreate returns the session for id, creating it on first reference.
// Idempotent and safe for concurrent use.
func (r *Registry) GetOrCreate(id, formID string) *State {
	r.mu.RLock()
	s, found := r.sessions[id]
	r.mu.RUnlock()
	if found {
		return s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, found = r.sessions[id]; found {
		return s
	}
	s = newState(id, formID)
	r.sessions[id] = s
	return s
}

// Get returns the session for id without creating one.
func (r *Registry) Get(id string) (*State, bool) {
	r.mu.RLock()
	s, found := r.sessions[id]
	r.mu.RUnlock()
	return s, found
}

// Delete removes a session. Deleting a missing id is a no-op returning
// false.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, found := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	return found
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot copies out an immutable view of the session, or false if the id
// is unknown. The copy shares no mutable structure with the live session.
func (r *Registry) Snapshot(id string) (Snapshot, bool) {
	s, found := r.Get(id)
	if !found {
		return Snapshot{}, false
	}
	s.Lock()
	defer s.Unlock()
	return s.snapshotLocked(), true
}

// EvictExpired removes every session idle longer than ttl and returns how
// many were removed. Only the registry lock is taken; per-session locks are
// not held, so an in-flight turn completes atomically before or after the
// removal, never interleaved with it.
func (r *Registry) EvictExpired(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, s := range r.sessions {
		if now.Sub(s.LastActivity()) > ttl {
			delete(r.sessions, id)
			count++
		}
	}
	return count
}

// Close stops the eviction task. Safe to call more than once.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

func (r *Registry) evictLoop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			if n := r.EvictExpired(now, r.ttl); n > 0 {
				r.logger.Debug("evicted expired sessions", "count", n)
			}
		}
	}
}
