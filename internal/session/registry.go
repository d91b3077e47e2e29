package session

import (
	"sync"
	"time"
)

// Registry tracks live sessions by id. Sessions are inserted on start and
// evicted on finish, abandon, or idle timeout; there is no other mutation
// path, so process-wide state never leaks between attempts.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Put inserts a session, keyed by its id
func (r *Registry) Put(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Get returns the session with the given id, or nil
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove evicts the session with the given id
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IdleSince returns the sessions whose last activity is older than the
// cutoff. Callers stop the sessions' tasks before removing them.
func (r *Registry) IdleSince(cutoff time.Time) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var idle []*Session
	for _, s := range r.sessions {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, s)
		}
	}
	return idle
}
