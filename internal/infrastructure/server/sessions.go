package server

import (
	"sync"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
)

// sessionRegistry is the hub's session map, keyed by client identifier.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
	}
}

// Add binds the session to its identifier, replacing any prior entry.
func (r *sessionRegistry) Add(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.Identifier()] = s
}

// Get retrieves a session by identifier.
func (r *sessionRegistry) Get(identifier string) (*session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identifier]
	return s, ok
}

// Remove deletes and returns the session bound to identifier.
func (r *sessionRegistry) Remove(identifier string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[identifier]
	if ok {
		delete(r.sessions, identifier)
	}
	return s, ok
}

// RemoveIf deletes the entry for identifier only if it is still the given
// session. Endpoint loops use this so a connection evicted by an override
// replacement cannot tear down its successor.
func (r *sessionRegistry) RemoveIf(identifier string, s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[identifier]
	if !ok || current != s {
		return false
	}
	delete(r.sessions, identifier)
	return true
}

// Snapshot returns the sessions connected at this moment.
func (r *sessionRegistry) Snapshot() []*session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Infos returns a copy of every session's client record.
func (r *sessionRegistry) Infos() []domain.ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ClientSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, *s.info)
	}
	return out
}

// Count returns the number of connected sessions.
func (r *sessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Drain empties the registry and returns everything that was in it.
func (r *sessionRegistry) Drain() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.sessions = make(map[string]*session)
	return out
}
