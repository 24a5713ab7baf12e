package interview

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Registry tracks live sessions by id. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its id. Duplicate ids are rejected.
func (r *Registry) Add(s *Session) error {
	if s == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidSession)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, s.ID())
	}
	r.sessions[s.ID()] = s
	return nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Remove ends the session and drops it from the registry, so abandoned
// sessions release their live-session accounting.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.End(ctx)
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the ids of all live sessions, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CaseRegistry tracks loaded cases by id. Re-registering an id replaces
// the previous case (re-ingest is last-write-wins). Safe for concurrent
// use.
type CaseRegistry struct {
	mu    sync.RWMutex
	cases map[string]*Case
}

// NewCaseRegistry creates an empty case registry.
func NewCaseRegistry() *CaseRegistry {
	return &CaseRegistry{cases: make(map[string]*Case)}
}

// Put registers a case under id, replacing any previous entry.
func (r *CaseRegistry) Put(id string, c *Case) error {
	if c == nil {
		return fmt.Errorf("%w: nil case", ErrInvalidCase)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cases[id] = c
	return nil
}

// Get returns the case with the given id.
func (r *CaseRegistry) Get(id string) (*Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cases[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, id)
	}
	return c, nil
}

// Remove drops the case with the given id. Unknown ids are a no-op.
func (r *CaseRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cases, id)
}

// IDs returns the ids of all registered cases, sorted.
func (r *CaseRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.cases))
	for id := range r.cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
