// Package memory provides an in-process SessionStore. Sessions live for the
// lifetime of the process; suitable for tests and single-instance deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"geoaval/store"
)

// MemorySessionStore implements store.SessionStore backed by a map.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*store.Session
}

var _ store.SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*store.Session),
	}
}

// Save stores a session record, enforcing the optimistic version check.
func (m *MemorySessionStore) Save(_ context.Context, s *store.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[s.ID]
	if !ok {
		if s.Version != 1 {
			return store.ErrVersionConflict
		}
	} else if existing.Version != s.Version-1 {
		return store.ErrVersionConflict
	}

	cp := *s
	cp.State = append([]byte(nil), s.State...)
	cp.UpdatedAt = time.Now()
	m.sessions[s.ID] = &cp
	return nil
}

// Load retrieves a session record by id.
func (m *MemorySessionStore) Load(_ context.Context, id string) (*store.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	cp := *s
	cp.State = append([]byte(nil), s.State...)
	return &cp, nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete removes a session record.
func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}
