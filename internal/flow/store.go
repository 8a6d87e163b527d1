package flow

import (
	"sync"
	"time"
)

// Store holds at most one session per identity. Implementations only need to
// be safe for concurrent use; serialization of whole events per identity is
// the Dispatcher's job.
type Store interface {
	Get(id Identity) (Session, bool)
	Put(id Identity, s Session)
	Delete(id Identity)
}

// MemoryStore is the in-memory Store used in production and tests. Sessions
// are short-lived, so no persistence is needed across restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[Identity]Session
}

// NewMemoryStore constructs an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[Identity]Session)}
}

// Get returns the session for an identity if one exists.
func (m *MemoryStore) Get(id Identity) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Put stores the session for an identity, replacing any previous one.
func (m *MemoryStore) Put(id Identity, s Session) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
}

// Delete removes the identity's session if present.
func (m *MemoryStore) Delete(id Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len reports the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
