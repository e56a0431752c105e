package session

import (
	"sync"
	"time"

	"github.com/clipmesh/clipmesh/core"
)

// InMemoryStore is a volatile Store implementation keeping sessions in a
// process-local map. Safe for concurrent access; best suited for tests and
// ephemeral demo runs. Returned sessions are clones to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Create implements Store.
func (s *InMemoryStore) Create(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(id).Clone(), nil
}

// Get implements Store, creating the session lazily if absent.
func (s *InMemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess.Clone(), nil
	}
	return s.createLocked(id).Clone(), nil
}

// AppendMessages implements Store.
func (s *InMemoryStore) AppendMessages(sessionID string, msgs ...core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}
	sess.Messages = append(sess.Messages, msgs...)
	sess.Updated = time.Now().UTC()
	return nil
}

// Close implements Store; a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) createLocked(id string) *Session {
	now := time.Now().UTC()
	sess := &Session{ID: id, Created: now, Updated: now}
	s.sessions[id] = sess
	return sess
}
