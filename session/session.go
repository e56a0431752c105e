// Package session persists conversation transcripts across orchestrator
// runs. The orchestrator itself keeps its bounded working history in memory;
// stores are for durable transcripts (CLI sessions, audits).
package session

import (
	"time"

	"github.com/clipmesh/clipmesh/core"
)

// Session is one stored conversation.
type Session struct {
	ID       string         `json:"id"`
	Messages []core.Message `json:"messages"`
	Created  time.Time      `json:"created"`
	Updated  time.Time      `json:"updated"`
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	clone := &Session{ID: s.ID, Created: s.Created, Updated: s.Updated}
	clone.Messages = make([]core.Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return clone
}

// Store persists sessions and their message history.
type Store interface {
	// Create forces the creation (or reset) of a session with the given id.
	Create(id string) (*Session, error)

	// Get returns an existing session or creates one lazily.
	Get(id string) (*Session, error)

	// AppendMessages adds messages to a session's transcript.
	AppendMessages(sessionID string, msgs ...core.Message) error

	// Close releases any underlying resources.
	Close() error
}
