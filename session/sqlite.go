package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clipmesh/clipmesh/core"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	seq INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tool_call_id TEXT,
	tool_name TEXT,
	tool_calls TEXT,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, seq)
);`

// SQLiteStore is a durable Store backed by a sqlite database file. The
// driver is cgo-free (modernc.org/sqlite) so the store works anywhere the
// binary does.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a sqlite-backed session store at path.
// Use ":memory:" for an ephemeral store in tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate session db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Create implements Store, resetting any existing transcript.
func (s *SQLiteStore) Create(id string) (*Session, error) {
	now := time.Now().UTC()
	if _, err := s.db.Exec(`DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return nil, err
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions(id, created_at, updated_at) VALUES (?,?,?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, now, now,
	)
	if err != nil {
		return nil, err
	}
	return &Session{ID: id, Created: now, Updated: now}, nil
}

// Get implements Store, creating the session lazily if absent.
func (s *SQLiteStore) Get(id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRow(`SELECT id, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &sess.Created, &sess.Updated)
	if err == sql.ErrNoRows {
		return s.Create(id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT role, content, tool_call_id, tool_name, tool_calls, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m core.Message
		var callID, toolName, toolCalls sql.NullString
		if err := rows.Scan(&m.Role, &m.Content, &callID, &toolName, &toolCalls, &m.Timestamp); err != nil {
			return nil, err
		}
		m.ToolCallID = callID.String
		m.ToolName = toolName.String
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		sess.Messages = append(sess.Messages, m)
	}
	return &sess, rows.Err()
}

// AppendMessages implements Store.
func (s *SQLiteStore) AppendMessages(sessionID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	if _, err := s.Get(sessionID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), -1) FROM messages WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return err
	}

	for _, m := range msgs {
		seq++
		var toolCalls any
		if len(m.ToolCalls) > 0 {
			b, err := json.Marshal(m.ToolCalls)
			if err != nil {
				return fmt.Errorf("encode tool calls: %w", err)
			}
			toolCalls = string(b)
		}
		if _, err := tx.Exec(
			`INSERT INTO messages(session_id, seq, role, content, tool_call_id, tool_name, tool_calls, created_at)
			 VALUES (?,?,?,?,?,?,?,?)`,
			sessionID, seq, m.Role, m.Content, nullable(m.ToolCallID), nullable(m.ToolName), toolCalls, m.Timestamp,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), sessionID,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
