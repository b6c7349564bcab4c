// Package conversation is the durable, append-only chat log. Entries are
// keyed by message id with a secondary timestamp ordering, stored in SQLite
// so reads never observe a partially applied append or update.
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Tranthanh98/screenshot-ai/pkg/types"
)

// DuplicateIDError reports an append with an identifier that already
// exists. This is a programming-invariant violation in normal operation.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("conversation: message %q already exists", e.ID)
}

// NotFoundError reports an update or delete of an unknown identifier.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("conversation: message %q not found", e.ID)
}

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id        TEXT PRIMARY KEY,
	timestamp INTEGER NOT NULL,
	type      TEXT NOT NULL,
	payload   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
`

// Store owns the conversation log. It is the sole mutator of the backing
// database; all methods are safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log at path. Use ":memory:" for an ephemeral
// store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("conversation: open: %w", err)
	}

	// Serialized access: the sqlite driver does not support concurrent
	// writers on one connection, and a single connection keeps :memory:
	// databases stable.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("conversation: pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("conversation: schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts a new message. It fails with *DuplicateIDError if the
// identifier already exists.
func (s *Store) Append(ctx context.Context, msg types.ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: encode message: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conversation: begin: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM messages WHERE id = ?)", msg.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("conversation: check id: %w", err)
	}
	if exists {
		return &DuplicateIDError{ID: msg.ID}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO messages (id, timestamp, type, payload) VALUES (?, ?, ?, ?)",
		msg.ID, msg.Timestamp, string(msg.Type), string(payload))
	if err != nil {
		return fmt.Errorf("conversation: insert: %w", err)
	}

	return tx.Commit()
}

// Update merges the given fields into an existing message. Only analysis,
// error and the analyzing flag are ever updated after creation. It fails
// with *NotFoundError for an unknown identifier.
func (s *Store) Update(ctx context.Context, id string, updates Updates) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("conversation: begin: %w", err)
	}
	defer tx.Rollback()

	var payload string
	err = tx.QueryRowContext(ctx,
		"SELECT payload FROM messages WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("conversation: read: %w", err)
	}

	var msg types.ChatMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return fmt.Errorf("conversation: decode message %s: %w", id, err)
	}

	updates.apply(&msg)

	merged, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("conversation: encode message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE messages SET payload = ? WHERE id = ?", string(merged), id)
	if err != nil {
		return fmt.Errorf("conversation: update: %w", err)
	}

	return tx.Commit()
}

// Updates is the shallow-merge patch accepted by Update. Nil fields are
// left untouched.
type Updates struct {
	Analysis    types.AnalysisResults
	Error       *string
	IsAnalyzing *bool
}

func (u Updates) apply(msg *types.ChatMessage) {
	if u.Analysis != nil {
		msg.Analysis = u.Analysis
	}
	if u.Error != nil {
		msg.Error = *u.Error
	}
	if u.IsAnalyzing != nil {
		msg.IsAnalyzing = *u.IsAnalyzing
	}
}

// GetAll returns every message ordered by ascending timestamp, with ties
// broken by insertion order.
func (s *Store) GetAll(ctx context.Context) ([]types.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM messages ORDER BY timestamp ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("conversation: query: %w", err)
	}
	defer rows.Close()

	var messages []types.ChatMessage
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("conversation: scan: %w", err)
		}
		var msg types.ChatMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("conversation: decode message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Delete removes a single message. It fails with *NotFoundError for an
// unknown identifier.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("conversation: delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conversation: delete: %w", err)
	}
	if affected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// Clear empties the log irreversibly.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return fmt.Errorf("conversation: clear: %w", err)
	}
	return nil
}
