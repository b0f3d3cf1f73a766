// Package checkpoint provides ThreadStore implementations: a SQLite-backed
// store for durable suspension across process restarts, and an in-memory
// store for tests and throwaway sessions.
package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mnemoai/mnemo-go-sdk/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS threads (
	id         TEXT PRIMARY KEY,
	state      TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore persists threads in a SQLite database. The full thread is
// stored as a JSON blob; state is duplicated in its own column for
// inspection with a plain sqlite3 shell.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path. Use
// ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create threads table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts the thread.
func (s *SQLiteStore) Save(ctx context.Context, thread *engine.Thread) error {
	data, err := json.Marshal(thread)
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", thread.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO threads (id, state, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, data = excluded.data, updated_at = excluded.updated_at
	`, thread.ID, string(thread.State), string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save thread %s: %w", thread.ID, err)
	}
	return nil
}

// Load retrieves a thread by ID.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*engine.Thread, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM threads WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", engine.ErrThreadNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load thread %s: %w", id, err)
	}

	var thread engine.Thread
	if err := json.Unmarshal([]byte(data), &thread); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", id, err)
	}
	return &thread, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ engine.ThreadStore = (*SQLiteStore)(nil)
