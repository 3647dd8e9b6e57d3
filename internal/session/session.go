// Package session persists per-session chat history in SQLite so the
// assistant keeps context across requests. It uses modernc.org/sqlite
// (pure Go, no CGO) with WAL mode and a single connection.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration

	"github.com/yengalvez/a-movies/internal/provider"
)

// defaultBusyTimeout is the SQLite busy_timeout in milliseconds.
const defaultBusyTimeout = 5000

// Config holds the session store settings.
type Config struct {
	// Path is the database file location.
	Path string

	// WAL enables write-ahead logging. Nil means enabled.
	WAL *bool

	// BusyTimeout is the SQLite busy_timeout in milliseconds.
	BusyTimeout int
}

func (c *Config) walEnabled() bool {
	return c.WAL == nil || *c.WAL
}

// Store is a SQLite-backed chat history store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at cfg.Path and migrates the schema.
// The caller must Close the store when done.
func Open(cfg Config) (*Store, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", cfg.Path, err)
	}

	// SQLite handles one writer at a time; limit pool to 1 connection
	// so PRAGMAs apply consistently.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("session: enable WAL: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Purge deletes sessions whose last activity is older than the cutoff and
// returns the number of sessions removed.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM messages WHERE session_id IN (
			SELECT session_id FROM messages
			GROUP BY session_id
			HAVING MAX(created_at) < ?
		)`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("session: purge rows affected: %w", err)
	}
	return n, nil
}

// messageScanner abstracts sql.Row and sql.Rows for scanMessage.
type messageScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row messageScanner) (provider.LLMMessage, error) {
	var (
		msg           provider.LLMMessage
		role          string
		toolCallsJSON string
		isError       int
	)
	if err := row.Scan(&role, &msg.Content, &msg.Name, &msg.ToolID, &toolCallsJSON, &isError); err != nil {
		return provider.LLMMessage{}, fmt.Errorf("session: scan message: %w", err)
	}
	msg.Role = provider.MessageRole(role)
	msg.IsError = isError != 0
	if toolCallsJSON != "" && toolCallsJSON != "[]" {
		if err := unmarshalToolCalls(toolCallsJSON, &msg); err != nil {
			return provider.LLMMessage{}, err
		}
	}
	return msg, nil
}
