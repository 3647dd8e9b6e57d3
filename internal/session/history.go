package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/yengalvez/a-movies/internal/provider"
)

// Append adds a message to the session's history.
func (s *Store) Append(ctx context.Context, sessionID string, msg provider.LLMMessage) error {
	var toolCallsJSON []byte
	if len(msg.ToolCalls) > 0 {
		var err error
		toolCallsJSON, err = json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("session: marshal tool_calls: %w", err)
		}
	} else {
		toolCallsJSON = []byte("[]")
	}

	isError := 0
	if msg.IsError {
		isError = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (session_id, seq, role, content, name, tool_id, tool_calls, is_error)
		VALUES (?, COALESCE((SELECT MAX(seq) FROM messages WHERE session_id = ?), 0) + 1,
		        ?, ?, ?, ?, ?, ?)`,
		sessionID, sessionID,
		string(msg.Role), msg.Content, msg.Name, msg.ToolID, string(toolCallsJSON), isError,
	)
	if err != nil {
		return fmt.Errorf("session: append message: %w", err)
	}

	return nil
}

// GetRecent returns the n most recent messages for a session in
// chronological order.
func (s *Store) GetRecent(ctx context.Context, sessionID string, n int) ([]provider.LLMMessage, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, name, tool_id, tool_calls, is_error
		FROM messages
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("session: get recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []provider.LLMMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: get recent rows: %w", err)
	}

	// Reverse to chronological order.
	slices.Reverse(msgs)
	return msgs, nil
}

// Clear removes all messages for a session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("session: clear: %w", err)
	}
	return nil
}

func unmarshalToolCalls(raw string, msg *provider.LLMMessage) error {
	if err := json.Unmarshal([]byte(raw), &msg.ToolCalls); err != nil {
		return fmt.Errorf("session: unmarshal tool_calls: %w", err)
	}
	return nil
}
