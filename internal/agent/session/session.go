// Package session persists conversation history per (user, bot) pair.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kindredloop/kindred/internal/types"
)

// Manager stores and retrieves chat history backed by SQLite.
type Manager struct {
	db *sql.DB
}

// NewManager creates a session manager over an open connection.
func NewManager(db *sql.DB) *Manager {
	return &Manager{db: db}
}

// GetOrCreate returns the session id for a (user, bot) pair, creating the
// session row on first contact.
func (m *Manager) GetOrCreate(ctx context.Context, userID, botID string) (string, error) {
	var id string
	err := m.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE user_id = ? AND bot_id = ?`, userID, botID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	id = uuid.NewString()
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, bot_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, userID, botID, time.Now().UTC(), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// AppendExchange stores a user message and the assistant reply after a
// completed turn.
func (m *Manager) AppendExchange(ctx context.Context, sessionID, userContent, assistantContent string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_messages (session_id, role, content, created_at) VALUES (?, 'user', ?, ?)`,
		sessionID, userContent, now); err != nil {
		return fmt.Errorf("failed to append user message: %w", err)
	}
	if assistantContent != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_messages (session_id, role, content, created_at) VALUES (?, 'assistant', ?, ?)`,
			sessionID, assistantContent, now); err != nil {
			return fmt.Errorf("failed to append assistant message: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return tx.Commit()
}

// History returns the last limit messages in chronological order.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]types.Message, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM (
			SELECT id, role, content, created_at FROM session_messages
			WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Reset deletes all messages for a session, keeping the session row.
func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	if _, err := m.db.ExecContext(ctx,
		`DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return nil
}
