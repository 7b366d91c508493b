package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kindredloop/kindred/internal/agent/embeddings"
	"github.com/kindredloop/kindred/internal/types"
)

// Store is the persistence collaborator for memory records. Session history
// lives in internal/agent/session over the same connection.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for packages sharing the database.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// importanceRank orders importance levels in SQL, highest first.
const importanceRank = `CASE importance
	WHEN 'critical' THEN 3
	WHEN 'high' THEN 2
	WHEN 'medium' THEN 1
	ELSE 0 END`

// SaveMemory persists a new memory record. The embedding is stored as-is and
// never recomputed.
func (s *Store) SaveMemory(ctx context.Context, rec *types.MemoryRecord) error {
	keywords, err := json.Marshal(rec.Keywords)
	if err != nil {
		return fmt.Errorf("failed to encode keywords: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, bot_id, summary, embedding, event_type, event_date, importance, keywords, access_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		rec.ID, rec.UserID, rec.BotID, rec.Summary,
		embeddings.FloatsToBlob(rec.Embedding),
		rec.EventType, rec.EventDate, string(rec.ImportanceLevel), string(keywords), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save memory: %w", err)
	}
	return nil
}

// MemoriesByOwner returns every record for a (user, bot) pair, newest first.
func (s *Store) MemoriesByOwner(ctx context.Context, userID, botID string) ([]types.MemoryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, bot_id, summary, embedding, event_type, event_date, importance, keywords, access_count, created_at
		 FROM memories WHERE user_id = ? AND bot_id = ?
		 ORDER BY created_at DESC`,
		userID, botID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// MemoriesByEventTypes returns records matching any of the given event types,
// ordered by importance then recency. Empty eventTypes matches everything.
func (s *Store) MemoriesByEventTypes(ctx context.Context, userID, botID string, eventTypes []string, limit int) ([]types.MemoryRecord, error) {
	query := `SELECT id, user_id, bot_id, summary, embedding, event_type, event_date, importance, keywords, access_count, created_at
		 FROM memories WHERE user_id = ? AND bot_id = ?`
	args := []any{userID, botID}

	if len(eventTypes) > 0 {
		placeholders := strings.Repeat("?,", len(eventTypes))
		query += ` AND event_type IN (` + placeholders[:len(placeholders)-1] + `)`
		for _, et := range eventTypes {
			args = append(args, et)
		}
	}
	query += ` ORDER BY ` + importanceRank + ` DESC, created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories by event type: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// BumpAccessCount increments the access counter on the given records.
// Best effort; retrieval results never depend on it.
func (s *Store) BumpAccessCount(ctx context.Context, ids []string) {
	for _, id := range ids {
		_, _ = s.db.ExecContext(ctx,
			`UPDATE memories SET access_count = access_count + 1 WHERE id = ?`, id)
	}
}

func scanMemories(rows *sql.Rows) ([]types.MemoryRecord, error) {
	var records []types.MemoryRecord
	for rows.Next() {
		var rec types.MemoryRecord
		var blob []byte
		var keywords string
		var importance string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.BotID, &rec.Summary, &blob,
			&rec.EventType, &rec.EventDate, &importance, &keywords, &rec.AccessCount, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		rec.ImportanceLevel = types.ImportanceLevel(importance)
		if len(blob) > 0 {
			vec, err := embeddings.BlobToFloats(blob)
			if err == nil {
				rec.Embedding = vec
			}
		}
		if keywords != "" {
			_ = json.Unmarshal([]byte(keywords), &rec.Keywords)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
