package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Insight is a stored therapeutic observation about a user, generated from
// their recent conversation history.
type Insight struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"` // pattern | recommendation
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AddInsight stores one insight.
func (s *Store) AddInsight(ctx context.Context, ins Insight) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO insights (id, user_id, kind, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ins.ID, ins.UserID, ins.Kind, ins.Content, ins.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// InsightsByUser returns up to limit most recent insights for a user,
// newest first.
func (s *Store) InsightsByUser(ctx context.Context, userID string, limit int) ([]Insight, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, kind, content, created_at
		FROM insights
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	var out []Insight
	for rows.Next() {
		var ins Insight
		if err := rows.Scan(&ins.ID, &ins.UserID, &ins.Kind, &ins.Content, &ins.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan insight row: %w", err)
		}
		out = append(out, ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate insight rows: %w", err)
	}
	return out, nil
}
