package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/risk"
)

// Turn is one user utterance with its derived emotion and risk metadata.
// Turns are append-only and immutable once written.
type Turn struct {
	ID                uuid.UUID     `json:"id"`
	UserID            string        `json:"user_id"`
	CreatedAt         time.Time     `json:"created_at"`
	RawText           string        `json:"raw_text"`
	EmotionLabel      emotion.Label `json:"emotion_label"`
	EmotionConfidence float64       `json:"emotion_confidence"`
	RiskLevel         risk.Level    `json:"risk_level"`
	CrisisFlag        bool          `json:"crisis_flag"`
	LowConfidence     bool          `json:"low_confidence"`

	// ExerciseID records the exercise chosen for this turn, empty when the
	// protocol choice was not an exercise.
	ExerciseID string `json:"exercise_id,omitempty"`
}

// AppendTurn writes a turn to the log.
func (s *Store) AppendTurn(ctx context.Context, t Turn) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO turns (id, user_id, created_at, raw_text, emotion_label, emotion_confidence, risk_level, crisis_flag, low_confidence, exercise_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, t.CreatedAt, t.RawText, string(t.EmotionLabel), t.EmotionConfidence,
		string(t.RiskLevel), t.CrisisFlag, t.LowConfidence, t.ExerciseID,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// RecentTurns returns up to n most recent turns for a user, ordered oldest
// to newest.
func (s *Store) RecentTurns(ctx context.Context, userID string, n int) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, created_at, raw_text, emotion_label, emotion_confidence, risk_level, crisis_flag, low_confidence, exercise_id
		FROM turns
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Reverse into oldest-first order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// TurnsSince returns all turns for a user at or after the given time,
// ordered oldest to newest.
func (s *Store) TurnsSince(ctx context.Context, userID string, since time.Time) ([]Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, created_at, raw_text, emotion_label, emotion_confidence, risk_level, crisis_flag, low_confidence, exercise_id
		FROM turns
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns since: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTurns(rows rowScanner) ([]Turn, error) {
	var turns []Turn
	for rows.Next() {
		var t Turn
		var label, level string
		err := rows.Scan(&t.ID, &t.UserID, &t.CreatedAt, &t.RawText, &label, &t.EmotionConfidence,
			&level, &t.CrisisFlag, &t.LowConfidence, &t.ExerciseID)
		if err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.EmotionLabel = emotion.Label(label)
		t.RiskLevel = risk.Level(level)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	return turns, nil
}
