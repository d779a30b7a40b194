package store

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS turns (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		raw_text TEXT NOT NULL,
		emotion_label TEXT NOT NULL,
		emotion_confidence DOUBLE PRECISION NOT NULL,
		risk_level TEXT NOT NULL,
		crisis_flag BOOLEAN NOT NULL DEFAULT false,
		low_confidence BOOLEAN NOT NULL DEFAULT false,
		exercise_id TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_turns_user_created ON turns (user_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS risk_states (
		user_id TEXT PRIMARY KEY,
		risk_level TEXT NOT NULL,
		consecutive_high INT NOT NULL DEFAULT 0,
		last_crisis_at TIMESTAMPTZ,
		cooldown_until TIMESTAMPTZ,
		version BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS insights (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_insights_user_created ON insights (user_id, created_at)`,
}

// EnsureSchema creates the store tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
