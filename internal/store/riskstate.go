package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mehakx/oranew/internal/risk"
)

// GetRiskState fetches the risk state for a user. Returns risk.ErrNotFound
// when the user has no state yet.
func (s *Store) GetRiskState(ctx context.Context, userID string) (risk.State, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT user_id, risk_level, consecutive_high, last_crisis_at, cooldown_until, version
		FROM risk_states
		WHERE user_id = $1`,
		userID,
	)

	var st risk.State
	var level string
	err := row.Scan(&st.UserID, &level, &st.ConsecutiveHigh, &st.LastCrisisAt, &st.CooldownUntil, &st.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return risk.State{}, risk.ErrNotFound
	}
	if err != nil {
		return risk.State{}, fmt.Errorf("scan risk state: %w", err)
	}
	st.Level = risk.Level(level)
	return st, nil
}

// PutRiskState writes a risk state with compare-and-swap semantics on the
// version counter. A version of zero inserts; anything else updates only if
// the stored version still matches. Lost races return risk.ErrConflict.
func (s *Store) PutRiskState(ctx context.Context, st risk.State) error {
	if st.Version == 0 {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO risk_states (user_id, risk_level, consecutive_high, last_crisis_at, cooldown_until, version)
			VALUES ($1, $2, $3, $4, $5, 1)`,
			st.UserID, string(st.Level), st.ConsecutiveHigh, st.LastCrisisAt, st.CooldownUntil,
		)
		if isUniqueViolation(err) {
			return risk.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert risk state: %w", err)
		}
		return nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE risk_states
		SET risk_level = $1, consecutive_high = $2, last_crisis_at = $3, cooldown_until = $4, version = $5
		WHERE user_id = $6 AND version = $7`,
		string(st.Level), st.ConsecutiveHigh, st.LastCrisisAt, st.CooldownUntil, st.Version+1,
		st.UserID, st.Version,
	)
	if err != nil {
		return fmt.Errorf("update risk state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return risk.ErrConflict
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
