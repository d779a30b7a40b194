package risk

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a StateStore when a user has no risk state yet.
var ErrNotFound = errors.New("risk state not found")

// ErrConflict is returned by a StateStore when a compare-and-swap write lost
// a race with another writer.
var ErrConflict = errors.New("risk state version conflict")

// State is the persistent per-user risk record. There is exactly one State
// per user; the assessment engine is its only writer.
type State struct {
	UserID          string
	Level           Level
	ConsecutiveHigh int
	LastCrisisAt    *time.Time
	CooldownUntil   *time.Time

	// Version is the optimistic-concurrency counter. Zero means the state
	// has never been persisted.
	Version int64
}

// StateStore persists per-user risk states with compare-and-swap semantics.
type StateStore interface {
	// GetRiskState returns the current state for a user, or ErrNotFound.
	GetRiskState(ctx context.Context, userID string) (State, error)

	// PutRiskState writes the state if and only if the stored version still
	// matches st.Version. A lost race returns ErrConflict.
	PutRiskState(ctx context.Context, st State) error
}
