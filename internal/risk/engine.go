// Package risk implements the crisis risk assessment engine.
//
// Every turn is scored from the current emotion classification plus a window
// of recent turns, with recency decay. The score maps onto discrete levels
// with hysteresis: once a user reaches high, the level cannot drop below
// medium until a cooldown elapses, and de-escalation afterwards moves one
// level per turn. A crisis-indicator label above the escalation confidence
// jumps straight to high regardless of history.
package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mehakx/oranew/internal/emotion"
)

// Config holds the scoring thresholds and hysteresis parameters.
type Config struct {
	LowThreshold    float64
	MediumThreshold float64
	HighThreshold   float64

	// EscalationConfidence is the minimum classifier confidence at which a
	// crisis-indicator label escalates directly to high.
	EscalationConfidence float64

	// MinUsableConfidence is the floor below which a classification is not
	// trusted and the previous level is carried forward.
	MinUsableConfidence float64

	// RecencyDecay is the per-turn multiplier applied to history
	// contributions, newest first.
	RecencyDecay float64

	// HistoryWindow caps how many prior turns contribute to the score.
	HistoryWindow int

	// Cooldown is how long the level is clamped to at least medium after a
	// high assessment.
	Cooldown time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		LowThreshold:         0.25,
		MediumThreshold:      0.5,
		HighThreshold:        0.8,
		EscalationConfidence: 0.8,
		MinUsableConfidence:  0.35,
		RecencyDecay:         0.7,
		HistoryWindow:        10,
		Cooldown:             30 * time.Minute,
	}
}

// Input is the classification of the turn being assessed.
type Input struct {
	Label      emotion.Label
	Confidence float64
}

// Observation is the view of a prior turn the engine scores against,
// ordered oldest to newest.
type Observation struct {
	Label      emotion.Label
	Confidence float64
	Level      Level
}

// Result is the outcome of assessing one turn.
type Result struct {
	Level         Level
	CrisisFlag    bool
	LowConfidence bool
	Score         float64
}

// Engine assesses turns and owns the per-user risk state. Turns for the same
// user are serialized; different users proceed independently.
type Engine struct {
	cfg    Config
	states StateStore
	locks  userLocks
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(states StateStore, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		states: states,
		logger: logger,
		now:    time.Now,
	}
}

// Assess scores the current turn against recent history and transactionally
// updates the user's risk state. A compare-and-swap conflict is retried once
// with a re-read; a second conflict fails the assessment.
func (e *Engine) Assess(ctx context.Context, userID string, in Input, history []Observation) (Result, error) {
	unlock := e.locks.lock(userID)
	defer unlock()

	res, err := e.assessOnce(ctx, userID, in, history)
	if errors.Is(err, ErrConflict) {
		e.logger.Warn("risk state write conflict, retrying", "user_id", userID)
		res, err = e.assessOnce(ctx, userID, in, history)
	}
	if err != nil {
		return Result{}, fmt.Errorf("assess user %s: %w", userID, err)
	}
	return res, nil
}

func (e *Engine) assessOnce(ctx context.Context, userID string, in Input, history []Observation) (Result, error) {
	st, err := e.states.GetRiskState(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		st = State{UserID: userID, Level: LevelNone}
	} else if err != nil {
		return Result{}, fmt.Errorf("read risk state: %w", err)
	}

	now := e.now()
	res := e.evaluate(st, in, history, now)

	st.Level = res.Level
	if res.Level == LevelHigh {
		st.ConsecutiveHigh++
		until := now.Add(e.cfg.Cooldown)
		st.CooldownUntil = &until
		if res.CrisisFlag {
			at := now
			st.LastCrisisAt = &at
		}
	} else {
		st.ConsecutiveHigh = 0
		if st.CooldownUntil != nil && !now.Before(*st.CooldownUntil) {
			st.CooldownUntil = nil
		}
	}

	if err := e.states.PutRiskState(ctx, st); err != nil {
		return Result{}, err
	}
	return res, nil
}

// evaluate computes the next level without touching storage.
func (e *Engine) evaluate(st State, in Input, history []Observation, now time.Time) Result {
	// Unreliable classification: carry the previous level forward and mark
	// the turn for audit rather than computing a fresh score.
	if in.Confidence < e.cfg.MinUsableConfidence {
		return Result{Level: st.Level, LowConfidence: true}
	}

	score := e.score(in, history)
	target := e.levelFor(score)

	escalate := in.Label.IsCrisisIndicator() && in.Confidence >= e.cfg.EscalationConfidence
	inCooldown := st.CooldownUntil != nil && now.Before(*st.CooldownUntil)

	var next Level
	switch {
	case escalate:
		next = LevelHigh
	case target.rank() > st.Level.rank():
		// Gradual escalation moves one level per turn.
		next = stepUp(st.Level)
	case target.rank() < st.Level.rank():
		next = maxLevel(target, stepDown(st.Level))
		if inCooldown {
			next = maxLevel(next, LevelMedium)
		}
	default:
		next = st.Level
	}

	return Result{
		Level:      next,
		CrisisFlag: next == LevelHigh,
		Score:      score,
	}
}

// score computes the weighted risk score: a direct term for the current
// classification plus decayed contributions from high-risk labels in the
// history window.
func (e *Engine) score(in Input, history []Observation) float64 {
	var s float64
	switch {
	case in.Label.IsCrisisIndicator():
		s += in.Confidence
	case in.Label.HighRisk():
		s += 0.5 * in.Confidence
	}

	n := len(history)
	if n > e.cfg.HistoryWindow {
		history = history[n-e.cfg.HistoryWindow:]
		n = len(history)
	}
	for i, obs := range history {
		if !obs.Label.HighRisk() {
			continue
		}
		age := n - i // newest prior turn has age 1
		weight := 0.4
		if obs.Label.IsCrisisIndicator() {
			weight = 0.6
		}
		s += weight * obs.Confidence * math.Pow(e.cfg.RecencyDecay, float64(age))
	}
	return s
}

func (e *Engine) levelFor(score float64) Level {
	switch {
	case score >= e.cfg.HighThreshold:
		return LevelHigh
	case score >= e.cfg.MediumThreshold:
		return LevelMedium
	case score >= e.cfg.LowThreshold:
		return LevelLow
	default:
		return LevelNone
	}
}
