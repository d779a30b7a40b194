// Package progress computes longitudinal trend metrics from a user's turn
// history on demand. It is read-only and runs concurrently with writes;
// results are as-of query time.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/store"
)

// Snapshot is a derived view of a user's emotional trend over a window.
// Metric fields are nil when the window holds no turns (or, for
// ImprovementDelta, fewer than two).
type Snapshot struct {
	UserID           string         `json:"user_id"`
	WindowStart      time.Time      `json:"window_start"`
	WindowEnd        time.Time      `json:"window_end"`
	TurnCount        int            `json:"turn_count"`
	DominantEmotion  *emotion.Label `json:"dominant_emotion"`
	VolatilityScore  *float64       `json:"volatility_score"`
	ImprovementDelta *float64       `json:"improvement_delta"`
}

// TurnSource provides the turns in a window, ordered oldest to newest.
type TurnSource interface {
	TurnsSince(ctx context.Context, userID string, since time.Time) ([]store.Turn, error)
}

type Analyzer struct {
	turns TurnSource
	now   func() time.Time
}

func NewAnalyzer(turns TurnSource) *Analyzer {
	return &Analyzer{turns: turns, now: time.Now}
}

// Analyze computes the snapshot for the trailing windowDays. An empty window
// yields a sentinel snapshot with nil metrics, not an error.
func (a *Analyzer) Analyze(ctx context.Context, userID string, windowDays int) (Snapshot, error) {
	end := a.now()
	start := end.AddDate(0, 0, -windowDays)

	snap := Snapshot{UserID: userID, WindowStart: start, WindowEnd: end}

	turns, err := a.turns.TurnsSince(ctx, userID, start)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load turns for %s: %w", userID, err)
	}
	snap.TurnCount = len(turns)
	if len(turns) == 0 {
		return snap, nil
	}

	dominant := dominantEmotion(turns)
	snap.DominantEmotion = &dominant

	vol := volatility(turns)
	snap.VolatilityScore = &vol

	if len(turns) >= 2 {
		delta := improvementDelta(turns)
		snap.ImprovementDelta = &delta
	}
	return snap, nil
}

// dominantEmotion is the mode of the labels, ties broken by most recent
// occurrence.
func dominantEmotion(turns []store.Turn) emotion.Label {
	counts := make(map[emotion.Label]int)
	lastSeen := make(map[emotion.Label]int)
	for i, t := range turns {
		counts[t.EmotionLabel]++
		lastSeen[t.EmotionLabel] = i
	}

	var best emotion.Label
	bestCount, bestSeen := -1, -1
	for label, count := range counts {
		seen := lastSeen[label]
		if count > bestCount || (count == bestCount && seen > bestSeen) {
			best, bestCount, bestSeen = label, count, seen
		}
	}
	return best
}

// volatility is the count of label transitions between consecutive turns
// divided by the turn count: 0 = stable, approaching 1 = maximally volatile.
func volatility(turns []store.Turn) float64 {
	transitions := 0
	for i := 1; i < len(turns); i++ {
		if turns[i].EmotionLabel != turns[i-1].EmotionLabel {
			transitions++
		}
	}
	return float64(transitions) / float64(len(turns))
}

// improvementDelta is the mean valence of the second half of the window
// minus that of the first half; positive means improving.
func improvementDelta(turns []store.Turn) float64 {
	mid := (len(turns) + 1) / 2
	return meanValence(turns[mid:]) - meanValence(turns[:mid])
}

func meanValence(turns []store.Turn) float64 {
	if len(turns) == 0 {
		return 0
	}
	var sum float64
	for _, t := range turns {
		sum += t.EmotionLabel.Valence()
	}
	return sum / float64(len(turns))
}
