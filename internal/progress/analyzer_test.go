package progress

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/store"
)

type fakeTurnSource struct {
	turns []store.Turn
	since time.Time
}

func (f *fakeTurnSource) TurnsSince(_ context.Context, _ string, since time.Time) ([]store.Turn, error) {
	f.since = since
	return f.turns, nil
}

func fixedAnalyzer(src TurnSource) *Analyzer {
	a := NewAnalyzer(src)
	a.now = func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }
	return a
}

func turnsWithLabels(labels ...emotion.Label) []store.Turn {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	turns := make([]store.Turn, len(labels))
	for i, l := range labels {
		turns[i] = store.Turn{UserID: "u1", EmotionLabel: l, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
	}
	return turns
}

func TestAnalyze_EmptyWindowSentinel(t *testing.T) {
	a := fixedAnalyzer(&fakeTurnSource{})

	snap, err := a.Analyze(context.Background(), "u1", 30)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.TurnCount != 0 {
		t.Errorf("expected 0 turns, got %d", snap.TurnCount)
	}
	if snap.DominantEmotion != nil || snap.VolatilityScore != nil || snap.ImprovementDelta != nil {
		t.Error("expected nil metrics for empty window")
	}
	if snap.UserID != "u1" {
		t.Errorf("expected user id on sentinel, got %q", snap.UserID)
	}
}

func TestAnalyze_WindowBounds(t *testing.T) {
	src := &fakeTurnSource{}
	a := fixedAnalyzer(src)

	if _, err := a.Analyze(context.Background(), "u1", 10); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	want := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	if !src.since.Equal(want) {
		t.Errorf("expected window start %v, got %v", want, src.since)
	}
}

func TestAnalyze_AlternatingVolatility(t *testing.T) {
	// 20 alternating joy/sadness turns: 19 transitions / 20 turns = 0.95.
	labels := make([]emotion.Label, 20)
	for i := range labels {
		if i%2 == 0 {
			labels[i] = emotion.Joy
		} else {
			labels[i] = emotion.Sadness
		}
	}
	a := fixedAnalyzer(&fakeTurnSource{turns: turnsWithLabels(labels...)})

	snap, err := a.Analyze(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.VolatilityScore == nil || math.Abs(*snap.VolatilityScore-0.95) > 1e-9 {
		t.Fatalf("expected volatility 0.95, got %v", snap.VolatilityScore)
	}

	// 10 joy and 10 sadness: the tie breaks to the most recent occurrence,
	// which is the sadness turn at index 19.
	if snap.DominantEmotion == nil || *snap.DominantEmotion != emotion.Sadness {
		t.Errorf("expected dominant sadness by recency tiebreak, got %v", snap.DominantEmotion)
	}
}

func TestAnalyze_StableVolatility(t *testing.T) {
	a := fixedAnalyzer(&fakeTurnSource{turns: turnsWithLabels(emotion.Neutral, emotion.Neutral, emotion.Neutral)})

	snap, err := a.Analyze(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.VolatilityScore == nil || *snap.VolatilityScore != 0 {
		t.Errorf("expected volatility 0, got %v", snap.VolatilityScore)
	}
}

func TestAnalyze_DominantByCount(t *testing.T) {
	a := fixedAnalyzer(&fakeTurnSource{turns: turnsWithLabels(
		emotion.Sadness, emotion.Sadness, emotion.Sadness, emotion.Joy,
	)})

	snap, err := a.Analyze(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.DominantEmotion == nil || *snap.DominantEmotion != emotion.Sadness {
		t.Errorf("expected sadness dominant, got %v", snap.DominantEmotion)
	}
}

func TestAnalyze_ImprovementDelta(t *testing.T) {
	// Sadness first half (-0.6), joy second half (+0.8): delta = +1.4.
	a := fixedAnalyzer(&fakeTurnSource{turns: turnsWithLabels(
		emotion.Sadness, emotion.Sadness, emotion.Joy, emotion.Joy,
	)})

	snap, err := a.Analyze(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.ImprovementDelta == nil {
		t.Fatal("expected improvement delta")
	}
	if math.Abs(*snap.ImprovementDelta-1.4) > 1e-9 {
		t.Errorf("expected delta 1.4, got %f", *snap.ImprovementDelta)
	}

	// Reversed order: declining, delta negative.
	a = fixedAnalyzer(&fakeTurnSource{turns: turnsWithLabels(
		emotion.Joy, emotion.Joy, emotion.Sadness, emotion.Sadness,
	)})
	snap, err = a.Analyze(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.ImprovementDelta == nil || *snap.ImprovementDelta >= 0 {
		t.Errorf("expected negative delta, got %v", snap.ImprovementDelta)
	}
}

func TestAnalyze_SingleTurnHasNoDelta(t *testing.T) {
	a := fixedAnalyzer(&fakeTurnSource{turns: turnsWithLabels(emotion.Joy)})

	snap, err := a.Analyze(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if snap.ImprovementDelta != nil {
		t.Errorf("expected nil delta for single turn, got %v", *snap.ImprovementDelta)
	}
	if snap.VolatilityScore == nil || *snap.VolatilityScore != 0 {
		t.Errorf("expected volatility 0 for single turn, got %v", snap.VolatilityScore)
	}
}
