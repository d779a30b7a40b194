// Package insights derives therapeutic observations from a user's recent
// turns via the LLM and persists them alongside the conversation log.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mehakx/oranew/internal/openai"
	"github.com/mehakx/oranew/internal/store"
)

const systemPrompt = `You are a therapeutic assistant reviewing a short conversation history.
Identify 2-3 key insights about the user's emotional patterns, therapeutic needs, or behavioral trends.
Respond with only a JSON array of strings, one insight per entry.`

// TurnSource provides the most recent turns for a user, oldest first.
type TurnSource interface {
	RecentTurns(ctx context.Context, userID string, n int) ([]store.Turn, error)
}

// Sink persists generated insights.
type Sink interface {
	AddInsight(ctx context.Context, ins store.Insight) error
}

type Generator struct {
	llm    *openai.Client
	turns  TurnSource
	sink   Sink
	logger *slog.Logger
}

func NewGenerator(llm *openai.Client, turns TurnSource, sink Sink, logger *slog.Logger) *Generator {
	return &Generator{llm: llm, turns: turns, sink: sink, logger: logger}
}

// Generate summarizes the user's last 10 turns into insights and stores them.
// A user with no history yields no insights and no error.
func (g *Generator) Generate(ctx context.Context, userID string) ([]store.Insight, error) {
	turns, err := g.turns.RecentTurns(ctx, userID, 10)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	if len(turns) == 0 {
		return nil, nil
	}

	prompt := formatTranscript(turns)
	raw, err := g.llm.Complete(ctx, systemPrompt, []openai.Message{{Role: "user", Content: prompt}}, 400)
	if err != nil {
		return nil, fmt.Errorf("llm insights: %w", err)
	}

	contents, err := parseInsights(raw)
	if err != nil {
		g.logger.Error("failed to parse insights response", "error", err, "raw", raw)
		return nil, fmt.Errorf("parse insights: %w", err)
	}

	now := time.Now().UTC()
	out := make([]store.Insight, 0, len(contents))
	for _, content := range contents {
		ins := store.Insight{
			ID:        uuid.New(),
			UserID:    userID,
			Kind:      "pattern",
			Content:   content,
			CreatedAt: now,
		}
		if err := g.sink.AddInsight(ctx, ins); err != nil {
			return nil, fmt.Errorf("store insight: %w", err)
		}
		out = append(out, ins)
	}

	g.logger.Info("insights generated", "user_id", userID, "count", len(out))
	return out, nil
}

func formatTranscript(turns []store.Turn) string {
	var b strings.Builder
	for i, t := range turns {
		fmt.Fprintf(&b, "Turn %d (%s, risk=%s): %s\n", i+1, t.EmotionLabel, t.RiskLevel, t.RawText)
	}
	return b.String()
}

// parseInsights extracts the JSON string array from the model output,
// tolerating surrounding prose or code fences.
func parseInsights(content string) ([]string, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("missing json array")
	}

	var out []string
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &out); err != nil {
		return nil, err
	}

	filtered := out[:0]
	for _, s := range out {
		if s = strings.TrimSpace(s); s != "" {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}
