// Package processor orchestrates ora's turn pipeline: classify the
// utterance, assess risk against recent history, append the turn, select a
// therapeutic protocol, and fan out crisis alerts.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mehakx/oranew/internal/classifier"
	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/hermes"
	"github.com/mehakx/oranew/internal/protocol"
	"github.com/mehakx/oranew/internal/risk"
	"github.com/mehakx/oranew/internal/slack"
	"github.com/mehakx/oranew/internal/store"
)

// ErrAssessmentFailed means the turn could not be safely assessed or
// recorded. The caller must surface it; a crisis check is never skipped
// silently.
var ErrAssessmentFailed = errors.New("risk assessment failed")

// Classifier labels a single utterance.
type Classifier interface {
	Classify(ctx context.Context, text string) (classifier.Classification, error)
}

// TurnStore is the conversation-store surface the processor needs.
type TurnStore interface {
	AppendTurn(ctx context.Context, t store.Turn) error
	RecentTurns(ctx context.Context, userID string, n int) ([]store.Turn, error)
}

// Publisher delivers events to the rest of the deployment.
type Publisher interface {
	Publish(subject string, data any) error
}

// InsightGenerator refreshes a user's therapeutic insights.
type InsightGenerator interface {
	Generate(ctx context.Context, userID string) ([]store.Insight, error)
}

// Outcome is the result of processing one turn.
type Outcome struct {
	TurnID        uuid.UUID       `json:"turn_id"`
	RiskLevel     risk.Level      `json:"risk_level"`
	CrisisFlag    bool            `json:"crisis_flag"`
	LowConfidence bool            `json:"low_confidence"`
	Protocol      protocol.Choice `json:"protocol"`
}

type Processor struct {
	store      TurnStore
	classifier Classifier
	engine     *risk.Engine
	selector   *protocol.Selector
	insights   InsightGenerator // optional
	hermes     Publisher        // optional
	slack      *slack.Poster    // optional
	logger     *slog.Logger

	historyWindow int
	insightEvery  int

	mu        sync.Mutex
	turnsSeen map[string]int
}

func New(s TurnStore, cls Classifier, engine *risk.Engine, selector *protocol.Selector,
	gen InsightGenerator, h Publisher, sl *slack.Poster, historyWindow, insightEvery int, logger *slog.Logger) *Processor {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Processor{
		store:         s,
		classifier:    cls,
		engine:        engine,
		selector:      selector,
		insights:      gen,
		hermes:        h,
		slack:         sl,
		logger:        logger,
		historyWindow: historyWindow,
		insightEvery:  insightEvery,
		turnsSeen:     make(map[string]int),
	}
}

// HandleTurn runs the full pipeline for one utterance. Classifier outages
// degrade to the keyword fallback; store failures fail the call with
// ErrAssessmentFailed.
func (p *Processor) HandleTurn(ctx context.Context, userID, text string) (Outcome, error) {
	cls, err := p.classifier.Classify(ctx, text)
	if err != nil {
		p.logger.Warn("classifier unavailable, using keyword fallback", "user_id", userID, "error", err)
		cls = classifier.FallbackClassify(text)
	}

	history, err := p.store.RecentTurns(ctx, userID, p.historyWindow)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: load history: %v", ErrAssessmentFailed, err)
	}

	obs := make([]risk.Observation, len(history))
	for i, t := range history {
		obs[i] = risk.Observation{Label: t.EmotionLabel, Confidence: t.EmotionConfidence, Level: t.RiskLevel}
	}

	res, err := p.engine.Assess(ctx, userID, risk.Input{Label: cls.Label, Confidence: cls.Confidence}, obs)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrAssessmentFailed, err)
	}

	choice := p.selector.Select(res.Level, dominantEmotion(history, cls.Label), recentExerciseIDs(history))

	turn := store.Turn{
		ID:                uuid.New(),
		UserID:            userID,
		CreatedAt:         time.Now().UTC(),
		RawText:           text,
		EmotionLabel:      cls.Label,
		EmotionConfidence: cls.Confidence,
		RiskLevel:         res.Level,
		CrisisFlag:        res.CrisisFlag,
		LowConfidence:     res.LowConfidence,
		ExerciseID:        choice.ExerciseID,
	}
	if err := p.store.AppendTurn(ctx, turn); err != nil {
		return Outcome{}, fmt.Errorf("%w: append turn: %v", ErrAssessmentFailed, err)
	}

	if res.CrisisFlag {
		p.alertCrisis(ctx, turn, choice)
	}

	p.maybeGenerateInsights(userID)

	p.logger.Info("turn processed",
		"user_id", userID,
		"turn_id", turn.ID,
		"emotion", cls.Label,
		"risk_level", res.Level,
		"crisis", res.CrisisFlag,
		"low_confidence", res.LowConfidence,
		"protocol", choice.Kind,
	)

	return Outcome{
		TurnID:        turn.ID,
		RiskLevel:     res.Level,
		CrisisFlag:    res.CrisisFlag,
		LowConfidence: res.LowConfidence,
		Protocol:      choice,
	}, nil
}

// HandleUtterance is the NATS handler for gateway utterance events.
func (p *Processor) HandleUtterance(subject string, data []byte) {
	var evt hermes.UtteranceEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse utterance event", "error", err)
		return
	}
	if evt.UserID == "" || evt.Text == "" {
		p.logger.Warn("utterance event missing fields", "user_id", evt.UserID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	out, err := p.HandleTurn(ctx, evt.UserID, evt.Text)
	if err != nil {
		p.logger.Error("utterance processing failed", "user_id", evt.UserID, "error", err)
		return
	}
	p.logger.Info("utterance processed", "user_id", evt.UserID, "turn_id", out.TurnID, "risk_level", out.RiskLevel)
}

// alertCrisis fans a crisis assessment out to NATS and Slack. Delivery
// failures are logged, never returned: the flag has already been persisted
// and surfaced to the caller.
func (p *Processor) alertCrisis(ctx context.Context, turn store.Turn, choice protocol.Choice) {
	if p.hermes != nil {
		alert := hermes.CrisisAlert{
			UserID:     turn.UserID,
			TurnID:     turn.ID.String(),
			RiskLevel:  string(turn.RiskLevel),
			ResourceID: choice.ResourceID,
			Timestamp:  turn.CreatedAt.Format(time.RFC3339),
		}
		if err := p.hermes.Publish(hermes.SubjectCrisisDetected, alert); err != nil {
			p.logger.Warn("failed to publish crisis alert", "user_id", turn.UserID, "error", err)
		}
	}
	if p.slack != nil {
		if err := p.slack.PostCrisisAlert(ctx, turn.UserID, turn.ID.String(), turn.RiskLevel, choice.ResourceID); err != nil {
			p.logger.Warn("failed to post crisis alert to slack", "user_id", turn.UserID, "error", err)
		}
	}
}

// maybeGenerateInsights refreshes insights every insightEvery turns per
// user, off the hot path.
func (p *Processor) maybeGenerateInsights(userID string) {
	if p.insights == nil || p.insightEvery <= 0 {
		return
	}

	p.mu.Lock()
	p.turnsSeen[userID]++
	due := p.turnsSeen[userID]%p.insightEvery == 0
	p.mu.Unlock()
	if !due {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := p.insights.Generate(ctx, userID); err != nil {
			p.logger.Warn("insight generation failed", "user_id", userID, "error", err)
		}
	}()
}

// dominantEmotion is the mode over the history window plus the current
// label, ties broken by most recent occurrence (the current label wins any
// tie it is part of).
func dominantEmotion(history []store.Turn, current emotion.Label) emotion.Label {
	counts := map[emotion.Label]int{current: 1}
	lastSeen := map[emotion.Label]int{current: len(history)}
	for i, t := range history {
		counts[t.EmotionLabel]++
		if lastSeen[t.EmotionLabel] < i {
			lastSeen[t.EmotionLabel] = i
		}
	}

	best := current
	bestCount, bestSeen := counts[current], lastSeen[current]
	for label, count := range counts {
		if count > bestCount || (count == bestCount && lastSeen[label] > bestSeen) {
			best, bestCount, bestSeen = label, count, lastSeen[label]
		}
	}
	return best
}

func recentExerciseIDs(history []store.Turn) []string {
	var ids []string
	for _, t := range history {
		if t.ExerciseID != "" {
			ids = append(ids, t.ExerciseID)
		}
	}
	return ids
}
