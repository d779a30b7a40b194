// Package classifier maps raw utterance text to an emotion label with a
// confidence. The primary path is an LLM call; a local keyword fallback
// covers outages so a turn is never dropped for classification reasons.
package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/openai"
)

// ErrUnavailable is returned when the remote classifier cannot produce a
// usable result. Callers treat it as low-confidence input, not a failure.
var ErrUnavailable = errors.New("emotion classifier unavailable")

// Classification is the classifier verdict for one utterance.
type Classification struct {
	Label      emotion.Label
	Confidence float64
}

type Client struct {
	llm    *openai.Client
	logger *slog.Logger
}

func New(llm *openai.Client, logger *slog.Logger) *Client {
	return &Client{llm: llm, logger: logger}
}

const systemPrompt = `You classify the emotion of one user message from a wellness conversation.
Respond with only a JSON object: {"emotion": "<label>", "confidence": <0..1>}.
The label must be one of: neutral, joy, sadness, anger, fear, anxiety, stress, depression, despair.
Use "despair" only for hopelessness or self-harm ideation.`

type classifierPayload struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// Classify labels the text via the LLM. Network failures and unparseable
// output return ErrUnavailable.
func (c *Client) Classify(ctx context.Context, text string) (Classification, error) {
	raw, err := c.llm.Complete(ctx, systemPrompt, []openai.Message{{Role: "user", Content: text}}, 50)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	payload, err := parsePayload(raw)
	if err != nil {
		c.logger.Warn("classifier output unparseable", "raw", raw, "error", err)
		return Classification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	label, ok := emotion.Parse(strings.ToLower(strings.TrimSpace(payload.Emotion)))
	if !ok {
		return Classification{}, fmt.Errorf("%w: unknown label %q", ErrUnavailable, payload.Emotion)
	}

	conf := payload.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return Classification{Label: label, Confidence: conf}, nil
}

// parsePayload extracts the first JSON object from the model output.
func parsePayload(content string) (*classifierPayload, error) {
	trimmed := strings.TrimSpace(content)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("missing json object")
	}

	payload := &classifierPayload{}
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), payload); err != nil {
		return nil, err
	}
	return payload, nil
}
