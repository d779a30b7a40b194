// Package slack posts crisis alerts to a monitored channel so a human can
// follow up. Ora runs fine without it; alerts then only go out over NATS.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mehakx/oranew/internal/risk"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// SetAPIURL overrides the Slack endpoint. Used in tests.
func (p *Poster) SetAPIURL(url string) {
	p.apiURL = url
}

// PostCrisisAlert notifies the channel that a user's turn was assessed at
// high risk. The user's words are never included, only the assessment.
func (p *Poster) PostCrisisAlert(ctx context.Context, userID, turnID string, level risk.Level, resourceID string) error {
	text := fmt.Sprintf(":rotating_light: *Crisis assessment* — user `%s` assessed at *%s* risk.\nTurn `%s`, resource `%s`. Please follow the escalation runbook.",
		userID, level, turnID, resourceID)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("marshal slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read slack response: %w", err)
	}

	var apiResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("unmarshal slack response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("slack api error: %s", apiResp.Error)
	}

	p.logger.Info("crisis alert posted to slack", "user_id", userID, "turn_id", turnID)
	return nil
}
