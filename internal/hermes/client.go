// Package hermes wraps the NATS connection used for event exchange with the
// rest of the ora deployment: utterance ingestion from the voice gateway and
// crisis alert publication for downstream escalation handlers.
package hermes

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectCrisisDetected carries CrisisAlert payloads for every turn assessed
// at high risk.
const SubjectCrisisDetected = "ora.risk.crisis"

// SubjectUtterance carries UtteranceEvent payloads from the voice gateway.
const SubjectUtterance = "ora.gateway.utterance"

// CrisisAlert is emitted when a turn is assessed at high risk so escalation
// handlers (on-call notification, human review) can act immediately.
type CrisisAlert struct {
	UserID     string `json:"user_id"`
	TurnID     string `json:"turn_id"`
	RiskLevel  string `json:"risk_level"`
	ResourceID string `json:"resource_id"`
	Timestamp  string `json:"timestamp"`
}

// UtteranceEvent is the gateway payload for one spoken or typed utterance.
type UtteranceEvent struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
