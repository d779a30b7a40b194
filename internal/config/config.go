package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port          int
	NatsURL       string
	NatsToken     string
	DatabaseURL   string
	LogLevel      string
	OpenAIAPIKey  string
	OpenAIModel   string
	SlackBotToken string
	SlackChannel  string
	APIToken      string
	Region        string

	// Assessment tuning.
	LowThreshold         float64
	MediumThreshold      float64
	HighThreshold        float64
	EscalationConfidence float64
	MinConfidence        float64
	RecencyDecay         float64
	HistoryWindow        int
	Cooldown             time.Duration

	// Protocol and insight cadence.
	NoveltyWindow int
	InsightEvery  int
}

func Load() Config {
	return Config{
		Port:          envInt("ORA_PORT", 8760),
		NatsURL:       envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:     envStr("NATS_TOKEN", ""),
		DatabaseURL:   envStr("DATABASE_URL", ""),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		OpenAIAPIKey:  envStr("OPENAI_API_KEY", ""),
		OpenAIModel:   envStr("ORA_MODEL", "gpt-4o-mini"),
		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CRISIS_CHANNEL", ""),
		APIToken:      envStr("ORA_API_TOKEN", ""),
		Region:        envStr("ORA_REGION", "US"),

		LowThreshold:         envFloat("ORA_RISK_LOW", 0.25),
		MediumThreshold:      envFloat("ORA_RISK_MEDIUM", 0.5),
		HighThreshold:        envFloat("ORA_RISK_HIGH", 0.8),
		EscalationConfidence: envFloat("ORA_ESCALATION_CONFIDENCE", 0.8),
		MinConfidence:        envFloat("ORA_MIN_CONFIDENCE", 0.35),
		RecencyDecay:         envFloat("ORA_RECENCY_DECAY", 0.7),
		HistoryWindow:        envInt("ORA_HISTORY_WINDOW", 10),
		Cooldown:             envDuration("ORA_CRISIS_COOLDOWN", 30*time.Minute),

		NoveltyWindow: envInt("ORA_NOVELTY_WINDOW", 5),
		InsightEvery:  envInt("ORA_INSIGHT_EVERY", 5),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
