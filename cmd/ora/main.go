package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mehakx/oranew/internal/api"
	"github.com/mehakx/oranew/internal/classifier"
	"github.com/mehakx/oranew/internal/config"
	"github.com/mehakx/oranew/internal/hermes"
	"github.com/mehakx/oranew/internal/insights"
	"github.com/mehakx/oranew/internal/openai"
	"github.com/mehakx/oranew/internal/processor"
	"github.com/mehakx/oranew/internal/progress"
	"github.com/mehakx/oranew/internal/protocol"
	"github.com/mehakx/oranew/internal/risk"
	"github.com/mehakx/oranew/internal/slack"
	"github.com/mehakx/oranew/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("ora starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// OpenAI client
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	slog.Info("openai client ready", "model", cfg.OpenAIModel)

	// Emotion classifier with local keyword fallback
	cls := classifier.New(llm, slog.Default())

	// Risk engine
	engine := risk.NewEngine(db, riskConfig(cfg), slog.Default())

	// Protocol selector
	selector := protocol.NewSelector(protocol.DefaultCatalog(), cfg.Region, cfg.NoveltyWindow)

	// Progress analytics and insights
	analyzer := progress.NewAnalyzer(db)
	gen := insights.NewGenerator(llm, db, db, slog.Default())

	// NATS/Hermes (optional — the HTTP API works without the event bus)
	var pub processor.Publisher
	hermesClient, err := hermes.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Warn("NATS unavailable, running without event bus", "error", err)
	} else {
		defer hermesClient.Close()
		pub = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack poster (optional — crisis alerts still go to NATS without it)
	var slackPoster *slack.Poster
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		slackPoster = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default())
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	} else {
		slog.Warn("slack not configured, crisis alerts limited to the event bus")
	}

	// Processor — the main pipeline
	proc := processor.New(db, cls, engine, selector, gen, pub, slackPoster,
		cfg.HistoryWindow, cfg.InsightEvery, slog.Default())

	// Subscribe to gateway utterance events
	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectUtterance, proc.HandleUtterance); err != nil {
			slog.Error("failed to subscribe to utterance events", "error", err)
			os.Exit(1)
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, proc, analyzer, gen, db)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if hermesClient != nil {
		if err := hermesClient.Publish("ora.agent.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("ora ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("ora stopped")
}

func riskConfig(cfg config.Config) risk.Config {
	rc := risk.DefaultConfig()
	rc.LowThreshold = cfg.LowThreshold
	rc.MediumThreshold = cfg.MediumThreshold
	rc.HighThreshold = cfg.HighThreshold
	rc.EscalationConfidence = cfg.EscalationConfidence
	rc.MinUsableConfidence = cfg.MinConfidence
	rc.RecencyDecay = cfg.RecencyDecay
	rc.HistoryWindow = cfg.HistoryWindow
	rc.Cooldown = cfg.Cooldown
	return rc
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
