package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/mehakx/oranew/internal/backfill"
	"github.com/mehakx/oranew/internal/config"
	"github.com/mehakx/oranew/internal/risk"
	"github.com/mehakx/oranew/internal/store"
)

func main() {
	dir := cli.StringP("dir", "d", "", "Directory of conversation export JSONL files")
	file := cli.StringP("file", "f", "", "Import a single export file")
	since := cli.String("since", "", "Skip messages before this date (YYYY-MM-DD)")
	until := cli.String("until", "", "Skip messages after this date (YYYY-MM-DD)")
	dryRun := cli.Bool("dry-run", false, "Parse and classify without writing")
	minMessages := cli.Int("min-messages", 1, "Skip files with fewer user messages")
	cli.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if *dir == "" && *file == "" {
		slog.Error("either --dir or --file is required")
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	runCfg := backfill.Config{
		Dir:         *dir,
		SingleFile:  *file,
		DryRun:      *dryRun,
		MinMessages: *minMessages,
	}
	if *since != "" {
		t, err := time.Parse("2006-01-02", *since)
		if err != nil {
			slog.Error("invalid --since date", "error", err)
			os.Exit(1)
		}
		runCfg.Since = t
	}
	if *until != "" {
		t, err := time.Parse("2006-01-02", *until)
		if err != nil {
			slog.Error("invalid --until date", "error", err)
			os.Exit(1)
		}
		runCfg.Until = t
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	engine := risk.NewEngine(db, riskConfig(cfg), slog.Default())

	runner := backfill.NewRunner(runCfg, db, engine, cfg.HistoryWindow, slog.Default())
	if err := runner.Run(ctx); err != nil {
		slog.Error("import failed", "error", err)
		os.Exit(1)
	}
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
