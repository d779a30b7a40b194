package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mehakx/oranew/internal/classifier"
	"github.com/mehakx/oranew/internal/risk"
	"github.com/mehakx/oranew/internal/store"
)

// Config holds the import command configuration.
type Config struct {
	Dir         string    // directory of export JSONL files
	SingleFile  string    // process a single file only
	Since       time.Time // skip messages before this time, zero for no bound
	Until       time.Time // skip messages after this time, zero for no bound
	DryRun      bool
	MinMessages int // skip files with fewer user messages than this
}

// TurnStore is the store surface the runner writes through.
type TurnStore interface {
	AppendTurn(ctx context.Context, t store.Turn) error
	RecentTurns(ctx context.Context, userID string, n int) ([]store.Turn, error)
}

// Runner replays exported conversation history through the keyword
// classifier and the risk engine, seeding the turn log for users migrating
// from the previous deployment. The LLM classifier is deliberately not used:
// imports are large, offline, and repeatable, and the keyword pass is enough
// to reconstruct crisis history.
type Runner struct {
	cfg           Config
	store         TurnStore
	engine        *risk.Engine
	historyWindow int
	logger        *slog.Logger
}

func NewRunner(cfg Config, s TurnStore, engine *risk.Engine, historyWindow int, logger *slog.Logger) *Runner {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Runner{
		cfg:           cfg,
		store:         s,
		engine:        engine,
		historyWindow: historyWindow,
		logger:        logger,
	}
}

// Run executes the import. Files already recorded in the state file are
// skipped, so interrupted runs resume where they left off.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("export files discovered", "count", len(files))

	dedup := NewDeduper()

	for _, path := range files {
		if state.IsProcessed(path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		imported, err := r.importFile(ctx, path, dedup)
		if err != nil {
			r.logger.Warn("failed to import file", "path", path, "error", err)
			state.AddError(fmt.Sprintf("import %s: %v", path, err))
			continue
		}

		state.MarkProcessed(path)
		state.TurnsImported += imported
		if !r.cfg.DryRun {
			if err := state.Save(); err != nil {
				return fmt.Errorf("save state: %w", err)
			}
		}
		r.logger.Info("file imported", "path", path, "turns", imported)
	}

	r.logger.Info("import complete", "turns_imported", state.TurnsImported, "errors", len(state.Errors))
	return nil
}

func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		return []string{r.cfg.SingleFile}, nil
	}

	files, err := filepath.Glob(filepath.Join(r.cfg.Dir, "*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// importFile replays one export file. Only user messages become turns;
// assistant messages carry no signal for risk history.
func (r *Runner) importFile(ctx context.Context, path string, dedup *Deduper) (int, error) {
	msgs, err := ParseExportFile(path)
	if err != nil {
		return 0, err
	}

	var users []ExportMessage
	for _, m := range msgs {
		if m.Role != "user" {
			continue
		}
		if !r.inDateRange(m.Timestamp) {
			continue
		}
		if dedup.Seen(m) {
			continue
		}
		users = append(users, m)
	}
	if len(users) < r.cfg.MinMessages {
		return 0, nil
	}

	imported := 0
	for _, m := range users {
		if err := ctx.Err(); err != nil {
			return imported, err
		}

		cls := classifier.FallbackClassify(m.Text)

		if r.cfg.DryRun {
			r.logger.Info("dry run", "user_id", m.UserID, "emotion", cls.Label, "confidence", cls.Confidence)
			imported++
			continue
		}

		history, err := r.store.RecentTurns(ctx, m.UserID, r.historyWindow)
		if err != nil {
			return imported, fmt.Errorf("load history: %w", err)
		}
		obs := make([]risk.Observation, len(history))
		for i, t := range history {
			obs[i] = risk.Observation{Label: t.EmotionLabel, Confidence: t.EmotionConfidence, Level: t.RiskLevel}
		}

		res, err := r.engine.Assess(ctx, m.UserID, risk.Input{Label: cls.Label, Confidence: cls.Confidence}, obs)
		if err != nil {
			return imported, fmt.Errorf("assess: %w", err)
		}

		turn := store.Turn{
			ID:                uuid.New(),
			UserID:            m.UserID,
			CreatedAt:         m.Timestamp.UTC(),
			RawText:           m.Text,
			EmotionLabel:      cls.Label,
			EmotionConfidence: cls.Confidence,
			RiskLevel:         res.Level,
			CrisisFlag:        res.CrisisFlag,
			LowConfidence:     res.LowConfidence,
		}
		if err := r.store.AppendTurn(ctx, turn); err != nil {
			return imported, fmt.Errorf("append turn: %w", err)
		}
		imported++
	}

	return imported, nil
}

func (r *Runner) inDateRange(ts time.Time) bool {
	if !r.cfg.Since.IsZero() && ts.Before(r.cfg.Since) {
		return false
	}
	if !r.cfg.Until.IsZero() && ts.After(r.cfg.Until) {
		return false
	}
	return true
}
