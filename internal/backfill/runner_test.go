package backfill

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mehakx/oranew/internal/emotion"
	"github.com/mehakx/oranew/internal/risk"
	"github.com/mehakx/oranew/internal/store"
)

func writeFile(dir, name, content string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return ts
}

type memTurnStore struct {
	turns []store.Turn
}

func (m *memTurnStore) AppendTurn(_ context.Context, t store.Turn) error {
	m.turns = append(m.turns, t)
	return nil
}

func (m *memTurnStore) RecentTurns(_ context.Context, userID string, n int) ([]store.Turn, error) {
	var out []store.Turn
	for _, t := range m.turns {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

type memStateStore struct {
	states map[string]risk.State
}

func (m *memStateStore) GetRiskState(_ context.Context, userID string) (risk.State, error) {
	st, ok := m.states[userID]
	if !ok {
		return risk.State{}, risk.ErrNotFound
	}
	return st, nil
}

func (m *memStateStore) PutRiskState(_ context.Context, st risk.State) error {
	if m.states == nil {
		m.states = make(map[string]risk.State)
	}
	st.Version++
	m.states[st.UserID] = st
	return nil
}

func newTestRunner(t *testing.T, cfg Config, ts *memTurnStore) *Runner {
	t.Helper()
	t.Setenv("ORA_IMPORT_STATE", filepath.Join(t.TempDir(), "state.json"))
	engine := risk.NewEngine(&memStateStore{}, risk.DefaultConfig(), slog.Default())
	return NewRunner(cfg, ts, engine, 10, slog.Default())
}

func TestRunner_ImportsUserTurns(t *testing.T) {
	path := writeExport(t, `{"user_id":"u1","role":"user","text":"i want to die, i should just kill myself","timestamp":"2026-08-01T10:00:00Z"}
{"user_id":"u1","role":"assistant","text":"you are not alone, help is available","timestamp":"2026-08-01T10:00:05Z"}
{"user_id":"u2","role":"user","text":"had a lovely walk","timestamp":"2026-08-01T11:00:00Z"}
`)

	ts := &memTurnStore{}
	r := newTestRunner(t, Config{SingleFile: path}, ts)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(ts.turns) != 2 {
		t.Fatalf("expected 2 turns (assistant skipped), got %d", len(ts.turns))
	}

	crisis := ts.turns[0]
	if crisis.UserID != "u1" {
		t.Fatalf("expected u1 first, got %s", crisis.UserID)
	}
	if crisis.EmotionLabel != emotion.Despair {
		t.Errorf("expected despair from keyword classifier, got %s", crisis.EmotionLabel)
	}
	if crisis.RiskLevel != risk.LevelHigh || !crisis.CrisisFlag {
		t.Errorf("expected high/crisis, got %s/%v", crisis.RiskLevel, crisis.CrisisFlag)
	}
	want := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if !crisis.CreatedAt.Equal(want) {
		t.Errorf("expected original timestamp preserved, got %v", crisis.CreatedAt)
	}

	calm := ts.turns[1]
	if calm.UserID != "u2" || calm.CrisisFlag {
		t.Errorf("unexpected second turn: %+v", calm)
	}
}

func TestRunner_DedupsAcrossFiles(t *testing.T) {
	line := `{"user_id":"u1","role":"user","text":"stressful week","timestamp":"2026-08-01T10:00:00Z"}` + "\n"
	dir := t.TempDir()
	for _, name := range []string{"a.jsonl", "b.jsonl"} {
		if err := writeFile(dir, name, line); err != nil {
			t.Fatalf("write export: %v", err)
		}
	}

	ts := &memTurnStore{}
	r := newTestRunner(t, Config{Dir: dir}, ts)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ts.turns) != 1 {
		t.Errorf("expected duplicate message imported once, got %d turns", len(ts.turns))
	}
}

func TestRunner_DryRunWritesNothing(t *testing.T) {
	path := writeExport(t, `{"user_id":"u1","role":"user","text":"feeling anxious","timestamp":"2026-08-01T10:00:00Z"}
`)

	ts := &memTurnStore{}
	r := newTestRunner(t, Config{SingleFile: path, DryRun: true}, ts)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ts.turns) != 0 {
		t.Errorf("expected no turns written in dry run, got %d", len(ts.turns))
	}
}

func TestRunner_ResumeSkipsProcessedFiles(t *testing.T) {
	path := writeExport(t, `{"user_id":"u1","role":"user","text":"tired of everything","timestamp":"2026-08-01T10:00:00Z"}
`)

	ts := &memTurnStore{}
	r := newTestRunner(t, Config{SingleFile: path}, ts)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if len(ts.turns) != 1 {
		t.Errorf("expected second run to skip the file, got %d turns", len(ts.turns))
	}
}

func TestRunner_DateRange(t *testing.T) {
	path := writeExport(t, `{"user_id":"u1","role":"user","text":"old message","timestamp":"2026-07-01T10:00:00Z"}
{"user_id":"u1","role":"user","text":"in range","timestamp":"2026-08-01T10:00:00Z"}
{"user_id":"u1","role":"user","text":"too new","timestamp":"2026-09-01T10:00:00Z"}
`)

	ts := &memTurnStore{}
	r := newTestRunner(t, Config{
		SingleFile: path,
		Since:      mustDate(t, "2026-07-15"),
		Until:      mustDate(t, "2026-08-15"),
	}, ts)

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(ts.turns) != 1 || ts.turns[0].RawText != "in range" {
		t.Errorf("expected only the in-range message, got %+v", ts.turns)
	}
}
