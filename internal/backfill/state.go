package backfill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultStatePath = "~/.ora/import-state.json"

// ImportState tracks progress for resumable import runs.
type ImportState struct {
	StartedAt       time.Time `json:"started_at"`
	LastProcessedAt time.Time `json:"last_processed_at"`
	FilesProcessed  []string  `json:"files_processed"`
	TurnsImported   int       `json:"turns_imported"`
	Errors          []string  `json:"errors"`

	path string // not serialized
}

// LoadState loads the import state from disk, or creates a new one. The
// location defaults to ~/.ora/import-state.json and can be overridden with
// ORA_IMPORT_STATE.
func LoadState() (*ImportState, error) {
	p := os.Getenv("ORA_IMPORT_STATE")
	if p == "" {
		p = defaultStatePath
	}
	p = expandHome(p)

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &ImportState{
				StartedAt: time.Now().UTC(),
				path:      p,
			}, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}

	var s ImportState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse state: %w", err)
	}
	s.path = p
	return &s, nil
}

// Save persists the state to disk.
func (s *ImportState) Save() error {
	s.LastProcessedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("mkdir state dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// IsProcessed reports whether a file was already imported.
func (s *ImportState) IsProcessed(path string) bool {
	for _, p := range s.FilesProcessed {
		if p == path {
			return true
		}
	}
	return false
}

// MarkProcessed records a file as imported.
func (s *ImportState) MarkProcessed(path string) {
	if !s.IsProcessed(path) {
		s.FilesProcessed = append(s.FilesProcessed, path)
	}
}

// AddError records an error, keeping at most the last 50.
func (s *ImportState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
	if len(s.Errors) > 50 {
		s.Errors = s.Errors[len(s.Errors)-50:]
	}
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
