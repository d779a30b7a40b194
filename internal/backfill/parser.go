package backfill

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// exportLine is one line of a conversation export JSONL file. Exports from
// the previous deployment carry either a plain text field or a content block
// array, so both are accepted.
type exportLine struct {
	UserID    string          `json:"user_id"`
	Role      string          `json:"role"`
	Text      string          `json:"text"`
	Content   json.RawMessage `json:"content"`
	Timestamp string          `json:"timestamp"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ParseExportFile parses a conversation export JSONL file into messages,
// ordered by timestamp. Malformed lines are skipped rather than failing the
// whole file.
func ParseExportFile(path string) ([]ExportMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var msgs []ExportMessage

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	for scanner.Scan() {
		var line exportLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}

		if line.UserID == "" {
			continue
		}
		if line.Role != "user" && line.Role != "assistant" {
			continue
		}

		text := line.Text
		if text == "" {
			text = extractBlockText(line.Content)
		}
		if text == "" {
			continue
		}

		ts, err := time.Parse(time.RFC3339Nano, line.Timestamp)
		if err != nil {
			ts, err = time.Parse(time.RFC3339, line.Timestamp)
		}
		if err != nil {
			continue
		}

		msgs = append(msgs, ExportMessage{
			UserID:    line.UserID,
			Role:      line.Role,
			Text:      text,
			Timestamp: ts,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	return msgs, nil
}

// extractBlockText collects the text blocks from a content array, skipping
// anything that is not plain text.
func extractBlockText(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var text string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			if text != "" {
				text += "\n"
			}
			text += b.Text
		}
	}
	return text
}
