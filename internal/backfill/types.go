package backfill

import "time"

// ExportMessage is a single message from a conversation export file.
type ExportMessage struct {
	UserID    string
	Role      string // "user" or "assistant"
	Text      string
	Timestamp time.Time
}
