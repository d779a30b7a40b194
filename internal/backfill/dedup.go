package backfill

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Deduper skips messages already seen in this run. Export files from the
// previous deployment overlap when exports were taken on different days, so
// the same utterance can appear in more than one file.
type Deduper struct {
	seen map[string]bool
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]bool)}
}

// Seen reports whether the message was already recorded, and records it.
func (d *Deduper) Seen(m ExportMessage) bool {
	key := messageKey(m)
	if d.seen[key] {
		return true
	}
	d.seen[key] = true
	return false
}

// messageKey fingerprints a message by user, timestamp, and text. Role is
// deliberately excluded: a user line and an assistant echo carrying the same
// text at the same instant are the same event.
func messageKey(m ExportMessage) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", m.UserID, m.Timestamp.UnixNano(), m.Text)))
	return hex.EncodeToString(h[:])
}
