package models

import (
	"time"
)

// Sender carries the display attributes of a message author as the
// rendering surface needs them. The backend reports these under several
// field spellings; internal/normalize maps them all onto this shape.
type Sender struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
}

// Message is the canonical client-side message shape. Messages are
// immutable once created; deletion removes them from the local list
// entirely.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Sender         Sender    `json:"sender"`
	CreatedAt      time.Time `json:"created_at"`
}

// CompareMessageID orders two message identifiers consistently with
// backend issuance order. Shorter identifiers sort first so plain
// decimal IDs ("99" < "100") and fixed-width lexicographic IDs both
// order correctly. Returns -1, 0 or 1.
func CompareMessageID(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	if a < b {
		return -1
	}
	return 1
}

// NewestMessageID returns the highest message identifier in the list,
// or "" for an empty list.
func NewestMessageID(messages []Message) string {
	newest := ""
	for _, m := range messages {
		if newest == "" || CompareMessageID(m.ID, newest) > 0 {
			newest = m.ID
		}
	}
	return newest
}
