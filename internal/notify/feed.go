// Package notify maintains the in-memory notification feed backing the
// notification panel and the toast surface. Entries live only for the
// process lifetime.
package notify

import (
	"fmt"
	"sync"

	"github.com/missedtask/missedtask-client/internal/models"
)

// maxEntries bounds the panel; the oldest entries fall off first.
const maxEntries = 100

// ToastSink receives cross-cutting pop-up notifications even while the
// panel is closed. Implementations must be fast; they run on the
// reconciler's caller.
type ToastSink interface {
	Toast(n models.Notification)
}

// Key derives the deduplication key for a message notification.
// Observing the same message through both poll and push must map to
// the same key.
func Key(conversationID, messageID string) string {
	return fmt.Sprintf("%s:%s", conversationID, messageID)
}

// Feed is the notification list, newest first.
type Feed struct {
	mu      sync.RWMutex
	entries []models.Notification
	seen    map[string]bool
}

func NewFeed() *Feed {
	return &Feed{seen: make(map[string]bool)}
}

// Add inserts a notification unless its key was ever seen before.
// Reports whether the entry was actually added.
func (f *Feed) Add(n models.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen[n.Key] {
		return false
	}
	f.seen[n.Key] = true

	f.entries = append([]models.Notification{n}, f.entries...)
	if len(f.entries) > maxEntries {
		f.entries = f.entries[:maxEntries]
	}
	return true
}

// MarkRead marks a single panel entry as read.
func (f *Feed) MarkRead(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].Key == key {
			f.entries[i].Read = true
			return
		}
	}
}

// MarkConversationRead marks every entry for a conversation as read.
// Called when the user opens that conversation.
func (f *Feed) MarkConversationRead(conversationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ConversationID == conversationID {
			f.entries[i].Read = true
		}
	}
}

// Snapshot returns a copy of the feed for rendering, newest first.
func (f *Feed) Snapshot() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Notification, len(f.entries))
	copy(out, f.entries)
	return out
}

// UnreadCount counts entries not yet marked read.
func (f *Feed) UnreadCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	count := 0
	for i := range f.entries {
		if !f.entries[i].Read {
			count++
		}
	}
	return count
}
