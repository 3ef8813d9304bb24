// Package reconciler merges the two delivery channels for chat
// messages, the periodic REST poll and the WebSocket push, into one
// consistent local view: a deduplicated message list per conversation,
// the notification feed, and the aggregate unread badge count.
//
// The two channels race freely: the same message may arrive through
// either one first, or through both. Reconciliation is idempotent
// under any interleaving or duplication, and the per-conversation
// last-seen watermark never moves backwards.
package reconciler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/missedtask/missedtask-client/internal/notify"
	"github.com/missedtask/missedtask-client/internal/store"
	"github.com/missedtask/missedtask-client/internal/validation"
)

type Reconciler struct {
	selfID     func() string
	watermarks *store.WatermarkStore
	feed       *notify.Feed
	toasts     notify.ToastSink

	mu       sync.Mutex
	messages map[string][]models.Message
	index    map[string]map[string]bool
	chatOpen bool
	active   string
	unread   int
}

// New creates a reconciler. selfID identifies the current user at call
// time (the session may change); toasts may be nil.
func New(selfID func() string, watermarks *store.WatermarkStore, feed *notify.Feed, toasts notify.ToastSink) *Reconciler {
	return &Reconciler{
		selfID:     selfID,
		watermarks: watermarks,
		feed:       feed,
		toasts:     toasts,
		messages:   make(map[string][]models.Message),
		index:      make(map[string]map[string]bool),
	}
}

// Reconcile folds a polled history fetch into local state.
//
// With no stored watermark this is the catch-up case: the newest
// fetched message establishes the watermark immediately and none of
// the history produces notifications. With a watermark, messages from
// other users sorting strictly after it are new: while the
// conversation is open they only advance the watermark; while it is
// closed they accumulate unread count, feed entries and toasts.
func (r *Reconciler) Reconcile(conversationID string, fetched []models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	watermark, hasWatermark := r.watermarks.Get(conversationID)

	var appended []models.Message
	for _, m := range fetched {
		if m.ConversationID == "" {
			m.ConversationID = conversationID
		}
		if r.insertLocked(conversationID, m) {
			appended = append(appended, m)
		}
	}

	if !hasWatermark {
		r.watermarks.Advance(conversationID, models.NewestMessageID(fetched))
		return
	}

	if r.isOpenLocked(conversationID) {
		r.watermarks.Advance(conversationID, models.NewestMessageID(r.messages[conversationID]))
		r.unread = 0
		return
	}

	for _, m := range appended {
		r.classifyLocked(m, watermark)
	}
}

// ApplyLiveMessage folds one WebSocket-pushed message into local
// state. The same message may also arrive on the next poll; the second
// occurrence is ignored wholesale, content included.
func (r *Reconciler) ApplyLiveMessage(msg models.Message) {
	if msg.ID == "" || msg.ConversationID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.insertLocked(msg.ConversationID, msg) {
		return
	}

	if msg.Sender.ID == r.selfID() {
		// Own echo: never notifies, never counts as unread.
		if r.isOpenLocked(msg.ConversationID) {
			r.watermarks.Advance(msg.ConversationID, msg.ID)
		}
		return
	}

	if r.isOpenLocked(msg.ConversationID) {
		r.watermarks.Advance(msg.ConversationID, msg.ID)
		return
	}

	watermark, hasWatermark := r.watermarks.Get(msg.ConversationID)
	if hasWatermark && models.CompareMessageID(msg.ID, watermark) <= 0 {
		return
	}
	r.notifyLocked(msg)
}

// MarkConversationOpened makes conversationID the focused conversation:
// the watermark advances to the newest known message, its notifications
// are marked read, and the unread badge resets.
func (r *Reconciler) MarkConversationOpened(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.chatOpen = true
	r.active = conversationID
	r.watermarks.Advance(conversationID, models.NewestMessageID(r.messages[conversationID]))
	r.feed.MarkConversationRead(conversationID)
	r.unread = 0
}

// OpenChat records that the chat launcher was opened, which resets the
// unread badge even before a conversation is focused.
func (r *Reconciler) OpenChat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatOpen = true
	r.unread = 0
}

// CloseChat returns every conversation to the closed state: new
// messages accumulate unread count and notifications again.
func (r *Reconciler) CloseChat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatOpen = false
	r.active = ""
}

// RemoveMessage erases a deleted message from the local list entirely.
func (r *Reconciler) RemoveMessage(conversationID, messageID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.index[conversationID]
	if idx == nil || !idx[messageID] {
		return
	}
	delete(idx, messageID)

	list := r.messages[conversationID]
	for i := range list {
		if list[i].ID == messageID {
			r.messages[conversationID] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Messages returns the normalized, deduplicated message list for a
// conversation, ordered oldest first, ready for rendering.
func (r *Reconciler) Messages(conversationID string) []models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.messages[conversationID]
	out := make([]models.Message, len(list))
	copy(out, list)
	return out
}

// UnreadCount is the aggregate badge count for the floating launcher.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

// ActiveConversation returns the focused conversation ID, or "" when
// the chat UI is closed or unfocused.
func (r *Reconciler) ActiveConversation() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.chatOpen {
		return ""
	}
	return r.active
}

func (r *Reconciler) isOpenLocked(conversationID string) bool {
	return r.chatOpen && r.active == conversationID
}

// insertLocked adds a message to the ordered per-conversation list.
// Reports false for an already-known identifier.
func (r *Reconciler) insertLocked(conversationID string, m models.Message) bool {
	idx := r.index[conversationID]
	if idx == nil {
		idx = make(map[string]bool)
		r.index[conversationID] = idx
	}
	if idx[m.ID] {
		return false
	}
	idx[m.ID] = true

	list := r.messages[conversationID]
	pos := sort.Search(len(list), func(i int) bool {
		return models.CompareMessageID(list[i].ID, m.ID) > 0
	})
	list = append(list, models.Message{})
	copy(list[pos+1:], list[pos:])
	list[pos] = m
	r.messages[conversationID] = list
	return true
}

func (r *Reconciler) classifyLocked(m models.Message, watermark string) {
	if m.Sender.ID == r.selfID() {
		return
	}
	if models.CompareMessageID(m.ID, watermark) <= 0 {
		return
	}
	r.notifyLocked(m)
}

func (r *Reconciler) notifyLocked(m models.Message) {
	n := models.Notification{
		Key:            notify.Key(m.ConversationID, m.ID),
		Kind:           models.NotificationChatMessage,
		Title:          fmt.Sprintf("New message from %s", m.Sender.Username),
		Body:           validation.Excerpt(m.Content),
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		CreatedAt:      time.Now(),
	}
	if !r.feed.Add(n) {
		return
	}
	r.unread++
	if r.toasts != nil {
		r.toasts.Toast(n)
	}
}
