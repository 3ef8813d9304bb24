package models

import (
	"time"
)

type NotificationKind string

const (
	NotificationChatMessage NotificationKind = "chat_message"
	NotificationError       NotificationKind = "error"
)

// Notification is a derived, ephemeral entry for the notification panel.
// Entries are created by the reconciler for messages from other users,
// marked read when the user opens the panel entry or the originating
// conversation, and are never persisted across restarts.
type Notification struct {
	// Key deduplicates entries; re-observing the same message never
	// creates a second notification.
	Key            string           `json:"key"`
	Kind           NotificationKind `json:"kind"`
	Title          string           `json:"title"`
	Body           string           `json:"body"`
	Read           bool             `json:"read"`
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	CreatedAt      time.Time        `json:"created_at"`
}
