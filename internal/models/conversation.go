package models

import (
	"time"
)

type ConversationKind string

const (
	TeamConversation   ConversationKind = "team"
	DirectConversation ConversationKind = "direct"
)

// Conversation is the client-side view of a team or direct conversation.
// Conversations are created lazily by the backend on first access and
// are never deleted locally.
type Conversation struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kind         ConversationKind `json:"kind"`
	Participants []string         `json:"participants"`
	LastMessage  *Message         `json:"last_message,omitempty"`
	LastActivity time.Time        `json:"last_activity"`
	UnreadCount  int              `json:"unread_count"`
}

// DisplayName returns the conversation name with a fallback for direct
// conversations the backend left unnamed.
func (c *Conversation) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Kind == DirectConversation && c.LastMessage != nil {
		return c.LastMessage.Sender.Username
	}
	return "Conversation"
}
