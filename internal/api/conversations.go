package api

import (
	"context"
	"net/http"

	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/missedtask/missedtask-client/internal/normalize"
)

type CreateConversationInput struct {
	Kind         models.ConversationKind `json:"type"`
	Participants []string                `json:"participants"`
	Name         string                  `json:"name,omitempty"`
}

// ListConversations fetches all conversations visible to the current
// user.
func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	data, err := c.do(ctx, http.MethodGet, "/conversations", nil)
	if err != nil {
		return nil, err
	}
	return normalize.ConversationList(data)
}

// CreateConversation creates, or looks up, a team or direct
// conversation. The backend creates direct pairings lazily on first
// access, so calling this twice for the same pair returns the same
// conversation.
func (c *Client) CreateConversation(ctx context.Context, input CreateConversationInput) (models.Conversation, error) {
	data, err := c.do(ctx, http.MethodPost, "/conversations", input)
	if err != nil {
		return models.Conversation{}, err
	}
	return normalize.Conversation(data)
}
