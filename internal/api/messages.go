package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/missedtask/missedtask-client/internal/normalize"
	"github.com/missedtask/missedtask-client/internal/validation"
)

type sendMessageRequest struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
	ClientID       string `json:"client_id"`
}

// ListMessages fetches the message history for a conversation and
// refreshes the history cache on success.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	data, err := c.do(ctx, http.MethodGet, "/conversations/"+conversationID+"/messages", nil)
	if err != nil {
		return nil, err
	}

	messages, err := normalize.MessageList(data)
	if err != nil {
		return nil, err
	}
	_ = c.history.SetHistory(conversationID, messages)
	return messages, nil
}

// CachedMessages returns the last successfully fetched history for a
// conversation, for serving a stale view while the backend is
// unreachable.
func (c *Client) CachedMessages(conversationID string) ([]models.Message, bool) {
	return c.history.GetHistory(conversationID)
}

// SendMessage posts a new message. A client-generated UUID rides along
// so a retried request can never create a duplicate server-side.
func (c *Client) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	req := sendMessageRequest{
		Content:        validation.TrimAndLimit(content, validation.MaxMessageLength()),
		ConversationID: conversationID,
		ClientID:       uuid.NewString(),
	}
	data, err := c.do(ctx, http.MethodPost, "/messages", req)
	if err != nil {
		return models.Message{}, err
	}
	return normalize.Message(data)
}

// DeleteMessage removes a message server-side and drops the
// conversation's cached history, so a later fallback can never serve
// the deleted message back. The local list entry is erased by the
// caller.
func (c *Client) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/messages/"+messageID, nil); err != nil {
		return err
	}
	_ = c.history.InvalidateHistory(conversationID)
	return nil
}

// InvalidateCache drops every cached history snapshot. Called on
// session invalidation alongside clearing credentials.
func (c *Client) InvalidateCache() {
	_ = c.history.InvalidateAll()
}
