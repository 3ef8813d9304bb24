package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/missedtask/missedtask-client/internal/models"
)

// TestHelper provides fixture constructors for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// Message creates a test message with default values
func (h *TestHelper) Message(id, conversationID, senderID, content string) models.Message {
	if id == "" {
		id = "m1"
	}
	if conversationID == "" {
		conversationID = "c1"
	}
	if senderID == "" {
		senderID = "u1"
	}
	if content == "" {
		content = "Test message"
	}

	return models.Message{
		ID:             id,
		ConversationID: conversationID,
		Content:        content,
		Sender: models.Sender{
			ID:       senderID,
			Username: "user-" + senderID,
			FullName: "User " + senderID,
			Avatar:   "U",
		},
		CreatedAt: time.Now(),
	}
}

// Conversation creates a test conversation with default values
func (h *TestHelper) Conversation(id string, kind models.ConversationKind, participants ...string) models.Conversation {
	if id == "" {
		id = "c1"
	}
	if kind == "" {
		kind = models.TeamConversation
	}
	if len(participants) == 0 {
		participants = []string{"u1", "u2"}
	}

	return models.Conversation{
		ID:           id,
		Name:         fmt.Sprintf("Conversation %s", id),
		Kind:         kind,
		Participants: participants,
		LastActivity: time.Now(),
	}
}

// WireMessage renders a message in the backend's flat sender_* wire
// shape for boundary tests.
func (h *TestHelper) WireMessage(id, conversationID, senderID, content string) string {
	return fmt.Sprintf(
		`{"id": %q, "conversation_id": %q, "content": %q, "sender_id": %q, "sender_name": "user-%s"}`,
		id, conversationID, content, senderID, senderID,
	)
}
