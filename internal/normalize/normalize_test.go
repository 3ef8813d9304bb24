package normalize

import (
	"testing"
)

func TestMessageSenderShapes(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantSenderID string
		wantUsername string
		wantAvatar   string
	}{
		{
			"Flat sender fields",
			`{"id": "m1", "conversation_id": "c1", "content": "hi", "sender_id": "u1", "sender_name": "ana", "sender_avatar": "A"}`,
			"u1", "ana", "A",
		},
		{
			"Flat author fields",
			`{"id": "m2", "conversation_id": "c1", "content": "hi", "author_id": "u2", "author_name": "bob", "author_avatar": "B"}`,
			"u2", "bob", "B",
		},
		{
			"Nested author object",
			`{"id": "m3", "conversation_id": "c1", "content": "hi", "author": {"id": "u3", "username": "cho", "avatar": "C"}}`,
			"u3", "cho", "C",
		},
		{
			"Numeric identifiers",
			`{"id": 42, "conversation_id": 7, "sender_id": 9, "sender_name": "dee"}`,
			"9", "dee", "U",
		},
		{
			"Missing display attributes default",
			`{"id": "m4", "conversation_id": "c1", "sender_id": "u4"}`,
			"u4", "Unknown", "U",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Message([]byte(tt.payload))
			if err != nil {
				t.Fatalf("Message returned error: %v", err)
			}
			if msg.Sender.ID != tt.wantSenderID {
				t.Errorf("Sender.ID = %q, want %q", msg.Sender.ID, tt.wantSenderID)
			}
			if msg.Sender.Username != tt.wantUsername {
				t.Errorf("Sender.Username = %q, want %q", msg.Sender.Username, tt.wantUsername)
			}
			if msg.Sender.Avatar != tt.wantAvatar {
				t.Errorf("Sender.Avatar = %q, want %q", msg.Sender.Avatar, tt.wantAvatar)
			}
		})
	}
}

func TestMessageRejectsMissingID(t *testing.T) {
	if _, err := Message([]byte(`{"content": "no id"}`)); err == nil {
		t.Error("Message without id should fail")
	}
	if _, err := Message([]byte(`not json`)); err == nil {
		t.Error("Message with invalid JSON should fail")
	}
}

func TestMessageParsesTimestamp(t *testing.T) {
	msg, err := Message([]byte(`{"id": "m1", "created_at": "2024-03-01T10:00:00Z"}`))
	if err != nil {
		t.Fatalf("Message returned error: %v", err)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("CreatedAt should be parsed from RFC3339")
	}
	if msg.CreatedAt.Year() != 2024 {
		t.Errorf("CreatedAt year = %d, want 2024", msg.CreatedAt.Year())
	}
}

func TestMessageListUnwrapping(t *testing.T) {
	bare := `[{"id": "m1", "sender_id": "u1"}, {"id": "m2", "sender_id": "u2"}]`
	wrapped := `{"messages": ` + bare + `}`

	for _, payload := range []string{bare, wrapped} {
		messages, err := MessageList([]byte(payload))
		if err != nil {
			t.Fatalf("MessageList returned error: %v", err)
		}
		if len(messages) != 2 {
			t.Fatalf("MessageList returned %d messages, want 2", len(messages))
		}
		if messages[0].ID != "m1" || messages[1].ID != "m2" {
			t.Errorf("MessageList IDs = %q, %q", messages[0].ID, messages[1].ID)
		}
	}
}

func TestMessageListSkipsMalformedEntries(t *testing.T) {
	payload := `[{"id": "m1"}, {"content": "no id"}, {"id": "m3"}]`
	messages, err := MessageList([]byte(payload))
	if err != nil {
		t.Fatalf("MessageList returned error: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("MessageList returned %d messages, want 2", len(messages))
	}
}

func TestConversationList(t *testing.T) {
	payload := `{"conversations": [
		{"id": "c1", "name": "Engineering", "kind": "team", "participants": [1, 2, 3]},
		{"id": "c2", "type": "direct", "last_message": {"id": "m1", "sender_id": "u2", "sender_name": "ana"}}
	]}`

	conversations, err := ConversationList([]byte(payload))
	if err != nil {
		t.Fatalf("ConversationList returned error: %v", err)
	}
	if len(conversations) != 2 {
		t.Fatalf("ConversationList returned %d conversations, want 2", len(conversations))
	}
	if conversations[0].Kind != "team" {
		t.Errorf("Kind = %q, want team", conversations[0].Kind)
	}
	if len(conversations[0].Participants) != 3 || conversations[0].Participants[0] != "1" {
		t.Errorf("Participants = %v", conversations[0].Participants)
	}
	if conversations[1].Kind != "direct" {
		t.Errorf("Kind from type field = %q, want direct", conversations[1].Kind)
	}
	if conversations[1].LastMessage == nil || conversations[1].LastMessage.ID != "m1" {
		t.Errorf("LastMessage not decoded: %+v", conversations[1].LastMessage)
	}
}

func TestConversationListRejectsGarbage(t *testing.T) {
	if _, err := ConversationList([]byte(`"nope"`)); err == nil {
		t.Error("ConversationList should fail on non-list payload")
	}
	if _, err := ConversationList([]byte(`{"other": []}`)); err == nil {
		t.Error("ConversationList should fail when field is missing")
	}
}
