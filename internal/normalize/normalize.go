// Package normalize is the anti-corruption layer between backend wire
// payloads and the canonical client models. The backend labels the
// message author as sender_*, author_* or a nested author object
// depending on the endpoint; everything past this package sees one
// shape only.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/missedtask/missedtask-client/internal/models"
)

const (
	// Fallback display attributes for authors the backend reported
	// incompletely.
	UnknownName   = "Unknown"
	UnknownAvatar = "U"
)

type wireAuthor struct {
	ID       flexID `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Avatar   string `json:"avatar"`
}

type wireMessage struct {
	ID             flexID `json:"id"`
	ConversationID flexID `json:"conversation_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`

	SenderID     flexID `json:"sender_id"`
	SenderName   string `json:"sender_name"`
	SenderAvatar string `json:"sender_avatar"`

	AuthorID     flexID `json:"author_id"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar"`

	Author *wireAuthor `json:"author"`
}

type wireConversation struct {
	ID           flexID          `json:"id"`
	Name         string          `json:"name"`
	Kind         string          `json:"kind"`
	Type         string          `json:"type"`
	Participants []flexID        `json:"participants"`
	LastMessage  json.RawMessage `json:"last_message"`
	LastActivity string          `json:"last_activity"`
	UnreadCount  int             `json:"unread_count"`
}

// Message maps one raw backend message onto the canonical shape. All
// three author spellings are tolerated; a missing display name falls
// back to "Unknown" and a missing avatar to "U".
func Message(data []byte) (models.Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Message{}, fmt.Errorf("decode message: %w", err)
	}
	if w.ID.String() == "" {
		return models.Message{}, fmt.Errorf("message has no id")
	}

	msg := models.Message{
		ID:             w.ID.String(),
		ConversationID: w.ConversationID.String(),
		Content:        w.Content,
		Sender:         normalizeAuthor(&w),
		CreatedAt:      parseTime(w.CreatedAt),
	}
	return msg, nil
}

// MessageList decodes either a bare JSON array of messages or a
// {"messages": [...]} envelope. Individually malformed entries are
// skipped rather than failing the whole list.
func MessageList(data []byte) ([]models.Message, error) {
	items, err := unwrapList(data, "messages")
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(items))
	for _, item := range items {
		msg, err := Message(item)
		if err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Conversation maps one raw backend conversation onto the canonical
// shape. The kind discriminator arrives as either "kind" or "type".
func Conversation(data []byte) (models.Conversation, error) {
	var w wireConversation
	if err := json.Unmarshal(data, &w); err != nil {
		return models.Conversation{}, fmt.Errorf("decode conversation: %w", err)
	}
	if w.ID.String() == "" {
		return models.Conversation{}, fmt.Errorf("conversation has no id")
	}

	kind := w.Kind
	if kind == "" {
		kind = w.Type
	}

	conv := models.Conversation{
		ID:           w.ID.String(),
		Name:         w.Name,
		Kind:         models.ConversationKind(kind),
		LastActivity: parseTime(w.LastActivity),
		UnreadCount:  w.UnreadCount,
	}
	for _, p := range w.Participants {
		conv.Participants = append(conv.Participants, p.String())
	}
	if len(w.LastMessage) > 0 && string(w.LastMessage) != "null" {
		if msg, err := Message(w.LastMessage); err == nil {
			conv.LastMessage = &msg
		}
	}
	return conv, nil
}

// ConversationList decodes either a bare JSON array of conversations or
// a {"conversations": [...]} envelope.
func ConversationList(data []byte) ([]models.Conversation, error) {
	items, err := unwrapList(data, "conversations")
	if err != nil {
		return nil, err
	}

	conversations := make([]models.Conversation, 0, len(items))
	for _, item := range items {
		conv, err := Conversation(item)
		if err != nil {
			continue
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func normalizeAuthor(w *wireMessage) models.Sender {
	s := models.Sender{}

	switch {
	case w.Author != nil:
		s.ID = w.Author.ID.String()
		s.Username = firstNonEmpty(w.Author.Username, w.Author.Name)
		s.FullName = firstNonEmpty(w.Author.FullName, w.Author.Name)
		s.Avatar = w.Author.Avatar
	case w.SenderID.String() != "" || w.SenderName != "":
		s.ID = w.SenderID.String()
		s.Username = w.SenderName
		s.FullName = w.SenderName
		s.Avatar = w.SenderAvatar
	default:
		s.ID = w.AuthorID.String()
		s.Username = w.AuthorName
		s.FullName = w.AuthorName
		s.Avatar = w.AuthorAvatar
	}

	if s.Username == "" {
		s.Username = UnknownName
	}
	if s.FullName == "" {
		s.FullName = s.Username
	}
	if s.Avatar == "" {
		s.Avatar = UnknownAvatar
	}
	return s
}

func unwrapList(data []byte, field string) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", field, err)
	}
	inner, ok := wrapped[field]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", field)
	}
	if err := json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", field, err)
	}
	return items, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// Some endpoints report Unix seconds.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0)
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexID decodes an identifier that the backend may send as either a
// JSON string or a JSON number.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string {
	return string(f)
}
