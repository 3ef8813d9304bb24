// Package ws owns the single shared WebSocket connection to the
// backend and the dispatcher that fans its events out. The socket
// carries unrelated concerns (chat, presence, board updates) under one
// JSON envelope convention with a "type" discriminator; no consumer
// may assume exclusive ownership of the read side.
package ws

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire wrapper shared by every event on the socket.
// Chat events put their body under "message"; other event families use
// "payload".
type Envelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Body returns the event body regardless of which field carried it.
func (e *Envelope) Body() json.RawMessage {
	if len(e.Message) > 0 {
		return e.Message
	}
	return e.Payload
}

// ParseEnvelope decodes a raw frame. Frames that are not JSON or lack
// the type discriminator are rejected; callers log and drop them.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("frame has no type field")
	}
	return &env, nil
}

const previewLimit = 120

// Preview truncates a raw frame for log lines so a malformed payload
// never floods the log.
func Preview(data []byte) string {
	if len(data) <= previewLimit {
		return string(data)
	}
	return string(data[:previewLimit]) + "..."
}
