package store

import (
	"fmt"
	"log"

	"github.com/missedtask/missedtask-client/internal/models"
)

// WatermarkStore tracks the newest message a user has seen per
// conversation. The stored identifier is monotonic: an advance to a
// lower or equal identifier is a no-op, so poll/push races can never
// regress the watermark.
type WatermarkStore struct {
	kv KV
}

func NewWatermarkStore(kv KV) *WatermarkStore {
	return &WatermarkStore{kv: kv}
}

func watermarkKey(conversationID string) string {
	return fmt.Sprintf("lastSeenMessage_%s", conversationID)
}

// Get returns the watermark for a conversation, and whether one exists.
func (s *WatermarkStore) Get(conversationID string) (string, bool) {
	v, ok, err := s.kv.Get(watermarkKey(conversationID))
	if err != nil {
		log.Printf("Failed to read watermark for conversation %s: %v", conversationID, err)
		return "", false
	}
	return v, ok
}

// Advance moves the watermark forward to messageID. Lower or equal
// identifiers are ignored.
func (s *WatermarkStore) Advance(conversationID, messageID string) error {
	if messageID == "" {
		return nil
	}
	current, ok := s.Get(conversationID)
	if ok && models.CompareMessageID(messageID, current) <= 0 {
		return nil
	}
	return s.kv.Set(watermarkKey(conversationID), messageID)
}
