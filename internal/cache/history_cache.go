package cache

import (
	"fmt"
	"time"

	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// HistoryTTL bounds how stale a cached history can get before a failed
// poll stops being able to serve it.
const HistoryTTL = 5 * time.Minute

// Backend is the byte store behind HistoryCache. RedisCache satisfies
// it; tests supply an in-memory fake.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	DeletePattern(pattern string) error
}

// HistoryCache keeps the last successfully fetched message list per
// conversation so a failed poll can keep serving a stale view instead
// of blanking the chat. All methods are nil-safe: a client wired
// without a backend simply gets cache misses.
type HistoryCache struct {
	backend Backend
}

// NewHistoryCache creates a new history cache
func NewHistoryCache(backend Backend) *HistoryCache {
	return &HistoryCache{backend: backend}
}

func historyKey(conversationID string) string {
	return fmt.Sprintf("history:%s", conversationID)
}

// GetHistory retrieves the cached message list for a conversation
func (hc *HistoryCache) GetHistory(conversationID string) ([]models.Message, bool) {
	if hc == nil || hc.backend == nil {
		return nil, false
	}
	data, err := hc.backend.Get(historyKey(conversationID))
	if err != nil || data == nil {
		return nil, false
	}

	var messages []models.Message
	if err := msgpack.Unmarshal(data, &messages); err != nil {
		return nil, false
	}
	return messages, true
}

// SetHistory caches the message list for a conversation
func (hc *HistoryCache) SetHistory(conversationID string, messages []models.Message) error {
	if hc == nil || hc.backend == nil {
		return nil
	}
	data, err := msgpack.Marshal(messages)
	if err != nil {
		return err
	}
	return hc.backend.Set(historyKey(conversationID), data, HistoryTTL)
}

// InvalidateHistory removes a conversation's cached history
func (hc *HistoryCache) InvalidateHistory(conversationID string) error {
	if hc == nil || hc.backend == nil {
		return nil
	}
	return hc.backend.Delete(historyKey(conversationID))
}

// InvalidateAll drops every cached history. Called when the session is
// invalidated so a later sign-in never sees the old session's view.
func (hc *HistoryCache) InvalidateAll() error {
	if hc == nil || hc.backend == nil {
		return nil
	}
	return hc.backend.DeletePattern("history:*")
}
