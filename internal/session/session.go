// Package session holds the client's bearer-token state. Tokens are
// issued and verified by the backend; locally we only decode claims to
// know who the current user is and when the token lapses.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/missedtask/missedtask-client/internal/store"
)

// ErrInvalidated is returned once the backend rejects the session
// (401). It is the one failure that propagates past the reconciler:
// the caller must clear state and force re-authentication.
var ErrInvalidated = errors.New("session invalidated")

const tokenKey = "session_accessToken"

type Claims struct {
	UserID   claimID `json:"user_id"`
	Username string  `json:"username"`
	jwt.RegisteredClaims
}

// Session is safe for concurrent use by the poll loop and the
// WebSocket read pump.
type Session struct {
	mu     sync.RWMutex
	kv     store.KV
	token  string
	claims *Claims
}

// New restores any persisted token from kv. An expired or undecodable
// persisted token is dropped silently; the user just logs in again.
func New(kv store.KV) *Session {
	s := &Session{kv: kv}
	if tok, ok, err := kv.Get(tokenKey); err == nil && ok {
		if err := s.setToken(tok, false); err != nil {
			kv.Delete(tokenKey)
		}
	}
	return s
}

// SetToken installs a freshly issued access token and persists it.
func (s *Session) SetToken(token string) error {
	return s.setToken(token, true)
}

func (s *Session) setToken(token string, persist bool) error {
	claims := &Claims{}
	// Signature verification is the backend's job; the client only
	// needs the claims.
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("access token expired at %s", claims.ExpiresAt.Time)
	}

	s.mu.Lock()
	s.token = token
	s.claims = claims
	s.mu.Unlock()

	if persist {
		if err := s.kv.Set(tokenKey, token); err != nil {
			return fmt.Errorf("persist access token: %w", err)
		}
	}
	return nil
}

// Token returns the current bearer token, or "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID identifies the current user, for classifying own messages.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return string(s.claims.UserID)
}

func (s *Session) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.claims == nil {
		return ""
	}
	return s.claims.Username
}

// Valid reports whether a usable, unexpired token is installed.
func (s *Session) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.claims == nil {
		return false
	}
	if s.claims.ExpiresAt != nil && s.claims.ExpiresAt.Before(time.Now()) {
		return false
	}
	return true
}

// Invalidate clears all local credentials. Called on a backend 401.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.claims = nil
	s.mu.Unlock()
	s.kv.Delete(tokenKey)
}

// claimID tolerates user_id claims issued as either strings or numbers.
type claimID string

func (c *claimID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*c = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = claimID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = claimID(n.String())
	return nil
}
