// Package api is the REST client for the MissedTask backend. It owns
// the consumed HTTP contract only; all payloads cross through
// internal/normalize before reaching the rest of the engine.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/missedtask/missedtask-client/internal/cache"
	"github.com/missedtask/missedtask-client/internal/httpx"
	"github.com/missedtask/missedtask-client/internal/session"
)

const requestTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	session *session.Session
	history *cache.HistoryCache
}

// NewClient creates a backend client. history may be nil; it only
// enables the stale-view fallback for failed polls.
func NewClient(baseURL string, sess *session.Session, history *cache.HistoryCache) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		session: sess,
		history: history,
	}
}

// do performs one request. A 401 invalidates the session and returns
// session.ErrInvalidated, the single error that must propagate past
// the reconciler to the whole application.
func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Invalidate()
		return nil, fmt.Errorf("%s %s: %w", method, path, session.ErrInvalidated)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpx.DecodeError(resp.StatusCode, data)
	}
	return data, nil
}
