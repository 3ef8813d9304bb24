package ws

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingInterval   = 30 * time.Second
	pongTimeout    = 90 * time.Second
	writeDeadline  = 10 * time.Second
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = time.Minute
)

// Client maintains the single WebSocket connection to the backend:
// dial, read pump, ping/pong keepalive, and reconnect with exponential
// backoff. Every received frame goes through the Dispatcher.
type Client struct {
	url        string
	token      func() string
	dispatcher *Dispatcher

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient prepares a connection to url. token is consulted on every
// (re)dial so a refreshed session is picked up automatically.
func NewClient(url string, token func() string, dispatcher *Dispatcher) *Client {
	return &Client{
		url:        url,
		token:      token,
		dispatcher: dispatcher,
	}
}

// Run connects and pumps frames until ctx is cancelled. Connection
// loss triggers reconnects with exponential backoff; the backoff
// resets after a successful dial.
func (c *Client) Run(ctx context.Context) {
	delay := baseRetryDelay
	for {
		if err := c.dialAndPump(ctx); err != nil {
			log.Printf("WebSocket connection lost: %v", err)
		}
		if ctx.Err() != nil {
			return
		}

		log.Printf("Reconnecting WebSocket in %s", delay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
}

func (c *Client) dialAndPump(ctx context.Context) error {
	header := http.Header{}
	if tok := c.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	log.Printf("WebSocket connected to %s", c.url)

	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go c.pingRoutine(ctx, conn, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatcher.Dispatch(data)
	}
}

func (c *Client) pingRoutine(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Unblock the read pump so dialAndPump returns.
			conn.Close()
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				log.Printf("Ping failed: %v", err)
				conn.Close()
				return
			}
		}
	}
}
