// Package client wires the REST client, the WebSocket dispatcher and
// the reconciler into the running sync engine: it owns the poll loop
// for the focused conversation and the session-invalidation exit path.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/missedtask/missedtask-client/internal/api"
	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/missedtask/missedtask-client/internal/normalize"
	"github.com/missedtask/missedtask-client/internal/notify"
	"github.com/missedtask/missedtask-client/internal/reconciler"
	"github.com/missedtask/missedtask-client/internal/session"
	"github.com/missedtask/missedtask-client/internal/ws"
)

// DefaultPollInterval is how often the focused conversation re-fetches
// history while open.
const DefaultPollInterval = 3 * time.Second

type Engine struct {
	api          *api.Client
	rec          *reconciler.Reconciler
	sess         *session.Session
	dispatcher   *ws.Dispatcher
	socket       *ws.Client
	toasts       notify.ToastSink
	pollInterval time.Duration

	mu         sync.Mutex
	pollCancel context.CancelFunc

	fatalOnce sync.Once
	fatal     chan error
}

// New assembles the engine. socket and toasts may be nil (REST-only
// operation, no toast surface). A zero pollInterval selects the
// default.
func New(apiClient *api.Client, rec *reconciler.Reconciler, sess *session.Session, dispatcher *ws.Dispatcher, socket *ws.Client, toasts notify.ToastSink, pollInterval time.Duration) *Engine {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Engine{
		api:          apiClient,
		rec:          rec,
		sess:         sess,
		dispatcher:   dispatcher,
		socket:       socket,
		toasts:       toasts,
		pollInterval: pollInterval,
		fatal:        make(chan error, 1),
	}
}

// Start registers the chat handlers on the shared dispatcher and, when
// a socket is configured, starts pumping it. Other consumers register
// their own event types on the same dispatcher before or after this;
// registration is additive.
func (e *Engine) Start(ctx context.Context) {
	e.dispatcher.On("chat_message", func(env *ws.Envelope) {
		msg, err := normalize.Message(env.Body())
		if err != nil {
			log.Printf("Dropping chat_message event: %v", err)
			return
		}
		e.rec.ApplyLiveMessage(msg)
	})

	e.dispatcher.On("message_deleted", func(env *ws.Envelope) {
		ref, err := normalize.Message(env.Body())
		if err != nil {
			log.Printf("Dropping message_deleted event: %v", err)
			return
		}
		e.rec.RemoveMessage(ref.ConversationID, ref.ID)
	})

	if e.socket != nil {
		go e.socket.Run(ctx)
	}
}

// Fatal delivers the single unrecoverable condition: session
// invalidation. Receiving on it, the application clears down and
// forces re-authentication.
func (e *Engine) Fatal() <-chan error {
	return e.fatal
}

// OpenConversation focuses a conversation: the reconciler switches it
// to the open state and a fresh poll loop replaces any previous one,
// so a stale conversation is never reconciled in the background.
func (e *Engine) OpenConversation(ctx context.Context, conversationID string) {
	e.rec.MarkConversationOpened(conversationID)

	e.mu.Lock()
	if e.pollCancel != nil {
		e.pollCancel()
	}
	pollCtx, cancel := context.WithCancel(ctx)
	e.pollCancel = cancel
	e.mu.Unlock()

	go e.pollLoop(pollCtx, conversationID)
}

// CloseChat stops polling and returns the reconciler to the closed
// state.
func (e *Engine) CloseChat() {
	e.mu.Lock()
	if e.pollCancel != nil {
		e.pollCancel()
		e.pollCancel = nil
	}
	e.mu.Unlock()
	e.rec.CloseChat()
}

func (e *Engine) pollLoop(ctx context.Context, conversationID string) {
	e.pollOnce(ctx, conversationID)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollOnce(ctx, conversationID)
		}
	}
}

// pollOnce is one reconcile attempt. Failures leave local state
// untouched: the next tick simply retries. Only session invalidation
// escalates.
func (e *Engine) pollOnce(ctx context.Context, conversationID string) {
	messages, err := e.api.ListMessages(ctx, conversationID)
	if err != nil {
		if errors.Is(err, session.ErrInvalidated) {
			e.failSession(err)
			return
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("Poll failed for conversation %s: %v", conversationID, err)
		e.toastError(fmt.Sprintf("Could not refresh messages: %v", err))

		// A freshly started client with nothing local yet can still
		// show the last cached history.
		if len(e.rec.Messages(conversationID)) == 0 {
			if cached, ok := e.api.CachedMessages(conversationID); ok {
				e.rec.Reconcile(conversationID, cached)
			}
		}
		return
	}
	e.rec.Reconcile(conversationID, messages)
}

// Send posts a message to a conversation. The REST echo is applied
// immediately; the WebSocket echo that follows deduplicates against it.
func (e *Engine) Send(ctx context.Context, conversationID, content string) (models.Message, error) {
	msg, err := e.api.SendMessage(ctx, conversationID, content)
	if err != nil {
		if errors.Is(err, session.ErrInvalidated) {
			e.failSession(err)
		}
		return models.Message{}, err
	}
	if msg.ConversationID == "" {
		msg.ConversationID = conversationID
	}
	e.rec.ApplyLiveMessage(msg)
	return msg, nil
}

// DeleteMessage removes a message on the backend and erases it locally.
func (e *Engine) DeleteMessage(ctx context.Context, conversationID, messageID string) error {
	if err := e.api.DeleteMessage(ctx, conversationID, messageID); err != nil {
		if errors.Is(err, session.ErrInvalidated) {
			e.failSession(err)
		}
		return err
	}
	e.rec.RemoveMessage(conversationID, messageID)
	return nil
}

// Conversations lists the conversations visible to the current user.
func (e *Engine) Conversations(ctx context.Context) ([]models.Conversation, error) {
	return e.api.ListConversations(ctx)
}

// StartDirect looks up (or lazily creates) the direct conversation
// with peerID.
func (e *Engine) StartDirect(ctx context.Context, peerID string) (models.Conversation, error) {
	return e.api.CreateConversation(ctx, api.CreateConversationInput{
		Kind:         models.DirectConversation,
		Participants: []string{e.sess.UserID(), peerID},
	})
}

func (e *Engine) failSession(err error) {
	e.fatalOnce.Do(func() {
		log.Printf("Session invalidated, forcing re-authentication")
		e.CloseChat()
		e.api.InvalidateCache()
		e.fatal <- err
	})
}

func (e *Engine) toastError(message string) {
	if e.toasts == nil {
		return
	}
	e.toasts.Toast(models.Notification{
		Key:       fmt.Sprintf("error:%d", time.Now().UnixNano()),
		Kind:      models.NotificationError,
		Title:     "Sync problem",
		Body:      message,
		CreatedAt: time.Now(),
	})
}
