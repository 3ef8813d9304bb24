package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/missedtask/missedtask-client/internal/api"
	"github.com/missedtask/missedtask-client/internal/cache"
	"github.com/missedtask/missedtask-client/internal/client"
	"github.com/missedtask/missedtask-client/internal/models"
	"github.com/missedtask/missedtask-client/internal/notify"
	"github.com/missedtask/missedtask-client/internal/reconciler"
	"github.com/missedtask/missedtask-client/internal/session"
	"github.com/missedtask/missedtask-client/internal/store"
	"github.com/missedtask/missedtask-client/internal/ws"
)

// logToasts prints toast notifications; a desktop shell would render
// pop-ups instead.
type logToasts struct{}

func (logToasts) Toast(n models.Notification) {
	log.Printf("[toast] %s: %s", n.Title, n.Body)
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	apiURL := os.Getenv("MISSEDTASK_API_URL")
	if apiURL == "" {
		log.Fatal("MISSEDTASK_API_URL is required")
	}
	wsURL := os.Getenv("MISSEDTASK_WS_URL")

	// Durable KV for watermarks and the session token: Redis when
	// configured and reachable, otherwise a local state file.
	var kv store.KV
	var redisCache *cache.RedisCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisDB := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if parsedDB, err := strconv.Atoi(dbStr); err == nil {
				redisDB = parsedDB
			}
		}
		rc := cache.NewRedisCache(redisAddr, os.Getenv("REDIS_PASSWORD"), redisDB)
		if err := rc.Ping(); err != nil {
			log.Printf("WARNING: Redis connection failed: %v. Falling back to file store.", err)
		} else {
			log.Println("Redis connected successfully")
			redisCache = rc
			kv = store.NewRedisStore(rc)
		}
	}
	if kv == nil {
		statePath := os.Getenv("STATE_FILE")
		if statePath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal("Cannot resolve home directory:", err)
			}
			statePath = filepath.Join(home, ".missedtask", "state.json")
		}
		fileStore, err := store.NewFileStore(statePath)
		if err != nil {
			log.Fatal("Failed to open state file:", err)
		}
		kv = fileStore
	}

	sess := session.New(kv)
	if token := os.Getenv("MISSEDTASK_TOKEN"); token != "" {
		if err := sess.SetToken(token); err != nil {
			log.Fatal("Invalid MISSEDTASK_TOKEN:", err)
		}
	}
	if !sess.Valid() {
		log.Fatal("No valid session; set MISSEDTASK_TOKEN")
	}
	log.Printf("Signed in as %s", sess.Username())

	var history *cache.HistoryCache
	if redisCache != nil {
		history = cache.NewHistoryCache(redisCache)
	}
	apiClient := api.NewClient(apiURL, sess, history)

	dispatcher := ws.NewDispatcher()
	// The socket is shared with non-chat concerns; extra consumers
	// register alongside the engine without displacing it.
	dispatcher.On("presence", func(env *ws.Envelope) {
		log.Printf("Presence update: %s", ws.Preview(env.Body()))
	})

	var socket *ws.Client
	if wsURL != "" {
		socket = ws.NewClient(wsURL, sess.Token, dispatcher)
	} else {
		log.Println("MISSEDTASK_WS_URL not set, running without live push")
	}

	watermarks := store.NewWatermarkStore(kv)
	feed := notify.NewFeed()
	rec := reconciler.New(sess.UserID, watermarks, feed, logToasts{})

	pollInterval := client.DefaultPollInterval
	if msStr := os.Getenv("POLL_INTERVAL_MS"); msStr != "" {
		if ms, err := strconv.Atoi(msStr); err == nil && ms > 0 {
			pollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	engine := client.New(apiClient, rec, sess, dispatcher, socket, logToasts{}, pollInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)

	conversations, err := engine.Conversations(ctx)
	if err != nil {
		log.Printf("WARNING: Could not list conversations: %v", err)
	} else {
		log.Printf("%d conversations available", len(conversations))
		for _, c := range conversations {
			log.Printf("  [%s] %s (%s)", c.ID, c.DisplayName(), c.Kind)
		}
	}

	if convID := os.Getenv("MISSEDTASK_CONVERSATION"); convID != "" {
		log.Printf("Opening conversation %s", convID)
		engine.OpenConversation(ctx, convID)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
	case err := <-engine.Fatal():
		log.Printf("Session ended: %v", err)
	}

	engine.CloseChat()
	if redisCache != nil {
		redisCache.Close()
	}
}
