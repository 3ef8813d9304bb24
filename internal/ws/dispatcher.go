package ws

import (
	"log"
	"sync"
)

// Handler consumes one parsed envelope. Handlers run on the read pump
// goroutine and must not block.
type Handler func(env *Envelope)

// Dispatcher fans parsed envelopes out by type. Registration is
// additive: subscribing a handler never displaces handlers already
// registered for the same or other types, so the chat reconciler,
// presence tracking and any future consumer compose safely on the one
// shared socket.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]*registration
}

type registration struct {
	fn Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]*registration)}
}

// On subscribes fn to envelopes of the given type. The returned
// function unsubscribes it.
func (d *Dispatcher) On(eventType string, fn Handler) func() {
	reg := &registration{fn: fn}

	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], reg)
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		regs := d.handlers[eventType]
		for i, r := range regs {
			if r == reg {
				d.handlers[eventType] = append(regs[:i], regs[i+1:]...)
				break
			}
		}
	}
}

// Dispatch parses one raw frame and delivers it. Malformed frames are
// logged with a truncated preview and dropped; they never reach
// handlers or crash the pump. Unknown types are dropped silently.
func (d *Dispatcher) Dispatch(data []byte) {
	env, err := ParseEnvelope(data)
	if err != nil {
		log.Printf("Dropping malformed frame (%v): %s", err, Preview(data))
		return
	}

	d.mu.RLock()
	regs := make([]*registration, len(d.handlers[env.Type]))
	copy(regs, d.handlers[env.Type])
	d.mu.RUnlock()

	for _, reg := range regs {
		reg.fn(env)
	}
}
