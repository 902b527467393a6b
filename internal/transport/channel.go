package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"shared-space-client/internal/session"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Envelope is the wire shape of every channel message
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Handler receives the raw data payload of a channel event
type Handler func(data json.RawMessage)

type registration struct {
	id int64
	fn Handler
}

// Channel is the persistent bidirectional event channel to the backend.
// Identity headers are stamped at dial time; replacing the identity
// requires a full reconnect. Handlers run sequentially on the read loop,
// so mutation order matches arrival order.
type Channel struct {
	url     string
	session *session.Store
	maxWait time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	handlers  map[string][]registration
	nextID    int64
	connected atomic.Bool
}

// NewChannel creates an event channel for the given websocket URL
func NewChannel(url string, sess *session.Store, maxWait time.Duration) *Channel {
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}
	return &Channel{
		url:      url,
		session:  sess,
		maxWait:  maxWait,
		handlers: make(map[string][]registration),
	}
}

// Connected reports whether the channel currently has a live connection.
// Reconciliation falls back to polling while this is false.
func (c *Channel) Connected() bool {
	return c.connected.Load()
}

// On registers a handler for an event type and returns its unsubscribe
// function. Unsubscribing is safe after the channel has shut down.
func (c *Channel) On(event string, fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], registration{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		regs := c.handlers[event]
		for i, reg := range regs {
			if reg.id == id {
				c.handlers[event] = append(regs[:i], regs[i+1:]...)
				return
			}
		}
	}
}

// Emit sends a client event over the channel
func (c *Channel) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("channel is not connected")
	}

	msg, err := json.Marshal(Envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("channel is not connected")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", event, err)
	}
	return nil
}

// Run dials the channel and keeps it alive with capped backoff until the
// context is cancelled. It blocks; run it in its own goroutine.
func (c *Channel) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := c.connectAndRead(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("Channel disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxWait {
			backoff = c.maxWait
		}
	}
}

func (c *Channel) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	stampIdentity(header, c.session)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return fmt.Errorf("failed to dial channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	log.Info().Str("url", c.url).Msg("Channel connected")

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer func() {
		c.connected.Store(false)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				return fmt.Errorf("channel read failed: %w", err)
			}
			return err
		}

		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Error().Err(err).Msg("Failed to parse channel message")
			continue
		}
		c.dispatch(env)
	}
}

// dispatch runs the registered handlers for an event in registration order
func (c *Channel) dispatch(env Envelope) {
	c.mu.Lock()
	regs := make([]registration, len(c.handlers[env.Type]))
	copy(regs, c.handlers[env.Type])
	c.mu.Unlock()

	if len(regs) == 0 {
		log.Debug().Str("type", env.Type).Msg("No handler for channel event")
		return
	}
	for _, reg := range regs {
		reg.fn(env.Data)
	}
}
