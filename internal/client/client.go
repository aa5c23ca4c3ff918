// Package client is the Go adapter for the session protocol: it keeps a
// websocket open, replays the reconnect token across drops, and maintains the
// last authoritative session snapshot.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
)

const reconnectDelay = 3 * time.Second

// EventHandler receives every decoded server event after the client's own
// bookkeeping has run.
type EventHandler func(event protocol.Event)

type Config struct {
	// ServerURL is the ws endpoint, e.g. "ws://localhost:8080/api/v1/ws".
	ServerURL   string
	DisplayName string
}

type Client struct {
	config  Config
	sm      *StateMachine
	store   *Store
	handler EventHandler
	logger  *slog.Logger

	mu             sync.Mutex
	conn           *websocket.Conn
	memberID       string
	reconnectToken string
}

func New(config Config, handler EventHandler, logger *slog.Logger) *Client {
	return &Client{
		config:  config,
		sm:      NewStateMachine(),
		store:   NewStore(),
		handler: handler,
		logger:  logger,
	}
}

func (c *Client) Phase() Phase {
	return c.sm.Phase()
}

func (c *Client) State() *protocol.SessionState {
	return c.store.State()
}

func (c *Client) MemberID() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.memberID
}

// Run dials and keeps redialing on a fixed delay until the context is
// cancelled. Each redial presents the reconnect token from the previous
// connection, so a drop inside the grace window resumes the old identity.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.sm.Transition(PhaseConnecting); err != nil {
			return err
		}

		if err := c.runOnce(ctx); err != nil {
			c.logger.Debug("connection ended", "error", err)
		}

		c.sm.Transition(PhaseDisconnected)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	u, err := url.Parse(c.config.ServerURL)
	if err != nil {
		return fmt.Errorf("failed to parse server url: %w", err)
	}

	q := u.Query()
	q.Set("display-name", c.config.DisplayName)
	c.mu.Lock()
	if c.reconnectToken != "" {
		q.Set("reconnect-token", c.reconnectToken)
	}
	c.mu.Unlock()
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		event, err := protocol.DecodeEvent(data)
		if err != nil {
			c.logger.Warn("failed to decode event", "error", err)
			continue
		}

		c.applyEvent(event)

		if c.handler != nil {
			c.handler(event)
		}
	}
}

// Send writes one command envelope. Safe for concurrent use with the read
// loop but not with itself; callers serialize their own writes.
func (c *Client) Send(messageType string, payload any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return conn.WriteJSON(&protocol.Input{
		Type:    messageType,
		Payload: data,
	})
}

// applyEvent runs the client's own bookkeeping: identity, snapshot, phase.
func (c *Client) applyEvent(event protocol.Event) {
	c.store.ApplyEvent(event)

	switch e := event.(type) {
	case *protocol.ConnectedEvent:
		c.mu.Lock()
		c.memberID = e.MemberID
		c.reconnectToken = e.ReconnectToken
		c.mu.Unlock()
		c.sm.Transition(PhaseNoSession)
	case *protocol.SessionCreatedEvent:
		c.sm.Transition(PhaseHosting)
	case *protocol.SessionJoinedEvent:
		if e.OwnedSessionSummary != nil {
			c.sm.Transition(PhaseVisiting)
		} else if c.isHostOf(&e.Session) {
			c.sm.Transition(PhaseHosting)
		} else {
			c.sm.Transition(PhaseAudience)
		}
	case *protocol.ReturnedToSessionEvent:
		c.sm.Transition(PhaseHosting)
	case *protocol.SessionClosedEvent, *protocol.LeftSessionEvent, *protocol.WentToMenuEvent:
		c.sm.Transition(PhaseNoSession)
	}
}

func (c *Client) isHostOf(state *protocol.SessionState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return state.Session.HostID == c.memberID
}
