package wssender

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/maps"
)

var (
	ErrNotFound      = errors.New("connection not found")
	ErrAlreadyExists = errors.New("connection already exists")
)

const (
	sendBufferSize = 64
	writeTimeout   = 5 * time.Second
)

// client owns the single writer goroutine for one connection. All outbound
// traffic for a member goes through its buffered send channel, so one stalled
// peer never blocks delivery to the rest of a session.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

func (c *client) writePump(logger *slog.Logger) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("wssender: write failed", "error", err)
			return
		}
	}
}

type Repo struct {
	clients map[string]*client
	conns   map[*websocket.Conn]string
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *Repo {
	return &Repo{
		clients: make(map[string]*client),
		conns:   make(map[*websocket.Conn]string),
		logger:  logger,
	}
}

func (r *Repo) Add(conn *websocket.Conn, memberID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[memberID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := r.conns[conn]; ok {
		return ErrAlreadyExists
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	r.clients[memberID] = c
	r.conns[conn] = memberID

	go c.writePump(r.logger)

	return nil
}

func (r *Repo) RemoveByConn(conn *websocket.Conn) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	memberID, ok := r.conns[conn]
	if !ok {
		return "", ErrNotFound
	}

	c := r.clients[memberID]
	delete(r.clients, memberID)
	delete(r.conns, conn)
	if c != nil {
		c.close()
	}

	return memberID, nil
}

func (r *Repo) GetMemberID(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberID, ok := r.conns[conn]
	if !ok {
		return "", ErrNotFound
	}

	return memberID, nil
}

// Send enqueues data for the member's writer. A full buffer drops the message
// rather than blocking the caller; the client recovers from the next full
// snapshot it receives.
func (r *Repo) Send(memberID string, data []byte) error {
	r.mu.RLock()
	c, ok := r.clients[memberID]
	r.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	select {
	case c.send <- data:
	default:
		r.logger.Warn("wssender: send buffer full, dropping message", "member_id", memberID)
	}

	return nil
}

// GetMemberIDs returns every currently connected member, in-session or not.
// The public directory push uses this.
func (r *Repo) GetMemberIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Keys(r.clients)
}

// CloseWithCode sends a close frame before tearing the connection down, used
// when a newer connection for the same member supersedes this one.
func (r *Repo) CloseWithCode(memberID string, code int, reason string) error {
	r.mu.Lock()
	c, ok := r.clients[memberID]
	if ok {
		delete(r.clients, memberID)
		delete(r.conns, c.conn)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	c.close()

	return nil
}
