package wsrouter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler receives every error returned by a handler, including
// ErrUnknownMessageType for types with no registered handler.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

var ErrUnknownMessageType = fmt.Errorf("unknown message type")

type WSRouter struct {
	routes      map[string]HandlerFunc[json.RawMessage]
	middlewares []Middleware
	errHandler  ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

func (r *WSRouter) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

func (r *WSRouter) HandleError(h ErrorHandler) {
	r.errHandler = h
}

// Handle registers a typed handler for a message type. The payload is
// unmarshalled into T before the handler runs, so the set of accepted
// messages is exactly the set of registered types.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var typed T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &typed); err != nil {
				return fmt.Errorf("failed to unmarshal payload for %q: %w", messageType, err)
			}
		}

		wrapped := func(ctx context.Context, conn *websocket.Conn, _ any) error {
			return handler(ctx, conn, typed)
		}
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			wrapped = r.middlewares[i](wrapped)
		}

		return wrapped(ctx, conn, typed)
	}
}

// ServeConn reads messages from the connection until it fails and dispatches
// each one in arrival order. Handler errors are delivered to the error handler
// and do not terminate the pump.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)

		handler, exists := r.routes[msg.Type]
		if !exists {
			if r.errHandler != nil {
				r.errHandler(msgCtx, conn, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type))
			}
			continue
		}

		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.errHandler != nil {
				r.errHandler(msgCtx, conn, err)
			}
		}
	}
}
