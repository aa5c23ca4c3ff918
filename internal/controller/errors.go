package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
	"github.com/audiolyze/server/pkg/wsrouter"
)

var ErrValidationError = errors.New("validation error")

// handleWSError is the single place handler errors turn into error events.
// Known service errors keep their message; anything else is masked.
func (c *controller) handleWSError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.DebugContext(ctx, "websocket handler error", "error", err)

	message := "internal error"
	switch {
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		message = "unknown message type"
	case errors.Is(err, ErrValidationError):
		message = err.Error()
	case errors.Is(err, session.ErrSessionNotFound):
		message = "session not found"
	case errors.Is(err, session.ErrSessionPrivate):
		message = "session is private"
	case errors.Is(err, session.ErrMemberNotFound):
		message = "member not found"
	case errors.Is(err, session.ErrPermissionDenied):
		message = "host privileges required"
	case errors.Is(err, session.ErrInvalidOrder):
		message = "order must rearrange exactly the unlocked queue items"
	case errors.Is(err, session.ErrDuplicatePending):
		message = "you already have a pending suggestion"
	case errors.Is(err, session.ErrNotInSession):
		message = "not in a session"
	case errors.Is(err, session.ErrNoOwnedSession):
		message = "no session to return to"
	case errors.Is(err, session.ErrQueueItemNotFound):
		message = "queue item not found"
	case errors.Is(err, session.ErrSuggestionNotFound):
		message = "suggestion not found"
	case errors.Is(err, session.ErrInvalidSpeed):
		message = "speed multiplier must be positive"
	case errors.Is(err, session.ErrUnknownHostAction):
		message = "unknown host action"
	}

	memberID, senderErr := c.sender.GetMemberID(conn)
	if senderErr != nil {
		return
	}

	c.sendEvent(memberID, &protocol.ErrorEvent{Message: message})
}

func (c *controller) validateInput(input any) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		if len(validationErrors) > 0 {
			return fmt.Errorf("%w: %s", ErrValidationError, validationErrors[0].Message)
		}

		return ErrValidationError
	}

	return nil
}
