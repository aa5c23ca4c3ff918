package controller

import (
	"context"
	"encoding/json"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
)

// sendEvent delivers one event to one member. Delivery failures are logged
// and swallowed: a member with no live connection is in its grace window, and
// the join snapshot covers anything it missed.
func (c *controller) sendEvent(memberID string, event protocol.Event) {
	data, err := json.Marshal(&protocol.Output{
		Type:    event.EventType(),
		Payload: event,
	})
	if err != nil {
		c.logger.Warn("failed to marshal event", "type", event.EventType(), "error", err)
		return
	}

	if err := c.sender.Send(memberID, data); err != nil {
		c.logger.Debug("failed to send event", "type", event.EventType(), "member_id", memberID, "error", err)
	}
}

// broadcastEvent marshals once and fans out to every listed member.
func (c *controller) broadcastEvent(memberIDs []string, event protocol.Event) {
	data, err := json.Marshal(&protocol.Output{
		Type:    event.EventType(),
		Payload: event,
	})
	if err != nil {
		c.logger.Warn("failed to marshal event", "type", event.EventType(), "error", err)
		return
	}

	for _, memberID := range memberIDs {
		if err := c.sender.Send(memberID, data); err != nil {
			c.logger.Debug("failed to send event", "type", event.EventType(), "member_id", memberID, "error", err)
		}
	}
}

// pushPublicSessions refreshes the directory for everyone connected,
// in-session or not.
func (c *controller) pushPublicSessions(ctx context.Context) {
	sessions, err := c.sessionService.GetPublicSessions(ctx)
	if err != nil {
		c.logger.Warn("failed to get public sessions", "error", err)
		return
	}

	c.broadcastEvent(c.sender.GetMemberIDs(), &protocol.PublicSessionsEvent{Sessions: sessions})
}

// fanOutLeave delivers the member-left fallout of an implicit or explicit
// departure to the session that was left.
func (c *controller) fanOutLeave(ctx context.Context, left *session.LeaveResult) {
	if left == nil {
		return
	}

	if len(left.MemberIDs) > 0 {
		c.broadcastEvent(left.MemberIDs, &protocol.MemberLeftEvent{
			Members:       left.Members,
			SystemMessage: left.SystemMessage,
		})
	}

	if left.DirectoryChanged {
		c.pushPublicSessions(ctx)
	}
}

// SessionClosed implements the service event sink for host-away expiries.
func (c *controller) SessionClosed(sessionID string, memberIDs []string) {
	c.broadcastEvent(memberIDs, &protocol.SessionClosedEvent{})
}

// MemberExpired implements the service event sink for audience grace
// expiries.
func (c *controller) MemberExpired(sessionID string, memberIDs []string, members []protocol.Member, systemMessage *protocol.ChatMessage) {
	c.broadcastEvent(memberIDs, &protocol.MemberLeftEvent{
		Members:       members,
		SystemMessage: systemMessage,
	})
}

// DirectoryChanged implements the service event sink.
func (c *controller) DirectoryChanged() {
	c.pushPublicSessions(context.Background())
}
