package controller

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
)

// serveWS is the single websocket entrypoint. Identity is established before
// the upgrade: a reconnect token presented within the grace window restores
// the previous member, anything else mints a fresh one.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	displayName := r.URL.Query().Get("display-name")
	if displayName == "" {
		displayName = "Anonymous"
	}
	reconnectToken := r.URL.Query().Get("reconnect-token")

	connectResp, err := c.sessionService.Connect(r.Context(), &session.ConnectParams{
		DisplayName:    displayName,
		ReconnectToken: reconnectToken,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect member", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	// a resumed identity may still have a stale connection registered; the
	// new one supersedes it
	c.sender.CloseWithCode(connectResp.MemberID, websocket.CloseGoingAway, "superseded by a newer connection")
	if err := c.sender.Add(conn, connectResp.MemberID); err != nil {
		c.logger.WarnContext(r.Context(), "failed to register connection", "error", err)
		conn.Close()
		return
	}

	c.sendEvent(connectResp.MemberID, &protocol.ConnectedEvent{
		MemberID:       connectResp.MemberID,
		ReconnectToken: connectResp.ReconnectToken,
		PublicSessions: connectResp.PublicSessions,
	})

	if connectResp.Resumed && connectResp.ResumedState != nil {
		c.sendEvent(connectResp.MemberID, &protocol.SessionJoinedEvent{
			Session: *connectResp.ResumedState,
			Members: connectResp.ResumedState.Members,
		})
		c.broadcastEvent(connectResp.ResumedMembers, &protocol.MembersUpdatedEvent{
			Members: connectResp.ResumedState.Members,
		})
	}

	ctx := context.WithValue(r.Context(), memberIDCtxKey, connectResp.MemberID)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(r.Context(), "websocket connection closed", "error", err)
	}

	// the request context is gone once the connection drops
	c.disconnect(context.WithoutCancel(ctx), conn)
}

func (c *controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	memberID, err := c.sender.RemoveByConn(conn)
	if err != nil {
		// already torn down by a close elsewhere
		return
	}

	resp, err := c.sessionService.DisconnectMember(ctx, &session.DisconnectMemberParams{MemberID: memberID})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect member", "member_id", memberID, "error", err)
		return
	}

	if len(resp.MemberIDs) > 0 {
		c.broadcastEvent(resp.MemberIDs, &protocol.MembersUpdatedEvent{Members: resp.Members})
	}
}
