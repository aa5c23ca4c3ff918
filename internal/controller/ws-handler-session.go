package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
)

func (c *controller) handleCreateSession(ctx context.Context, conn *websocket.Conn, input protocol.CreateSessionInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.CreateSession(ctx, &session.CreateSessionParams{
		MemberID: memberID,
		Name:     input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	c.fanOutLeave(ctx, resp.Left)

	c.sendEvent(memberID, &protocol.SessionCreatedEvent{
		Session: resp.State,
		Members: resp.State.Members,
	})

	return nil
}

func (c *controller) handleJoinSession(ctx context.Context, conn *websocket.Conn, input protocol.JoinSessionInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.JoinSession(ctx, &session.JoinSessionParams{
		MemberID:  memberID,
		SessionID: input.SessionID,
	})
	if err != nil {
		return fmt.Errorf("failed to join session: %w", err)
	}

	c.fanOutLeave(ctx, resp.Left)

	c.sendEvent(memberID, &protocol.SessionJoinedEvent{
		Session:             resp.State,
		Members:             resp.Members,
		OwnedSessionSummary: resp.OwnedSessionSummary,
	})

	c.broadcastEvent(resp.MemberIDs, &protocol.MemberJoinedEvent{
		Members:       resp.Members,
		SystemMessage: resp.SystemMessage,
	})

	if resp.DirectoryChanged {
		c.pushPublicSessions(ctx)
	}

	return nil
}

func (c *controller) handleLeaveSession(ctx context.Context, conn *websocket.Conn, input protocol.EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	left, err := c.sessionService.LeaveSession(ctx, &session.LeaveSessionParams{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("failed to leave session: %w", err)
	}

	c.sendEvent(memberID, &protocol.LeftSessionEvent{})
	c.fanOutLeave(ctx, left)

	return nil
}

func (c *controller) handleGoToMenu(ctx context.Context, conn *websocket.Conn, input protocol.EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	left, err := c.sessionService.GoToMenu(ctx, &session.GoToMenuParams{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("failed to go to menu: %w", err)
	}

	if left != nil && left.WasHost && left.OwnedSummary != nil {
		c.sendEvent(memberID, &protocol.WentToMenuEvent{OwnedSessionSummary: *left.OwnedSummary})
	} else {
		c.sendEvent(memberID, &protocol.LeftSessionEvent{})
	}

	c.fanOutLeave(ctx, left)

	return nil
}

func (c *controller) handleReturnToSession(ctx context.Context, conn *websocket.Conn, input protocol.EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.sessionService.ReturnToSession(ctx, &session.ReturnToSessionParams{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("failed to return to session: %w", err)
	}

	c.fanOutLeave(ctx, resp.Left)

	c.sendEvent(memberID, &protocol.ReturnedToSessionEvent{
		Session:          resp.State,
		NeedsAudioReload: resp.NeedsAudioReload,
	})

	c.broadcastEvent(resp.MemberIDs, &protocol.MemberJoinedEvent{
		Members:       resp.Members,
		SystemMessage: resp.SystemMessage,
	})

	return nil
}

func (c *controller) handleEndSession(ctx context.Context, conn *websocket.Conn, input protocol.EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.sessionService.EndSession(ctx, &session.EndSessionParams{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	c.sendEvent(memberID, &protocol.SessionClosedEvent{})
	c.broadcastEvent(resp.MemberIDs, &protocol.SessionClosedEvent{})

	if resp.DirectoryChanged {
		c.pushPublicSessions(ctx)
	}

	return nil
}

func (c *controller) handleRenameSession(ctx context.Context, conn *websocket.Conn, input protocol.RenameSessionInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.RenameSession(ctx, &session.RenameSessionParams{
		MemberID: memberID,
		Name:     input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to rename session: %w", err)
	}

	return c.fanOutSessionUpdated(ctx, resp)
}

func (c *controller) handleTogglePublic(ctx context.Context, conn *websocket.Conn, input protocol.EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.sessionService.TogglePublic(ctx, &session.TogglePublicParams{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("failed to toggle public: %w", err)
	}

	return c.fanOutSessionUpdated(ctx, resp)
}

func (c *controller) handleUpdateNowPlaying(ctx context.Context, conn *websocket.Conn, input protocol.UpdateNowPlayingInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.sessionService.UpdateNowPlaying(ctx, &session.UpdateNowPlayingParams{
		MemberID: memberID,
		Track:    string(input.Track),
	})
	if err != nil {
		return fmt.Errorf("failed to update now playing: %w", err)
	}

	return c.fanOutSessionUpdated(ctx, resp)
}

func (c *controller) fanOutSessionUpdated(ctx context.Context, resp session.SessionUpdatedResponse) error {
	c.broadcastEvent(resp.MemberIDs, &protocol.SessionUpdatedEvent{Session: resp.Summary})

	if resp.DirectoryChanged {
		c.pushPublicSessions(ctx)
	}

	return nil
}
