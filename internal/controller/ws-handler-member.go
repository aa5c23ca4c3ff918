package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
)

func (c *controller) handleSetDisplayName(ctx context.Context, conn *websocket.Conn, input protocol.SetDisplayNameInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.SetDisplayName(ctx, &session.SetDisplayNameParams{
		MemberID: memberID,
		Name:     input.Name,
	})
	if err != nil {
		return fmt.Errorf("failed to set display name: %w", err)
	}

	c.sendEvent(memberID, &protocol.DisplayNameSetEvent{Name: resp.Name})

	if len(resp.MemberIDs) > 0 {
		c.broadcastEvent(resp.MemberIDs, &protocol.MembersUpdatedEvent{Members: resp.Members})
	}

	return nil
}

func (c *controller) handleChatMessage(ctx context.Context, conn *websocket.Conn, input protocol.ChatMessageInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.SendChatMessage(ctx, &session.SendChatMessageParams{
		MemberID: memberID,
		Text:     input.Text,
	})
	if err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	// the sender gets its own copy through the same broadcast
	c.broadcastEvent(resp.MemberIDs, &protocol.ChatMessageEvent{Message: resp.Message})

	return nil
}
