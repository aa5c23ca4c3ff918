package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
)

func (c *controller) handleQueueAdd(ctx context.Context, conn *websocket.Conn, input protocol.QueueAddInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.QueueAdd(ctx, &session.QueueAddParams{
		MemberID: memberID,
		Title:    input.Title,
		Source:   input.Source,
		URL:      input.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	c.fanOutQueue(resp)

	return nil
}

func (c *controller) handleQueueRemove(ctx context.Context, conn *websocket.Conn, input protocol.QueueRemoveInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.QueueRemove(ctx, &session.QueueRemoveParams{
		MemberID: memberID,
		ItemID:   input.ItemID,
	})
	if err != nil {
		return fmt.Errorf("failed to remove from queue: %w", err)
	}

	c.fanOutQueue(resp)

	return nil
}

func (c *controller) handleQueueReorder(ctx context.Context, conn *websocket.Conn, input protocol.QueueReorderInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.QueueReorder(ctx, &session.QueueReorderParams{
		MemberID:  memberID,
		TailOrder: input.TailOrder,
	})
	if err != nil {
		return fmt.Errorf("failed to reorder queue: %w", err)
	}

	c.fanOutQueue(resp)

	return nil
}

func (c *controller) handleQueueAdvance(ctx context.Context, conn *websocket.Conn, input protocol.EmptyInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.sessionService.QueueAdvance(ctx, &session.QueueAdvanceParams{MemberID: memberID})
	if err != nil {
		return fmt.Errorf("failed to advance queue: %w", err)
	}

	c.fanOutQueue(resp)

	return nil
}

func (c *controller) handleSuggestSong(ctx context.Context, conn *websocket.Conn, input protocol.SuggestSongInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.SuggestSong(ctx, &session.SuggestSongParams{
		MemberID: memberID,
		Title:    input.Title,
		Source:   input.Source,
		URL:      input.URL,
	})
	if err != nil {
		return fmt.Errorf("failed to suggest song: %w", err)
	}

	c.sendEvent(resp.HostMemberID, &protocol.SuggestionCreatedEvent{Suggestion: resp.Suggestion})
	c.sendEvent(memberID, &protocol.SuggestionSentEvent{Suggestion: resp.Suggestion})

	return nil
}

func (c *controller) handleRespondSuggestion(ctx context.Context, conn *websocket.Conn, input protocol.RespondSuggestionInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.RespondSuggestion(ctx, &session.RespondSuggestionParams{
		MemberID:     memberID,
		SuggestionID: input.SuggestionID,
		Decision:     input.Decision,
	})
	if err != nil {
		return fmt.Errorf("failed to respond to suggestion: %w", err)
	}

	c.sendEvent(resp.ProposerID, &protocol.SuggestionResolvedEvent{
		SuggestionID: resp.SuggestionID,
		Decision:     resp.Decision,
	})

	c.broadcastEvent(resp.MemberIDs, &protocol.QueueUpdatedEvent{
		Queue:       resp.Queue,
		Suggestions: resp.Suggestions,
	})

	return nil
}

func (c *controller) fanOutQueue(resp session.QueueResponse) {
	c.broadcastEvent(resp.MemberIDs, &protocol.QueueUpdatedEvent{
		Queue:       resp.Queue,
		Suggestions: resp.Suggestions,
	})

	if resp.NextItem != nil {
		c.broadcastEvent(resp.MemberIDs, &protocol.QueuePlayNextEvent{Item: *resp.NextItem})
	}
}
