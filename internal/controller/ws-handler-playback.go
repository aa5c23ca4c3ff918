package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/service/session"
)

func (c *controller) handleSetAudioSource(ctx context.Context, conn *websocket.Conn, input protocol.SetAudioSourceInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	resp, err := c.sessionService.SetAudioSource(ctx, &session.SetAudioSourceParams{
		MemberID:       memberID,
		AudioSource:    input.AudioSource,
		AnalysisResult: input.AnalysisResult,
	})
	if err != nil {
		return fmt.Errorf("failed to set audio source: %w", err)
	}

	c.broadcastEvent(resp.MemberIDs, &protocol.AudioSourceEvent{
		AudioSource:    resp.AudioSource,
		AnalysisResult: resp.AnalysisResult,
	})

	return nil
}

func (c *controller) handleSyncHeartbeat(ctx context.Context, conn *websocket.Conn, input protocol.SyncHeartbeatInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.SyncHeartbeat(ctx, &session.SyncHeartbeatParams{
		MemberID:        memberID,
		PositionSeconds: input.PositionSeconds,
		IsPlaying:       input.IsPlaying,
		SpeedMultiplier: input.SpeedMultiplier,
	})
	if err != nil {
		return fmt.Errorf("failed to sync heartbeat: %w", err)
	}

	c.broadcastEvent(resp.MemberIDs, &protocol.SyncSnapshotEvent{
		PositionSeconds: resp.Snapshot.PositionSeconds,
		IsPlaying:       resp.Snapshot.IsPlaying,
		SpeedMultiplier: resp.Snapshot.SpeedMultiplier,
		CapturedAt:      resp.Snapshot.CapturedAt,
	})

	return nil
}

func (c *controller) handleHostAction(ctx context.Context, conn *websocket.Conn, input protocol.HostActionInput) error {
	memberID := c.getMemberIDFromCtx(ctx)

	if err := c.validateInput(input); err != nil {
		return err
	}

	resp, err := c.sessionService.HostAction(ctx, &session.HostActionParams{
		MemberID: memberID,
		Kind:     input.Kind,
		Payload:  input.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to apply host action: %w", err)
	}

	c.broadcastEvent(resp.MemberIDs, &protocol.HostActionEvent{
		Kind:    resp.Kind,
		Payload: resp.Payload,
	})

	return nil
}
