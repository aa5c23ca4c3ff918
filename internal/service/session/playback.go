package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

type SetAudioSourceParams struct {
	MemberID       string
	AudioSource    protocol.AudioSource
	AnalysisResult json.RawMessage
}

type SetAudioSourceResponse struct {
	AudioSource    protocol.AudioSource
	AnalysisResult json.RawMessage
	MemberIDs      []string
}

// SetAudioSource swaps the track every member is playing. Playback resets to
// a paused snapshot at position zero so audience players do not chase a
// stale clock while the new track loads.
func (s *service) SetAudioSource(ctx context.Context, params *SetAudioSourceParams) (SetAudioSourceResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SetAudioSourceResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return SetAudioSourceResponse{}, err
	}

	if err := s.sessionRepo.SetAudioSource(ctx, &session.SetAudioSourceParams{
		SessionID:      sessionID,
		Title:          params.AudioSource.Title,
		URL:            params.AudioSource.URL,
		Source:         params.AudioSource.Source,
		AnalysisResult: string(params.AnalysisResult),
	}); err != nil {
		return SetAudioSourceResponse{}, fmt.Errorf("failed to set audio source: %w", err)
	}

	if err := s.sessionRepo.UpdatePlayback(ctx, &session.SetPlaybackParams{
		SessionID:       sessionID,
		PositionSeconds: 0,
		IsPlaying:       false,
		SpeedMultiplier: 1,
		CapturedAt:      nowUnixSeconds(),
	}); err != nil {
		return SetAudioSourceResponse{}, fmt.Errorf("failed to reset playback: %w", err)
	}

	others, err := s.otherMemberIDs(ctx, sessionID, params.MemberID)
	if err != nil {
		return SetAudioSourceResponse{}, err
	}

	return SetAudioSourceResponse{
		AudioSource:    params.AudioSource,
		AnalysisResult: params.AnalysisResult,
		MemberIDs:      others,
	}, nil
}

type SyncHeartbeatParams struct {
	MemberID        string
	PositionSeconds float64
	IsPlaying       bool
	SpeedMultiplier float64
}

type SyncHeartbeatResponse struct {
	Snapshot  protocol.PlaybackSnapshot
	MemberIDs []string
}

// SyncHeartbeat records the host's authoritative playback clock and returns
// the snapshot owed to the audience. CapturedAt is stamped server-side on
// receipt.
func (s *service) SyncHeartbeat(ctx context.Context, params *SyncHeartbeatParams) (SyncHeartbeatResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SyncHeartbeatResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return SyncHeartbeatResponse{}, err
	}

	snapshot := protocol.PlaybackSnapshot{
		PositionSeconds: params.PositionSeconds,
		IsPlaying:       params.IsPlaying,
		SpeedMultiplier: params.SpeedMultiplier,
		CapturedAt:      nowUnixSeconds(),
	}

	if err := s.sessionRepo.UpdatePlayback(ctx, &session.SetPlaybackParams{
		SessionID:       sessionID,
		PositionSeconds: snapshot.PositionSeconds,
		IsPlaying:       snapshot.IsPlaying,
		SpeedMultiplier: snapshot.SpeedMultiplier,
		CapturedAt:      snapshot.CapturedAt,
	}); err != nil {
		return SyncHeartbeatResponse{}, fmt.Errorf("failed to update playback: %w", err)
	}

	others, err := s.otherMemberIDs(ctx, sessionID, params.MemberID)
	if err != nil {
		return SyncHeartbeatResponse{}, err
	}

	return SyncHeartbeatResponse{
		Snapshot:  snapshot,
		MemberIDs: others,
	}, nil
}

type HostActionParams struct {
	MemberID string
	Kind     string
	Payload  json.RawMessage
}

type HostActionResponse struct {
	Kind      string
	Payload   json.RawMessage
	MemberIDs []string
}

// HostAction applies a transport or visualizer control from the host and
// relays it. The kind set is closed; the dispatch layer rejects anything
// outside it before this runs.
func (s *service) HostAction(ctx context.Context, params *HostActionParams) (HostActionResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return HostActionResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return HostActionResponse{}, err
	}

	if err := s.applyHostAction(ctx, sessionID, params.Kind, params.Payload); err != nil {
		return HostActionResponse{}, err
	}

	others, err := s.otherMemberIDs(ctx, sessionID, params.MemberID)
	if err != nil {
		return HostActionResponse{}, err
	}

	return HostActionResponse{
		Kind:      params.Kind,
		Payload:   params.Payload,
		MemberIDs: others,
	}, nil
}

func (s *service) applyHostAction(ctx context.Context, sessionID, kind string, payload json.RawMessage) error {
	playback, err := s.sessionRepo.GetPlayback(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get playback: %w", err)
	}

	update := session.SetPlaybackParams{
		SessionID:       sessionID,
		PositionSeconds: playback.PositionSeconds,
		IsPlaying:       playback.IsPlaying,
		SpeedMultiplier: playback.SpeedMultiplier,
		CapturedAt:      nowUnixSeconds(),
	}

	switch kind {
	case protocol.HostActionPlay:
		update.IsPlaying = true
	case protocol.HostActionPause:
		update.IsPlaying = false
	case protocol.HostActionSeek:
		var p struct {
			PositionSeconds float64 `json:"positionSeconds"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal seek payload: %w", err)
		}
		update.PositionSeconds = p.PositionSeconds
	case protocol.HostActionSpeedChange:
		var p struct {
			SpeedMultiplier float64 `json:"speedMultiplier"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal speed payload: %w", err)
		}
		if p.SpeedMultiplier <= 0 {
			return ErrInvalidSpeed
		}
		update.SpeedMultiplier = p.SpeedMultiplier
	case protocol.HostActionShapeChange:
		var p struct {
			Shape string `json:"shape"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal shape payload: %w", err)
		}

		return s.sessionRepo.UpdateVisualizerField(ctx, sessionID, "shape", p.Shape)
	case protocol.HostActionEnvironmentChange:
		var p struct {
			Environment string `json:"environment"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal environment payload: %w", err)
		}

		return s.sessionRepo.UpdateVisualizerField(ctx, sessionID, "environment", p.Environment)
	case protocol.HostActionEqChange:
		return s.sessionRepo.UpdateVisualizerField(ctx, sessionID, "audio_tuning", string(payload))
	case protocol.HostActionReset:
		update.PositionSeconds = 0
		update.IsPlaying = false
		update.SpeedMultiplier = 1
	default:
		return ErrUnknownHostAction
	}

	if err := s.sessionRepo.UpdatePlayback(ctx, &update); err != nil {
		return fmt.Errorf("failed to update playback: %w", err)
	}

	return nil
}
