package redis

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/repository/session"
)

func (r repo) getPlaybackKey(sessionID string) string {
	return "session:" + sessionID + ":playback"
}

func (r repo) getVisualizerKey(sessionID string) string {
	return "session:" + sessionID + ":visualizer"
}

func (r repo) getAudioKey(sessionID string) string {
	return "session:" + sessionID + ":audio"
}

func (r repo) SetPlayback(ctx context.Context, params *session.SetPlaybackParams) error {
	pipe := r.rc.TxPipeline()

	playback := session.Playback{
		PositionSeconds: params.PositionSeconds,
		IsPlaying:       params.IsPlaying,
		SpeedMultiplier: params.SpeedMultiplier,
		CapturedAt:      params.CapturedAt,
	}
	playbackKey := r.getPlaybackKey(params.SessionID)
	pipe.HSet(ctx, playbackKey, playback)
	pipe.Expire(ctx, playbackKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

func (r repo) GetPlayback(ctx context.Context, sessionID string) (session.Playback, error) {
	playbackKey := r.getPlaybackKey(sessionID)
	res, err := r.rc.Exists(ctx, playbackKey).Result()
	if err != nil {
		return session.Playback{}, fmt.Errorf("failed to check if playback exists: %w", err)
	}
	if res == 0 {
		return session.Playback{}, session.ErrPlaybackNotFound
	}

	var playback session.Playback
	if err := r.rc.HGetAll(ctx, playbackKey).Scan(&playback); err != nil {
		return session.Playback{}, fmt.Errorf("failed to get playback: %w", err)
	}

	r.rc.Expire(ctx, playbackKey, r.expireDuration)

	return playback, nil
}

func (r repo) UpdatePlayback(ctx context.Context, params *session.SetPlaybackParams) error {
	playbackKey := r.getPlaybackKey(params.SessionID)
	cmd := r.rc.Exists(ctx, playbackKey)
	if err := cmd.Err(); err != nil {
		return err
	}
	if cmd.Val() == 0 {
		return session.ErrPlaybackNotFound
	}

	if err := r.rc.HSet(ctx, playbackKey,
		"position_seconds", params.PositionSeconds,
		"is_playing", params.IsPlaying,
		"speed_multiplier", params.SpeedMultiplier,
		"captured_at", params.CapturedAt,
	).Err(); err != nil {
		return err
	}

	r.rc.Expire(ctx, playbackKey, r.expireDuration)

	return nil
}

func (r repo) SetVisualizer(ctx context.Context, params *session.SetVisualizerParams) error {
	pipe := r.rc.TxPipeline()

	visualizer := session.Visualizer{
		Shape:          params.Shape,
		Environment:    params.Environment,
		AudioTuning:    params.AudioTuning,
		PlaybackTuning: params.PlaybackTuning,
	}
	visualizerKey := r.getVisualizerKey(params.SessionID)
	pipe.HSet(ctx, visualizerKey, visualizer)
	pipe.Expire(ctx, visualizerKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set visualizer: %w", err)
	}

	return nil
}

func (r repo) GetVisualizer(ctx context.Context, sessionID string) (session.Visualizer, error) {
	var visualizer session.Visualizer
	if err := r.rc.HGetAll(ctx, r.getVisualizerKey(sessionID)).Scan(&visualizer); err != nil {
		return session.Visualizer{}, fmt.Errorf("failed to get visualizer: %w", err)
	}

	return visualizer, nil
}

func (r repo) UpdateVisualizerField(ctx context.Context, sessionID, field, value string) error {
	visualizerKey := r.getVisualizerKey(sessionID)
	if err := r.rc.HSet(ctx, visualizerKey, field, value).Err(); err != nil {
		return fmt.Errorf("failed to update visualizer field: %w", err)
	}

	r.rc.Expire(ctx, visualizerKey, r.expireDuration)

	return nil
}

func (r repo) SetAudioSource(ctx context.Context, params *session.SetAudioSourceParams) error {
	pipe := r.rc.TxPipeline()

	audio := session.AudioSource{
		Title:          params.Title,
		URL:            params.URL,
		Source:         params.Source,
		AnalysisResult: params.AnalysisResult,
	}
	audioKey := r.getAudioKey(params.SessionID)
	pipe.HSet(ctx, audioKey, audio)
	pipe.Expire(ctx, audioKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set audio source: %w", err)
	}

	return nil
}

func (r repo) GetAudioSource(ctx context.Context, sessionID string) (session.AudioSource, error) {
	audioKey := r.getAudioKey(sessionID)
	res, err := r.rc.Exists(ctx, audioKey).Result()
	if err != nil {
		return session.AudioSource{}, fmt.Errorf("failed to check if audio source exists: %w", err)
	}
	if res == 0 {
		return session.AudioSource{}, session.ErrAudioNotFound
	}

	var audio session.AudioSource
	if err := r.rc.HGetAll(ctx, audioKey).Scan(&audio); err != nil {
		return session.AudioSource{}, fmt.Errorf("failed to get audio source: %w", err)
	}

	return audio, nil
}
