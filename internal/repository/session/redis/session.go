package redis

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/repository/session"
)

func (r repo) getSessionKey(sessionID string) string {
	return "session:" + sessionID
}

const publicSessionsKey = "public-sessions"

func (r repo) SetSession(ctx context.Context, params *session.SetSessionParams) error {
	pipe := r.rc.TxPipeline()

	sess := session.Session{
		Name:         params.Name,
		HostMemberID: params.HostMemberID,
		IsPublic:     params.IsPublic,
		CreatedAt:    params.CreatedAt,
	}
	sessionKey := r.getSessionKey(params.SessionID)
	pipe.HSet(ctx, sessionKey, sess)
	pipe.Expire(ctx, sessionKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set session: %w", err)
	}

	return nil
}

func (r repo) GetSession(ctx context.Context, sessionID string) (session.Session, error) {
	sessionKey := r.getSessionKey(sessionID)
	res, err := r.rc.Exists(ctx, sessionKey).Result()
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to check if session exists: %w", err)
	}
	if res == 0 {
		return session.Session{}, session.ErrSessionNotFound
	}

	var sess session.Session
	if err := r.rc.HGetAll(ctx, sessionKey).Scan(&sess); err != nil {
		return session.Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return sess, nil
}

func (r repo) IsSessionExists(ctx context.Context, sessionID string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getSessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check if session exists: %w", err)
	}

	return res > 0, nil
}

func (r repo) RemoveSession(ctx context.Context, sessionID string) error {
	pipe := r.rc.TxPipeline()

	pipe.Del(ctx,
		r.getSessionKey(sessionID),
		r.getPlaybackKey(sessionID),
		r.getVisualizerKey(sessionID),
		r.getAudioKey(sessionID),
		r.getMemberListKey(sessionID),
		r.getQueueKey(sessionID),
		r.getSuggestionListKey(sessionID),
		r.getPendingKey(sessionID),
		r.getChatKey(sessionID),
	)
	pipe.SRem(ctx, publicSessionsKey, sessionID)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	return nil
}

func (r repo) UpdateSessionName(ctx context.Context, sessionID, name string) error {
	sessionKey := r.getSessionKey(sessionID)
	if err := r.rc.HSet(ctx, sessionKey, "name", name).Err(); err != nil {
		return fmt.Errorf("failed to update session name: %w", err)
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return nil
}

func (r repo) UpdateSessionIsPublic(ctx context.Context, sessionID string, isPublic bool) error {
	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, r.getSessionKey(sessionID), "is_public", isPublic)
	if isPublic {
		pipe.SAdd(ctx, publicSessionsKey, sessionID)
	} else {
		pipe.SRem(ctx, publicSessionsKey, sessionID)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to update session visibility: %w", err)
	}

	return nil
}

func (r repo) UpdateSessionNowPlaying(ctx context.Context, sessionID, nowPlaying string) error {
	sessionKey := r.getSessionKey(sessionID)
	if err := r.rc.HSet(ctx, sessionKey, "now_playing", nowPlaying).Err(); err != nil {
		return fmt.Errorf("failed to update session now playing: %w", err)
	}

	r.rc.Expire(ctx, sessionKey, r.expireDuration)

	return nil
}

func (r repo) GetPublicSessionIDs(ctx context.Context) ([]string, error) {
	sessionIDs, err := r.rc.SMembers(ctx, publicSessionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get public session ids: %w", err)
	}

	return sessionIDs, nil
}
