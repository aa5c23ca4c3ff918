package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/audiolyze/server/internal/repository/session"
)

func (r repo) getReconnectTokenKey(token string) string {
	return "reconnect-token:" + token
}

// Reconnect tokens carry member identity over the disconnect window. The TTL
// is the repo-wide expire duration; the service refreshes it on reconnect.
func (r repo) SetReconnectToken(ctx context.Context, params *session.SetReconnectTokenParams) error {
	if err := r.rc.Set(ctx, r.getReconnectTokenKey(params.Token), params.MemberID, r.expireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set reconnect token: %w", err)
	}

	return nil
}

func (r repo) GetMemberIDByReconnectToken(ctx context.Context, token string) (string, error) {
	memberID, err := r.rc.Get(ctx, r.getReconnectTokenKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", session.ErrTokenNotFound
		}

		return "", fmt.Errorf("failed to get member id by reconnect token: %w", err)
	}

	return memberID, nil
}

func (r repo) RemoveReconnectToken(ctx context.Context, token string) error {
	if err := r.rc.Del(ctx, r.getReconnectTokenKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to remove reconnect token: %w", err)
	}

	return nil
}
