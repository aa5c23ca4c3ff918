package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/audiolyze/server/internal/repository/session"
)

func (r repo) getMemberKey(memberID string) string {
	return "member:" + memberID
}

func (r repo) getMemberSessionKey(memberID string) string {
	return "member:" + memberID + ":session"
}

func (r repo) getMemberHostedSessionKey(memberID string) string {
	return "member:" + memberID + ":hosted-session"
}

func (r repo) getMemberListKey(sessionID string) string {
	return "session:" + sessionID + ":members"
}

func (r repo) SetMember(ctx context.Context, params *session.SetMemberParams) error {
	pipe := r.rc.TxPipeline()

	member := session.Member{
		DisplayName: params.DisplayName,
		IsOnline:    params.IsOnline,
	}
	memberKey := r.getMemberKey(params.MemberID)
	pipe.HSet(ctx, memberKey, member)
	pipe.Expire(ctx, memberKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set member: %w", err)
	}

	return nil
}

func (r repo) GetMember(ctx context.Context, memberID string) (session.Member, error) {
	memberKey := r.getMemberKey(memberID)
	res, err := r.rc.Exists(ctx, memberKey).Result()
	if err != nil {
		return session.Member{}, fmt.Errorf("failed to check if member exists: %w", err)
	}
	if res == 0 {
		return session.Member{}, session.ErrMemberNotFound
	}

	var member session.Member
	if err := r.rc.HGetAll(ctx, memberKey).Scan(&member); err != nil {
		return session.Member{}, fmt.Errorf("failed to get member: %w", err)
	}

	r.rc.Expire(ctx, memberKey, r.expireDuration)

	return member, nil
}

func (r repo) RemoveMember(ctx context.Context, memberID string) error {
	pipe := r.rc.TxPipeline()

	pipe.Del(ctx,
		r.getMemberKey(memberID),
		r.getMemberSessionKey(memberID),
		r.getMemberHostedSessionKey(memberID),
	)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	return nil
}

func (r repo) UpdateMemberDisplayName(ctx context.Context, memberID, displayName string) error {
	if err := r.rc.HSet(ctx, r.getMemberKey(memberID), "display_name", displayName).Err(); err != nil {
		return fmt.Errorf("failed to update member display name: %w", err)
	}

	return nil
}

func (r repo) UpdateMemberIsOnline(ctx context.Context, memberID string, isOnline bool) error {
	if err := r.rc.HSet(ctx, r.getMemberKey(memberID), "is_online", isOnline).Err(); err != nil {
		return fmt.Errorf("failed to update member is online: %w", err)
	}

	return nil
}

func (r repo) AddMemberToSession(ctx context.Context, params *session.AddMemberToSessionParams) error {
	memberListKey := r.getMemberListKey(params.SessionID)
	r.addWithIncrement(ctx, r.rc, memberListKey, params.MemberID)

	pipe := r.rc.TxPipeline()
	pipe.Set(ctx, r.getMemberSessionKey(params.MemberID), params.SessionID, r.expireDuration)
	pipe.Expire(ctx, memberListKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to add member to session: %w", err)
	}

	return nil
}

func (r repo) RemoveMemberFromSession(ctx context.Context, params *session.RemoveMemberFromSessionParams) error {
	pipe := r.rc.TxPipeline()

	pipe.ZRem(ctx, r.getMemberListKey(params.SessionID), params.MemberID)
	pipe.Del(ctx, r.getMemberSessionKey(params.MemberID))

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove member from session: %w", err)
	}

	return nil
}

func (r repo) GetMemberIDs(ctx context.Context, sessionID string) ([]string, error) {
	memberListKey := r.getMemberListKey(sessionID)
	memberIDs, err := r.rc.ZRange(ctx, memberListKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	r.rc.Expire(ctx, memberListKey, r.expireDuration)

	return memberIDs, nil
}

func (r repo) GetMemberSessionID(ctx context.Context, memberID string) (string, error) {
	sessionID, err := r.rc.Get(ctx, r.getMemberSessionKey(memberID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", session.ErrSessionNotFound
		}

		return "", fmt.Errorf("failed to get member session id: %w", err)
	}

	return sessionID, nil
}

func (r repo) SetMemberHostedSessionID(ctx context.Context, memberID, sessionID string) error {
	if err := r.rc.Set(ctx, r.getMemberHostedSessionKey(memberID), sessionID, r.expireDuration).Err(); err != nil {
		return fmt.Errorf("failed to set member hosted session id: %w", err)
	}

	return nil
}

func (r repo) GetMemberHostedSessionID(ctx context.Context, memberID string) (string, error) {
	sessionID, err := r.rc.Get(ctx, r.getMemberHostedSessionKey(memberID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", session.ErrSessionNotFound
		}

		return "", fmt.Errorf("failed to get member hosted session id: %w", err)
	}

	return sessionID, nil
}

func (r repo) RemoveMemberHostedSessionID(ctx context.Context, memberID string) error {
	if err := r.rc.Del(ctx, r.getMemberHostedSessionKey(memberID)).Err(); err != nil {
		return fmt.Errorf("failed to remove member hosted session id: %w", err)
	}

	return nil
}
