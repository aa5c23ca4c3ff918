package session

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

type SendChatMessageParams struct {
	MemberID string
	Text     string
}

type SendChatMessageResponse struct {
	Message protocol.ChatMessage
	// MemberIDs includes the sender: chat echoes back through the same
	// broadcast as everyone else's copy.
	MemberIDs []string
}

func (s *service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return SendChatMessageResponse{}, ErrSessionNotFound
		}

		return SendChatMessageResponse{}, err
	}

	member, err := s.sessionRepo.GetMember(ctx, params.MemberID)
	if err != nil {
		if err == session.ErrMemberNotFound {
			return SendChatMessageResponse{}, ErrMemberNotFound
		}

		return SendChatMessageResponse{}, err
	}

	message := protocol.ChatMessage{
		ID:        newID(),
		MemberID:  params.MemberID,
		Name:      member.DisplayName,
		Text:      truncate(params.Text, chatTextLimit),
		Timestamp: nowUnixSeconds(),
		IsHost:    sess.HostMemberID == params.MemberID,
	}

	if err := s.sessionRepo.AddChatMessage(ctx, &session.AddChatMessageParams{
		SessionID: sessionID,
		Message:   session.ChatMessage(message),
	}); err != nil {
		return SendChatMessageResponse{}, fmt.Errorf("failed to add chat message: %w", err)
	}

	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return SendChatMessageResponse{}, err
	}

	return SendChatMessageResponse{
		Message:   message,
		MemberIDs: memberIDs,
	}, nil
}
