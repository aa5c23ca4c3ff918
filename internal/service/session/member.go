package session

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

const (
	displayNameLimit = 30
	sessionNameLimit = 50
	queueTitleLimit  = 200
	chatTextLimit    = 500
)

type ConnectParams struct {
	DisplayName    string
	ReconnectToken string
}

type ConnectResponse struct {
	MemberID       string
	ReconnectToken string
	PublicSessions []protocol.SessionSummary
	// Resumed is set when the reconnect token restored an existing identity
	// that was still a member of a live session.
	Resumed        bool
	ResumedState   *protocol.SessionState
	ResumedMembers []string
}

// Connect registers a connecting client. A valid reconnect token restores the
// previous member id, so a disconnect/reconnect cycle within the grace window
// does not produce a brand-new anonymous member.
func (s *service) Connect(ctx context.Context, params *ConnectParams) (ConnectResponse, error) {
	displayName := truncate(params.DisplayName, displayNameLimit)

	if params.ReconnectToken != "" {
		if memberID, err := s.sessionRepo.GetMemberIDByReconnectToken(ctx, params.ReconnectToken); err == nil {
			return s.resumeMember(ctx, memberID, displayName, params.ReconnectToken)
		} else if err != session.ErrTokenNotFound {
			return ConnectResponse{}, err
		}
	}

	memberID := newID()
	if err := s.sessionRepo.SetMember(ctx, &session.SetMemberParams{
		MemberID:    memberID,
		DisplayName: displayName,
		IsOnline:    true,
	}); err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	token := newID()
	if err := s.sessionRepo.SetReconnectToken(ctx, &session.SetReconnectTokenParams{
		Token:    token,
		MemberID: memberID,
	}); err != nil {
		return ConnectResponse{}, fmt.Errorf("failed to set reconnect token: %w", err)
	}

	publicSessions, err := s.GetPublicSessions(ctx)
	if err != nil {
		return ConnectResponse{}, err
	}

	return ConnectResponse{
		MemberID:       memberID,
		ReconnectToken: token,
		PublicSessions: publicSessions,
	}, nil
}

func (s *service) resumeMember(ctx context.Context, memberID, displayName, token string) (ConnectResponse, error) {
	if err := s.sessionRepo.UpdateMemberIsOnline(ctx, memberID, true); err != nil {
		return ConnectResponse{}, err
	}
	if displayName != "" {
		if err := s.sessionRepo.UpdateMemberDisplayName(ctx, memberID, displayName); err != nil {
			return ConnectResponse{}, err
		}
	}

	// tokens are single-use: rotate on every resume so a leaked one goes
	// stale the moment the real client reconnects
	freshToken := newID()
	if err := s.sessionRepo.SetReconnectToken(ctx, &session.SetReconnectTokenParams{
		Token:    freshToken,
		MemberID: memberID,
	}); err != nil {
		return ConnectResponse{}, err
	}
	if err := s.sessionRepo.RemoveReconnectToken(ctx, token); err != nil {
		return ConnectResponse{}, err
	}

	s.cancelGraceTimer("member:" + memberID)

	publicSessions, err := s.GetPublicSessions(ctx)
	if err != nil {
		return ConnectResponse{}, err
	}

	resp := ConnectResponse{
		MemberID:       memberID,
		ReconnectToken: freshToken,
		PublicSessions: publicSessions,
	}

	sessionID, err := s.getMemberSessionID(ctx, memberID)
	if err != nil {
		if err == ErrNotInSession {
			return resp, nil
		}

		return ConnectResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	// a reconnecting host cancels the host-away countdown
	if sess, err := s.sessionRepo.GetSession(ctx, sessionID); err == nil && sess.HostMemberID == memberID {
		s.cancelGraceTimer("session:" + sessionID)
	}

	state, err := s.getSessionState(ctx, sessionID)
	if err != nil {
		if err == ErrSessionNotFound {
			return resp, nil
		}

		return ConnectResponse{}, err
	}

	others, err := s.otherMemberIDs(ctx, sessionID, memberID)
	if err != nil {
		return ConnectResponse{}, err
	}

	resp.Resumed = true
	resp.ResumedState = &state
	resp.ResumedMembers = others

	return resp, nil
}

type SetDisplayNameParams struct {
	MemberID string
	Name     string
}

type SetDisplayNameResponse struct {
	Name string
	// Members and MemberIDs are populated when the member is in a session, so
	// the rename can be reflected in everyone's member list.
	Members   []protocol.Member
	MemberIDs []string
}

func (s *service) SetDisplayName(ctx context.Context, params *SetDisplayNameParams) (SetDisplayNameResponse, error) {
	name := truncate(params.Name, displayNameLimit)

	if err := s.sessionRepo.UpdateMemberDisplayName(ctx, params.MemberID, name); err != nil {
		return SetDisplayNameResponse{}, err
	}

	resp := SetDisplayNameResponse{Name: name}

	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		if err == ErrNotInSession {
			return resp, nil
		}

		return SetDisplayNameResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		return resp, nil
	}

	members, err := s.getMembers(ctx, sessionID, sess.HostMemberID)
	if err != nil {
		return SetDisplayNameResponse{}, err
	}

	others, err := s.otherMemberIDs(ctx, sessionID, params.MemberID)
	if err != nil {
		return SetDisplayNameResponse{}, err
	}

	resp.Members = members
	resp.MemberIDs = others

	return resp, nil
}

type DisconnectMemberParams struct {
	MemberID string
}

type DisconnectMemberResponse struct {
	SessionID string
	// Members reflects the list with the member marked offline; empty when
	// the member was not in a session.
	Members   []protocol.Member
	MemberIDs []string
	WasHost   bool
}

// DisconnectMember handles a transport-level drop. The member keeps its
// identity and membership for the grace period; a host drop arms the
// host-away countdown instead of closing the session.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	if err := s.sessionRepo.UpdateMemberIsOnline(ctx, params.MemberID, false); err != nil {
		if err == session.ErrMemberNotFound {
			return DisconnectMemberResponse{}, nil
		}

		return DisconnectMemberResponse{}, err
	}

	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		if err == ErrNotInSession {
			s.scheduleMemberExpiry(params.MemberID, "")
			return DisconnectMemberResponse{}, nil
		}

		return DisconnectMemberResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return DisconnectMemberResponse{}, nil
		}

		return DisconnectMemberResponse{}, err
	}

	wasHost := sess.HostMemberID == params.MemberID
	if wasHost {
		s.scheduleHostAway(sessionID)
	} else {
		s.scheduleMemberExpiry(params.MemberID, sessionID)
	}

	members, err := s.getMembers(ctx, sessionID, sess.HostMemberID)
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	others, err := s.otherMemberIDs(ctx, sessionID, params.MemberID)
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	return DisconnectMemberResponse{
		SessionID: sessionID,
		Members:   members,
		MemberIDs: others,
		WasHost:   wasHost,
	}, nil
}
