package session

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

func (s *service) appendSystemMessage(ctx context.Context, sessionID string, message *protocol.ChatMessage) {
	if err := s.sessionRepo.AddChatMessage(ctx, &session.AddChatMessageParams{
		SessionID: sessionID,
		Message:   session.ChatMessage(*message),
	}); err != nil {
		s.logger.Warn("failed to append system message", "session_id", sessionID, "error", err)
	}
}

// closeSession tears a session down. Member identities survive; only their
// session membership is cleared.
func (s *service) closeSession(ctx context.Context, sessionID, hostMemberID string) ([]string, error) {
	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	for _, memberID := range memberIDs {
		if err := s.sessionRepo.RemoveMemberFromSession(ctx, &session.RemoveMemberFromSessionParams{
			MemberID:  memberID,
			SessionID: sessionID,
		}); err != nil {
			s.logger.Warn("failed to remove member from closing session", "member_id", memberID, "error", err)
		}
	}

	if hostMemberID != "" {
		if err := s.sessionRepo.RemoveMemberHostedSessionID(ctx, hostMemberID); err != nil {
			s.logger.Warn("failed to clear hosted session", "member_id", hostMemberID, "error", err)
		}
	}

	if err := s.sessionRepo.RemoveSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to remove session: %w", err)
	}

	s.cancelGraceTimer("session:" + sessionID)
	s.dropSessionLock(sessionID)

	return memberIDs, nil
}

// LeaveResult describes the fan-out owed to a session a member just left.
type LeaveResult struct {
	SessionID     string
	WasHost       bool
	Members       []protocol.Member
	MemberIDs     []string
	SystemMessage *protocol.ChatMessage
	// OwnedSummary is set for a host stepping away from their own session.
	OwnedSummary     *protocol.SessionSummary
	DirectoryChanged bool
}

// leaveCurrentSession detaches a member from whatever session they are in.
// A host detaching leaves the session in host-away: it keeps its owner and
// its state, and the owner keeps the hosted-session mapping for the return
// trip. armGrace controls whether the host-away countdown starts; an
// intentional go-to-menu leaves the session frozen indefinitely.
func (s *service) leaveCurrentSession(ctx context.Context, memberID string, armGrace bool) (*LeaveResult, error) {
	sessionID, err := s.getMemberSessionID(ctx, memberID)
	if err != nil {
		if err == ErrNotInSession {
			return nil, nil
		}

		return nil, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return nil, nil
		}

		return nil, err
	}

	member, err := s.sessionRepo.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if err := s.sessionRepo.RemoveMemberFromSession(ctx, &session.RemoveMemberFromSessionParams{
		MemberID:  memberID,
		SessionID: sessionID,
	}); err != nil {
		return nil, fmt.Errorf("failed to remove member from session: %w", err)
	}

	result := LeaveResult{
		SessionID:        sessionID,
		WasHost:          sess.HostMemberID == memberID,
		DirectoryChanged: sess.IsPublic,
	}

	if result.WasHost {
		if armGrace {
			s.scheduleHostAway(sessionID)
		}

		summary, err := s.buildSessionSummary(ctx, sessionID, sess)
		if err != nil {
			return nil, err
		}
		result.OwnedSummary = &summary
	} else {
		memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		// audience-only sessions cannot exist; the host-away state covers the
		// host, but a session whose last member left with no owner attached
		// is gone
		if len(memberIDs) == 0 {
			hosted, hostedErr := s.sessionRepo.GetMemberHostedSessionID(ctx, sess.HostMemberID)
			if hostedErr != nil || hosted != sessionID {
				if _, err := s.closeSession(ctx, sessionID, sess.HostMemberID); err != nil {
					return nil, err
				}

				return &result, nil
			}
		}
	}

	result.SystemMessage = s.newSystemMessage(member.DisplayName + " left the stage")
	s.appendSystemMessage(ctx, sessionID, result.SystemMessage)

	members, err := s.getMembers(ctx, sessionID, sess.HostMemberID)
	if err != nil {
		return nil, err
	}
	result.Members = members

	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result.MemberIDs = memberIDs

	return &result, nil
}

type CreateSessionParams struct {
	MemberID string
	Name     string
}

type CreateSessionResponse struct {
	SessionID string
	State     protocol.SessionState
	// Left carries the fan-out for a session the creator was still in.
	Left             *LeaveResult
	DirectoryChanged bool
}

func (s *service) CreateSession(ctx context.Context, params *CreateSessionParams) (CreateSessionResponse, error) {
	left, err := s.leaveCurrentSession(ctx, params.MemberID, false)
	if err != nil {
		return CreateSessionResponse{}, err
	}

	member, err := s.sessionRepo.GetMember(ctx, params.MemberID)
	if err != nil {
		if err == session.ErrMemberNotFound {
			return CreateSessionResponse{}, ErrMemberNotFound
		}

		return CreateSessionResponse{}, err
	}

	name := truncate(params.Name, sessionNameLimit)
	if name == "" {
		name = truncate(member.DisplayName+"'s Stage", sessionNameLimit)
	}

	sessionID := newID()

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.sessionRepo.SetSession(ctx, &session.SetSessionParams{
		SessionID:    sessionID,
		Name:         name,
		HostMemberID: params.MemberID,
		IsPublic:     false,
		CreatedAt:    nowUnixSeconds(),
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to set session: %w", err)
	}

	if err := s.sessionRepo.SetPlayback(ctx, &session.SetPlaybackParams{
		SessionID:       sessionID,
		PositionSeconds: 0,
		IsPlaying:       false,
		SpeedMultiplier: 1,
		CapturedAt:      nowUnixSeconds(),
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to set playback: %w", err)
	}

	if err := s.sessionRepo.SetVisualizer(ctx, &session.SetVisualizerParams{
		SessionID:   sessionID,
		Shape:       "default",
		Environment: "default",
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to set visualizer: %w", err)
	}

	if err := s.sessionRepo.AddMemberToSession(ctx, &session.AddMemberToSessionParams{
		MemberID:  params.MemberID,
		SessionID: sessionID,
	}); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to add member to session: %w", err)
	}

	if err := s.sessionRepo.SetMemberHostedSessionID(ctx, params.MemberID, sessionID); err != nil {
		return CreateSessionResponse{}, fmt.Errorf("failed to set hosted session: %w", err)
	}

	state, err := s.getSessionState(ctx, sessionID)
	if err != nil {
		return CreateSessionResponse{}, err
	}

	return CreateSessionResponse{
		SessionID: sessionID,
		State:     state,
		Left:      left,
	}, nil
}

type JoinSessionParams struct {
	MemberID  string
	SessionID string
}

type JoinSessionResponse struct {
	State protocol.SessionState
	// OwnedSessionSummary is set when the joiner owns a live session
	// elsewhere and is therefore visiting.
	OwnedSessionSummary *protocol.SessionSummary
	Members             []protocol.Member
	MemberIDs           []string
	SystemMessage       *protocol.ChatMessage
	Left                *LeaveResult
	DirectoryChanged    bool
	AsHost              bool
}

func (s *service) JoinSession(ctx context.Context, params *JoinSessionParams) (JoinSessionResponse, error) {
	sess, err := s.sessionRepo.GetSession(ctx, params.SessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return JoinSessionResponse{}, ErrSessionNotFound
		}

		return JoinSessionResponse{}, err
	}

	asHost := sess.HostMemberID == params.MemberID
	if !sess.IsPublic && !asHost {
		return JoinSessionResponse{}, ErrSessionPrivate
	}

	left, err := s.leaveCurrentSession(ctx, params.MemberID, false)
	if err != nil {
		return JoinSessionResponse{}, err
	}

	unlock := s.lockSession(params.SessionID)
	defer unlock()

	member, err := s.sessionRepo.GetMember(ctx, params.MemberID)
	if err != nil {
		if err == session.ErrMemberNotFound {
			return JoinSessionResponse{}, ErrMemberNotFound
		}

		return JoinSessionResponse{}, err
	}

	if err := s.sessionRepo.AddMemberToSession(ctx, &session.AddMemberToSessionParams{
		MemberID:  params.MemberID,
		SessionID: params.SessionID,
	}); err != nil {
		return JoinSessionResponse{}, fmt.Errorf("failed to add member to session: %w", err)
	}

	if asHost {
		s.cancelGraceTimer("session:" + params.SessionID)
	}

	resp := JoinSessionResponse{
		Left:             left,
		DirectoryChanged: sess.IsPublic,
		AsHost:           asHost,
	}

	// visiting: the joiner owns a live session elsewhere
	if !asHost {
		if hostedID, err := s.sessionRepo.GetMemberHostedSessionID(ctx, params.MemberID); err == nil {
			if summary, err := s.getSessionSummary(ctx, hostedID); err == nil {
				resp.OwnedSessionSummary = &summary
			}
		}
	}

	resp.SystemMessage = s.newSystemMessage(member.DisplayName + " joined the stage")
	s.appendSystemMessage(ctx, params.SessionID, resp.SystemMessage)

	state, err := s.getSessionState(ctx, params.SessionID)
	if err != nil {
		return JoinSessionResponse{}, err
	}
	resp.State = state
	resp.Members = state.Members

	others, err := s.otherMemberIDs(ctx, params.SessionID, params.MemberID)
	if err != nil {
		return JoinSessionResponse{}, err
	}
	resp.MemberIDs = others

	return resp, nil
}

type LeaveSessionParams struct {
	MemberID string
}

func (s *service) LeaveSession(ctx context.Context, params *LeaveSessionParams) (*LeaveResult, error) {
	// an explicit leave by the host arms the host-away countdown: the session
	// survives a change of mind but does not outlive the grace period
	return s.leaveCurrentSession(ctx, params.MemberID, true)
}

type GoToMenuParams struct {
	MemberID string
}

// GoToMenu is the intentional host exit: the owned session stays alive with
// its playback snapshot frozen until the host returns or ends it. No grace
// countdown runs.
func (s *service) GoToMenu(ctx context.Context, params *GoToMenuParams) (*LeaveResult, error) {
	return s.leaveCurrentSession(ctx, params.MemberID, false)
}

type ReturnToSessionParams struct {
	MemberID string
}

type ReturnToSessionResponse struct {
	State         protocol.SessionState
	Members       []protocol.Member
	MemberIDs     []string
	SystemMessage *protocol.ChatMessage
	Left          *LeaveResult
	// The host-side player was torn down while away, so the client must
	// rebuild it from the stored audio source.
	NeedsAudioReload bool
}

func (s *service) ReturnToSession(ctx context.Context, params *ReturnToSessionParams) (ReturnToSessionResponse, error) {
	hostedID, err := s.sessionRepo.GetMemberHostedSessionID(ctx, params.MemberID)
	if err != nil {
		return ReturnToSessionResponse{}, ErrNoOwnedSession
	}

	exists, err := s.sessionRepo.IsSessionExists(ctx, hostedID)
	if err != nil {
		return ReturnToSessionResponse{}, err
	}
	if !exists {
		return ReturnToSessionResponse{}, ErrSessionNotFound
	}

	left, err := s.leaveCurrentSession(ctx, params.MemberID, false)
	if err != nil {
		return ReturnToSessionResponse{}, err
	}

	unlock := s.lockSession(hostedID)
	defer unlock()

	member, err := s.sessionRepo.GetMember(ctx, params.MemberID)
	if err != nil {
		return ReturnToSessionResponse{}, err
	}

	if err := s.sessionRepo.AddMemberToSession(ctx, &session.AddMemberToSessionParams{
		MemberID:  params.MemberID,
		SessionID: hostedID,
	}); err != nil {
		return ReturnToSessionResponse{}, fmt.Errorf("failed to add member to session: %w", err)
	}

	s.cancelGraceTimer("session:" + hostedID)

	systemMessage := s.newSystemMessage(member.DisplayName + " returned to the stage")
	s.appendSystemMessage(ctx, hostedID, systemMessage)

	state, err := s.getSessionState(ctx, hostedID)
	if err != nil {
		return ReturnToSessionResponse{}, err
	}

	others, err := s.otherMemberIDs(ctx, hostedID, params.MemberID)
	if err != nil {
		return ReturnToSessionResponse{}, err
	}

	return ReturnToSessionResponse{
		State:            state,
		Members:          state.Members,
		MemberIDs:        others,
		SystemMessage:    systemMessage,
		Left:             left,
		NeedsAudioReload: true,
	}, nil
}

type EndSessionParams struct {
	MemberID string
}

type EndSessionResponse struct {
	SessionID string
	// MemberIDs are the members owed a closed notification, the ender
	// excluded.
	MemberIDs        []string
	DirectoryChanged bool
}

// EndSession closes the member's owned session wherever they are: hosting it,
// visiting elsewhere, or sitting in the menu.
func (s *service) EndSession(ctx context.Context, params *EndSessionParams) (EndSessionResponse, error) {
	sessionID, err := s.sessionRepo.GetMemberHostedSessionID(ctx, params.MemberID)
	if err != nil {
		return EndSessionResponse{}, ErrNoOwnedSession
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return EndSessionResponse{}, ErrSessionNotFound
		}

		return EndSessionResponse{}, err
	}

	if sess.HostMemberID != params.MemberID {
		return EndSessionResponse{}, ErrPermissionDenied
	}

	memberIDs, err := s.closeSession(ctx, sessionID, params.MemberID)
	if err != nil {
		return EndSessionResponse{}, err
	}

	others := make([]string, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		if memberID != params.MemberID {
			others = append(others, memberID)
		}
	}

	return EndSessionResponse{
		SessionID:        sessionID,
		MemberIDs:        others,
		DirectoryChanged: sess.IsPublic,
	}, nil
}

type RenameSessionParams struct {
	MemberID string
	Name     string
}

type SessionUpdatedResponse struct {
	Summary          protocol.SessionSummary
	MemberIDs        []string
	DirectoryChanged bool
}

func (s *service) RenameSession(ctx context.Context, params *RenameSessionParams) (SessionUpdatedResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SessionUpdatedResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return SessionUpdatedResponse{}, err
	}

	name := truncate(params.Name, sessionNameLimit)
	if err := s.sessionRepo.UpdateSessionName(ctx, sessionID, name); err != nil {
		return SessionUpdatedResponse{}, err
	}

	return s.sessionUpdated(ctx, sessionID)
}

type TogglePublicParams struct {
	MemberID string
}

func (s *service) TogglePublic(ctx context.Context, params *TogglePublicParams) (SessionUpdatedResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SessionUpdatedResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return SessionUpdatedResponse{}, ErrSessionNotFound
		}

		return SessionUpdatedResponse{}, err
	}

	if sess.HostMemberID != params.MemberID {
		return SessionUpdatedResponse{}, ErrPermissionDenied
	}

	if err := s.sessionRepo.UpdateSessionIsPublic(ctx, sessionID, !sess.IsPublic); err != nil {
		return SessionUpdatedResponse{}, err
	}

	resp, err := s.sessionUpdated(ctx, sessionID)
	if err != nil {
		return SessionUpdatedResponse{}, err
	}

	// toggling in either direction changes the directory
	resp.DirectoryChanged = true

	return resp, nil
}

type UpdateNowPlayingParams struct {
	MemberID string
	Track    string
}

func (s *service) UpdateNowPlaying(ctx context.Context, params *UpdateNowPlayingParams) (SessionUpdatedResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SessionUpdatedResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return SessionUpdatedResponse{}, err
	}

	if err := s.sessionRepo.UpdateSessionNowPlaying(ctx, sessionID, params.Track); err != nil {
		return SessionUpdatedResponse{}, err
	}

	return s.sessionUpdated(ctx, sessionID)
}

func (s *service) sessionUpdated(ctx context.Context, sessionID string) (SessionUpdatedResponse, error) {
	summary, err := s.getSessionSummary(ctx, sessionID)
	if err != nil {
		return SessionUpdatedResponse{}, err
	}

	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return SessionUpdatedResponse{}, err
	}

	return SessionUpdatedResponse{
		Summary:          summary,
		MemberIDs:        memberIDs,
		DirectoryChanged: summary.IsPublic,
	}, nil
}
