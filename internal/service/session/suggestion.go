package session

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

type SuggestSongParams struct {
	MemberID string
	Title    string
	Source   string
	URL      string
}

type SuggestSongResponse struct {
	Suggestion   protocol.Suggestion
	HostMemberID string
}

// SuggestSong files an audience proposal for the host to rule on. One
// pending suggestion per member; a second one is rejected until the first
// resolves.
func (s *service) SuggestSong(ctx context.Context, params *SuggestSongParams) (SuggestSongResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return SuggestSongResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return SuggestSongResponse{}, ErrSessionNotFound
		}

		return SuggestSongResponse{}, err
	}

	// the host queues directly, it has nothing to suggest
	if sess.HostMemberID == params.MemberID {
		return SuggestSongResponse{}, ErrPermissionDenied
	}

	suggestion := protocol.Suggestion{
		ID:         newID(),
		Title:      truncate(params.Title, queueTitleLimit),
		Source:     params.Source,
		URL:        params.URL,
		ProposerID: params.MemberID,
		Status:     session.SuggestionStatusPending,
	}

	if err := s.sessionRepo.SetSuggestion(ctx, &session.SetSuggestionParams{
		SessionID:    sessionID,
		SuggestionID: suggestion.ID,
		Title:        suggestion.Title,
		Source:       suggestion.Source,
		URL:          suggestion.URL,
		ProposerID:   params.MemberID,
	}); err != nil {
		if err == session.ErrPendingExists {
			return SuggestSongResponse{}, ErrDuplicatePending
		}

		return SuggestSongResponse{}, fmt.Errorf("failed to set suggestion: %w", err)
	}

	return SuggestSongResponse{
		Suggestion:   suggestion,
		HostMemberID: sess.HostMemberID,
	}, nil
}

type RespondSuggestionParams struct {
	MemberID     string
	SuggestionID string
	Decision     string
}

type RespondSuggestionResponse struct {
	SuggestionID string
	Decision     string
	ProposerID   string
	Queue        []protocol.QueueItem
	Suggestions  []protocol.Suggestion
	MemberIDs    []string
}

// RespondSuggestion resolves a pending suggestion. Approval turns it into a
// queue item at the tail, credited to the proposer; rejection just drops it.
// Either way the proposer's pending slot frees up.
func (s *service) RespondSuggestion(ctx context.Context, params *RespondSuggestionParams) (RespondSuggestionResponse, error) {
	sessionID, err := s.getMemberSessionID(ctx, params.MemberID)
	if err != nil {
		return RespondSuggestionResponse{}, err
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	if err := s.checkIfHost(ctx, sessionID, params.MemberID); err != nil {
		return RespondSuggestionResponse{}, err
	}

	suggestion, err := s.sessionRepo.GetSuggestion(ctx, sessionID, params.SuggestionID)
	if err != nil {
		if err == session.ErrSuggestionNotFound {
			return RespondSuggestionResponse{}, ErrSuggestionNotFound
		}

		return RespondSuggestionResponse{}, err
	}

	if params.Decision == "approve" {
		if err := s.sessionRepo.SetQueueItem(ctx, &session.SetQueueItemParams{
			SessionID: sessionID,
			ItemID:    newID(),
			Title:     suggestion.Title,
			Source:    suggestion.Source,
			URL:       suggestion.URL,
			Status:    session.QueueStatusReady,
			AddedByID: suggestion.ProposerID,
		}); err != nil {
			return RespondSuggestionResponse{}, fmt.Errorf("failed to queue approved suggestion: %w", err)
		}
	}

	if err := s.sessionRepo.RemoveSuggestion(ctx, &session.RemoveSuggestionParams{
		SessionID:    sessionID,
		SuggestionID: params.SuggestionID,
		ProposerID:   suggestion.ProposerID,
	}); err != nil {
		return RespondSuggestionResponse{}, fmt.Errorf("failed to remove suggestion: %w", err)
	}

	queueResp, err := s.queueChanged(ctx, sessionID)
	if err != nil {
		return RespondSuggestionResponse{}, err
	}

	return RespondSuggestionResponse{
		SuggestionID: params.SuggestionID,
		Decision:     params.Decision,
		ProposerID:   suggestion.ProposerID,
		Queue:        queueResp.Queue,
		Suggestions:  queueResp.Suggestions,
		MemberIDs:    queueResp.MemberIDs,
	}, nil
}
