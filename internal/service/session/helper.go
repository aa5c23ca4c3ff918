package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/audiolyze/server/internal/protocol"
	"github.com/audiolyze/server/internal/repository/session"
)

func newID() string {
	return uuid.NewString()
}

func nowUnixSeconds() float64 {
	return float64(time.Now().UnixMilli()) / 1000
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}

func (s *service) checkIfHost(ctx context.Context, sessionID, memberID string) error {
	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return ErrSessionNotFound
		}

		return fmt.Errorf("failed to get session: %w", err)
	}

	if sess.HostMemberID != memberID {
		return ErrPermissionDenied
	}

	return nil
}

func (s *service) getMemberSessionID(ctx context.Context, memberID string) (string, error) {
	sessionID, err := s.sessionRepo.GetMemberSessionID(ctx, memberID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return "", ErrNotInSession
		}

		return "", fmt.Errorf("failed to get member session id: %w", err)
	}

	return sessionID, nil
}

func (s *service) getMembers(ctx context.Context, sessionID, hostMemberID string) ([]protocol.Member, error) {
	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	members := make([]protocol.Member, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		member, err := s.sessionRepo.GetMember(ctx, memberID)
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		members = append(members, protocol.Member{
			ID:       memberID,
			Name:     member.DisplayName,
			IsHost:   memberID == hostMemberID,
			IsOnline: member.IsOnline,
		})
	}

	return members, nil
}

func (s *service) getQueue(ctx context.Context, sessionID string) ([]protocol.QueueItem, error) {
	itemIDs, err := s.sessionRepo.GetQueueItemIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue item ids: %w", err)
	}

	queue := make([]protocol.QueueItem, 0, len(itemIDs))
	for i, itemID := range itemIDs {
		item, err := s.sessionRepo.GetQueueItem(ctx, sessionID, itemID)
		if err != nil {
			return nil, fmt.Errorf("failed to get queue item: %w", err)
		}

		queue = append(queue, protocol.QueueItem{
			ID:        itemID,
			Title:     item.Title,
			Source:    item.Source,
			URL:       item.URL,
			Status:    item.Status,
			AddedByID: item.AddedByID,
			Position:  i,
		})
	}

	return queue, nil
}

func (s *service) getSuggestions(ctx context.Context, sessionID string) ([]protocol.Suggestion, error) {
	suggestionIDs, err := s.sessionRepo.GetSuggestionIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion ids: %w", err)
	}

	suggestions := make([]protocol.Suggestion, 0, len(suggestionIDs))
	for _, suggestionID := range suggestionIDs {
		suggestion, err := s.sessionRepo.GetSuggestion(ctx, sessionID, suggestionID)
		if err != nil {
			return nil, fmt.Errorf("failed to get suggestion: %w", err)
		}

		suggestions = append(suggestions, protocol.Suggestion{
			ID:         suggestionID,
			Title:      suggestion.Title,
			Source:     suggestion.Source,
			URL:        suggestion.URL,
			ProposerID: suggestion.ProposerID,
			Status:     session.SuggestionStatusPending,
		})
	}

	return suggestions, nil
}

func (s *service) getSessionSummary(ctx context.Context, sessionID string) (protocol.SessionSummary, error) {
	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return protocol.SessionSummary{}, ErrSessionNotFound
		}

		return protocol.SessionSummary{}, fmt.Errorf("failed to get session: %w", err)
	}

	return s.buildSessionSummary(ctx, sessionID, sess)
}

func (s *service) buildSessionSummary(ctx context.Context, sessionID string, sess session.Session) (protocol.SessionSummary, error) {
	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return protocol.SessionSummary{}, fmt.Errorf("failed to get member ids: %w", err)
	}

	hostName := ""
	if host, err := s.sessionRepo.GetMember(ctx, sess.HostMemberID); err == nil {
		hostName = host.DisplayName
	}

	// the host does not count as audience
	audienceCount := len(memberIDs)
	for _, memberID := range memberIDs {
		if memberID == sess.HostMemberID {
			audienceCount--
			break
		}
	}

	summary := protocol.SessionSummary{
		ID:            sessionID,
		Name:          sess.Name,
		HostID:        sess.HostMemberID,
		HostName:      hostName,
		IsPublic:      sess.IsPublic,
		AudienceCount: audienceCount,
		CreatedAt:     sess.CreatedAt,
	}
	if sess.NowPlaying != "" {
		summary.NowPlaying = json.RawMessage(sess.NowPlaying)
	}

	return summary, nil
}

// getSessionState assembles the full snapshot replayed to a joining member.
func (s *service) getSessionState(ctx context.Context, sessionID string) (protocol.SessionState, error) {
	sess, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if err == session.ErrSessionNotFound {
			return protocol.SessionState{}, ErrSessionNotFound
		}

		return protocol.SessionState{}, fmt.Errorf("failed to get session: %w", err)
	}

	summary, err := s.buildSessionSummary(ctx, sessionID, sess)
	if err != nil {
		return protocol.SessionState{}, err
	}

	playback, err := s.sessionRepo.GetPlayback(ctx, sessionID)
	if err != nil {
		return protocol.SessionState{}, fmt.Errorf("failed to get playback: %w", err)
	}

	visualizer, err := s.sessionRepo.GetVisualizer(ctx, sessionID)
	if err != nil {
		return protocol.SessionState{}, fmt.Errorf("failed to get visualizer: %w", err)
	}

	queue, err := s.getQueue(ctx, sessionID)
	if err != nil {
		return protocol.SessionState{}, err
	}

	suggestions, err := s.getSuggestions(ctx, sessionID)
	if err != nil {
		return protocol.SessionState{}, err
	}

	members, err := s.getMembers(ctx, sessionID, sess.HostMemberID)
	if err != nil {
		return protocol.SessionState{}, err
	}

	chatMessages, err := s.sessionRepo.GetChatMessages(ctx, sessionID, s.config.ChatJoinReplay)
	if err != nil {
		return protocol.SessionState{}, fmt.Errorf("failed to get chat messages: %w", err)
	}

	messages := make([]protocol.ChatMessage, 0, len(chatMessages))
	for _, message := range chatMessages {
		messages = append(messages, protocol.ChatMessage(message))
	}

	state := protocol.SessionState{
		Session: summary,
		Playback: protocol.PlaybackSnapshot{
			PositionSeconds: playback.PositionSeconds,
			IsPlaying:       playback.IsPlaying,
			SpeedMultiplier: playback.SpeedMultiplier,
			CapturedAt:      playback.CapturedAt,
		},
		Visualizer: protocol.VisualizerSnapshot{
			Shape:       visualizer.Shape,
			Environment: visualizer.Environment,
		},
		Queue:       queue,
		Suggestions: suggestions,
		Members:     members,
		Messages:    messages,
	}
	if visualizer.AudioTuning != "" {
		state.Visualizer.AudioTuning = json.RawMessage(visualizer.AudioTuning)
	}
	if visualizer.PlaybackTuning != "" {
		state.Visualizer.PlaybackTuning = json.RawMessage(visualizer.PlaybackTuning)
	}

	if audio, err := s.sessionRepo.GetAudioSource(ctx, sessionID); err == nil {
		state.AudioSource = &protocol.AudioSource{
			Title:  audio.Title,
			URL:    audio.URL,
			Source: audio.Source,
		}
		if audio.AnalysisResult != "" {
			state.AnalysisResult = json.RawMessage(audio.AnalysisResult)
		}
	} else if err != session.ErrAudioNotFound {
		return protocol.SessionState{}, err
	}

	return state, nil
}

// otherMemberIDs returns every member of the session except the given one,
// for fan-out that excludes the originator.
func (s *service) otherMemberIDs(ctx context.Context, sessionID, exceptMemberID string) ([]string, error) {
	memberIDs, err := s.sessionRepo.GetMemberIDs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	others := make([]string, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		if memberID != exceptMemberID {
			others = append(others, memberID)
		}
	}

	return others, nil
}

func (s *service) newSystemMessage(text string) *protocol.ChatMessage {
	return &protocol.ChatMessage{
		ID:        newID(),
		MemberID:  "system",
		Name:      "System",
		Text:      text,
		Timestamp: nowUnixSeconds(),
		IsSystem:  true,
	}
}
