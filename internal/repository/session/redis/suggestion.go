package redis

import (
	"context"
	"fmt"

	"github.com/audiolyze/server/internal/repository/session"
)

func (r repo) getSuggestionListKey(sessionID string) string {
	return "session:" + sessionID + ":suggestions"
}

func (r repo) getSuggestionKey(sessionID, suggestionID string) string {
	return "session:" + sessionID + ":suggestion:" + suggestionID
}

func (r repo) getPendingKey(sessionID string) string {
	return "session:" + sessionID + ":pending"
}

// SetSuggestion reserves the proposer's single pending slot first; a second
// pending suggestion from the same proposer fails with ErrPendingExists and
// writes nothing.
func (r repo) SetSuggestion(ctx context.Context, params *session.SetSuggestionParams) error {
	reserved, err := r.rc.HSetNX(ctx, r.getPendingKey(params.SessionID), params.ProposerID, params.SuggestionID).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve pending slot: %w", err)
	}
	if !reserved {
		return session.ErrPendingExists
	}

	suggestion := session.Suggestion{
		Title:      params.Title,
		Source:     params.Source,
		URL:        params.URL,
		ProposerID: params.ProposerID,
	}
	suggestionKey := r.getSuggestionKey(params.SessionID, params.SuggestionID)
	if err := r.rc.HSet(ctx, suggestionKey, suggestion).Err(); err != nil {
		return fmt.Errorf("failed to set suggestion: %w", err)
	}

	suggestionListKey := r.getSuggestionListKey(params.SessionID)
	r.addWithIncrement(ctx, r.rc, suggestionListKey, params.SuggestionID)

	pipe := r.rc.TxPipeline()
	pipe.Expire(ctx, suggestionKey, r.expireDuration)
	pipe.Expire(ctx, suggestionListKey, r.expireDuration)
	pipe.Expire(ctx, r.getPendingKey(params.SessionID), r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to expire suggestion keys: %w", err)
	}

	return nil
}

func (r repo) GetSuggestion(ctx context.Context, sessionID, suggestionID string) (session.Suggestion, error) {
	suggestionKey := r.getSuggestionKey(sessionID, suggestionID)
	res, err := r.rc.Exists(ctx, suggestionKey).Result()
	if err != nil {
		return session.Suggestion{}, fmt.Errorf("failed to check if suggestion exists: %w", err)
	}
	if res == 0 {
		return session.Suggestion{}, session.ErrSuggestionNotFound
	}

	var suggestion session.Suggestion
	if err := r.rc.HGetAll(ctx, suggestionKey).Scan(&suggestion); err != nil {
		return session.Suggestion{}, fmt.Errorf("failed to get suggestion: %w", err)
	}

	return suggestion, nil
}

// RemoveSuggestion frees the proposer's pending slot together with the
// suggestion itself; either resolution path goes through here.
func (r repo) RemoveSuggestion(ctx context.Context, params *session.RemoveSuggestionParams) error {
	pipe := r.rc.TxPipeline()

	pipe.ZRem(ctx, r.getSuggestionListKey(params.SessionID), params.SuggestionID)
	pipe.Del(ctx, r.getSuggestionKey(params.SessionID, params.SuggestionID))
	pipe.HDel(ctx, r.getPendingKey(params.SessionID), params.ProposerID)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove suggestion: %w", err)
	}

	return nil
}

func (r repo) GetSuggestionIDs(ctx context.Context, sessionID string) ([]string, error) {
	suggestionIDs, err := r.rc.ZRange(ctx, r.getSuggestionListKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion ids: %w", err)
	}

	return suggestionIDs, nil
}
