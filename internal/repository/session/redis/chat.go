package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/audiolyze/server/internal/repository/session"
)

// Chat history bounds: once the log exceeds chatMaxLength entries it is
// trimmed down to chatTrimLength, keeping the most recent messages.
const (
	chatMaxLength  = 200
	chatTrimLength = 100
)

func (r repo) getChatKey(sessionID string) string {
	return "session:" + sessionID + ":chat"
}

func (r repo) AddChatMessage(ctx context.Context, params *session.AddChatMessageParams) error {
	raw, err := json.Marshal(params.Message)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	chatKey := r.getChatKey(params.SessionID)
	length, err := r.rc.RPush(ctx, chatKey, raw).Result()
	if err != nil {
		return fmt.Errorf("failed to push chat message: %w", err)
	}

	if length > chatMaxLength {
		if err := r.rc.LTrim(ctx, chatKey, -chatTrimLength, -1).Err(); err != nil {
			return fmt.Errorf("failed to trim chat log: %w", err)
		}
	}

	r.rc.Expire(ctx, chatKey, r.expireDuration)

	return nil
}

func (r repo) GetChatMessages(ctx context.Context, sessionID string, limit int) ([]session.ChatMessage, error) {
	raws, err := r.rc.LRange(ctx, r.getChatKey(sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get chat messages: %w", err)
	}

	messages := make([]session.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		var message session.ChatMessage
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}

		messages = append(messages, message)
	}

	return messages, nil
}
