package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolyze/server/internal/repository/session"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	return NewRepo(rc, time.Hour)
}

func TestQueueOrdering(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := r.SetQueueItem(ctx, &session.SetQueueItemParams{
			SessionID: "session-1",
			ItemID:    fmt.Sprintf("item-%d", i),
			Title:     fmt.Sprintf("Track %d", i),
			Source:    "link",
			URL:       "http://example.com",
			Status:    "ready",
			AddedByID: "host-1",
		})
		require.NoError(t, err)
	}

	itemIDs, err := r.GetQueueItemIDs(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-1", "item-2", "item-3"}, itemIDs)

	err = r.SetQueueOrder(ctx, &session.SetQueueOrderParams{
		SessionID: "session-1",
		ItemIDs:   []string{"item-2", "item-3", "item-1"},
	})
	require.NoError(t, err)

	itemIDs, err = r.GetQueueItemIDs(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-2", "item-3", "item-1"}, itemIDs)

	// new items land after the rewritten ordering
	err = r.SetQueueItem(ctx, &session.SetQueueItemParams{
		SessionID: "session-1",
		ItemID:    "item-4",
		Title:     "Track 4",
		Source:    "link",
		URL:       "http://example.com",
		Status:    "ready",
		AddedByID: "host-1",
	})
	require.NoError(t, err)

	itemIDs, err = r.GetQueueItemIDs(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"item-2", "item-3", "item-1", "item-4"}, itemIDs)
}

func TestSuggestionPendingSlot(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	err := r.SetSuggestion(ctx, &session.SetSuggestionParams{
		SessionID:    "session-1",
		SuggestionID: "sug-1",
		Title:        "Track",
		Source:       "link",
		URL:          "http://example.com",
		ProposerID:   "member-1",
	})
	require.NoError(t, err)

	err = r.SetSuggestion(ctx, &session.SetSuggestionParams{
		SessionID:    "session-1",
		SuggestionID: "sug-2",
		Title:        "Other",
		Source:       "link",
		URL:          "http://example.com",
		ProposerID:   "member-1",
	})
	assert.ErrorIs(t, err, session.ErrPendingExists)

	// the rejected write leaves nothing behind
	suggestionIDs, err := r.GetSuggestionIDs(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"sug-1"}, suggestionIDs)

	err = r.RemoveSuggestion(ctx, &session.RemoveSuggestionParams{
		SessionID:    "session-1",
		SuggestionID: "sug-1",
		ProposerID:   "member-1",
	})
	require.NoError(t, err)

	_, err = r.GetSuggestion(ctx, "session-1", "sug-1")
	assert.ErrorIs(t, err, session.ErrSuggestionNotFound)

	// the slot is free again
	err = r.SetSuggestion(ctx, &session.SetSuggestionParams{
		SessionID:    "session-1",
		SuggestionID: "sug-3",
		Title:        "Third",
		Source:       "link",
		URL:          "http://example.com",
		ProposerID:   "member-1",
	})
	require.NoError(t, err)
}

func TestChatTrim(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < chatMaxLength+1; i++ {
		err := r.AddChatMessage(ctx, &session.AddChatMessageParams{
			SessionID: "session-1",
			Message:   session.ChatMessage{ID: fmt.Sprintf("m-%d", i), Text: "hi"},
		})
		require.NoError(t, err)
	}

	messages, err := r.GetChatMessages(ctx, "session-1", chatMaxLength*2)
	require.NoError(t, err)
	require.Len(t, messages, chatTrimLength)
	// the most recent messages survive the trim
	assert.Equal(t, fmt.Sprintf("m-%d", chatMaxLength), messages[len(messages)-1].ID)
}

func TestMemberSessionMapping(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetMember(ctx, &session.SetMemberParams{
		MemberID:    "member-1",
		DisplayName: "alice",
		IsOnline:    true,
	}))
	require.NoError(t, r.AddMemberToSession(ctx, &session.AddMemberToSessionParams{
		MemberID:  "member-1",
		SessionID: "session-1",
	}))

	sessionID, err := r.GetMemberSessionID(ctx, "member-1")
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)

	require.NoError(t, r.RemoveMemberFromSession(ctx, &session.RemoveMemberFromSessionParams{
		MemberID:  "member-1",
		SessionID: "session-1",
	}))

	_, err = r.GetMemberSessionID(ctx, "member-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}
