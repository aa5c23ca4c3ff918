package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTracks(t *testing.T, svc *service, hostID string, n int) QueueResponse {
	t.Helper()

	var resp QueueResponse
	for i := 0; i < n; i++ {
		var err error
		resp, err = svc.QueueAdd(context.Background(), &QueueAddParams{
			MemberID: hostID,
			Title:    fmt.Sprintf("track-%d", i),
			Source:   "upload",
			URL:      fmt.Sprintf("http://media/track-%d", i),
		})
		require.NoError(t, err)
	}

	return resp
}

func TestQueueAddAndAdvance(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	_, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	resp := addTracks(t, svc, alice.MemberID, 3)
	require.Len(t, resp.Queue, 3)
	for i, item := range resp.Queue {
		assert.Equal(t, fmt.Sprintf("track-%d", i), item.Title)
		assert.Equal(t, "ready", item.Status)
		assert.Equal(t, i, item.Position)
	}

	advResp, err := svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	require.NotNil(t, advResp.NextItem)
	assert.Equal(t, "track-0", advResp.NextItem.Title)
	assert.Equal(t, "playing", advResp.Queue[0].Status)

	advResp, err = svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	require.NotNil(t, advResp.NextItem)
	assert.Equal(t, "track-1", advResp.NextItem.Title)
	assert.Equal(t, "played", advResp.Queue[0].Status)
	assert.Equal(t, "playing", advResp.Queue[1].Status)

	// running past the end leaves everything played
	_, err = svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	advResp, err = svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	assert.Nil(t, advResp.NextItem)
	for _, item := range advResp.Queue {
		assert.Equal(t, "played", item.Status)
	}
}

func TestQueueReorderLockedHead(t *testing.T) {
	svc := newTestService(t, &Config{LockedHeadSize: 3})
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	_, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	resp := addTracks(t, svc, alice.MemberID, 5)
	require.Len(t, resp.Queue, 5)

	tail := []string{resp.Queue[4].ID, resp.Queue[3].ID}

	reordered, err := svc.QueueReorder(ctx, &QueueReorderParams{
		MemberID:  alice.MemberID,
		TailOrder: tail,
	})
	require.NoError(t, err)
	require.Len(t, reordered.Queue, 5)
	assert.Equal(t, "track-0", reordered.Queue[0].Title)
	assert.Equal(t, "track-4", reordered.Queue[3].Title)
	assert.Equal(t, "track-3", reordered.Queue[4].Title)

	// touching a locked item is rejected
	_, err = svc.QueueReorder(ctx, &QueueReorderParams{
		MemberID:  alice.MemberID,
		TailOrder: []string{resp.Queue[0].ID, resp.Queue[3].ID},
	})
	assert.ErrorIs(t, err, ErrInvalidOrder)

	// so is dropping an item from the tail
	_, err = svc.QueueReorder(ctx, &QueueReorderParams{
		MemberID:  alice.MemberID,
		TailOrder: []string{resp.Queue[4].ID},
	})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestQueueReorderSkipsPlayed(t *testing.T) {
	svc := newTestService(t, &Config{LockedHeadSize: 2})
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	_, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	resp := addTracks(t, svc, alice.MemberID, 5)

	// play through the first track so it no longer counts toward the head
	_, err = svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	_, err = svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	// unplayed items are 1..4, head locks 1 and 2, tail is 3 and 4
	reordered, err := svc.QueueReorder(ctx, &QueueReorderParams{
		MemberID:  alice.MemberID,
		TailOrder: []string{resp.Queue[4].ID, resp.Queue[3].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "track-4", reordered.Queue[3].Title)
	assert.Equal(t, "track-3", reordered.Queue[4].Title)
	assert.Equal(t, "played", reordered.Queue[0].Status)
}

func TestQueueRemovePlayingAdvances(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	_, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	resp := addTracks(t, svc, alice.MemberID, 3)

	_, err = svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	removed, err := svc.QueueRemove(ctx, &QueueRemoveParams{
		MemberID: alice.MemberID,
		ItemID:   resp.Queue[0].ID,
	})
	require.NoError(t, err)
	require.NotNil(t, removed.NextItem)
	assert.Equal(t, "track-1", removed.NextItem.Title)
	require.Len(t, removed.Queue, 2)
	assert.Equal(t, "playing", removed.Queue[0].Status)

	// removing a non-playing item does not advance
	removed, err = svc.QueueRemove(ctx, &QueueRemoveParams{
		MemberID: alice.MemberID,
		ItemID:   resp.Queue[2].ID,
	})
	require.NoError(t, err)
	assert.Nil(t, removed.NextItem)
	assert.Len(t, removed.Queue, 1)

	_, err = svc.QueueRemove(ctx, &QueueRemoveParams{
		MemberID: alice.MemberID,
		ItemID:   "missing",
	})
	assert.ErrorIs(t, err, ErrQueueItemNotFound)
}

func TestQueueAdvanceKeepsSuggestions(t *testing.T) {
	svc, alice, bob := setupSuggestionSession(t)
	ctx := context.Background()

	addTracks(t, svc, alice.MemberID, 2)

	_, err := svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: bob.MemberID,
		Title:    "My Track",
		Source:   "link",
		URL:      "http://example.com/track",
	})
	require.NoError(t, err)

	advResp, err := svc.QueueAdvance(ctx, &QueueAdvanceParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	// the pending suggestion rides along with every queue broadcast
	require.Len(t, advResp.Suggestions, 1)
	assert.Equal(t, bob.MemberID, advResp.Suggestions[0].ProposerID)
	require.NotNil(t, advResp.NextItem)
	assert.Equal(t, "playing", advResp.NextItem.Status)
}
