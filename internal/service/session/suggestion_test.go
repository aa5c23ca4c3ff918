package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSuggestionSession(t *testing.T) (*service, ConnectResponse, ConnectResponse) {
	t.Helper()

	svc := newTestService(t, nil)
	ctx := context.Background()

	alice := connectMember(t, svc, "alice")
	createResp, err := svc.CreateSession(ctx, &CreateSessionParams{MemberID: alice.MemberID})
	require.NoError(t, err)
	_, err = svc.TogglePublic(ctx, &TogglePublicParams{MemberID: alice.MemberID})
	require.NoError(t, err)

	bob := connectMember(t, svc, "bob")
	_, err = svc.JoinSession(ctx, &JoinSessionParams{MemberID: bob.MemberID, SessionID: createResp.SessionID})
	require.NoError(t, err)

	return svc, alice, bob
}

func TestSuggestAndApprove(t *testing.T) {
	svc, alice, bob := setupSuggestionSession(t)
	ctx := context.Background()

	suggestResp, err := svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: bob.MemberID,
		Title:    "My Track",
		Source:   "link",
		URL:      "http://example.com/track",
	})
	require.NoError(t, err)
	assert.Equal(t, alice.MemberID, suggestResp.HostMemberID)
	assert.Equal(t, bob.MemberID, suggestResp.Suggestion.ProposerID)
	assert.Equal(t, "pending", suggestResp.Suggestion.Status)

	// one pending suggestion per member
	_, err = svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: bob.MemberID,
		Title:    "Another",
		Source:   "link",
		URL:      "http://example.com/other",
	})
	assert.ErrorIs(t, err, ErrDuplicatePending)

	respondResp, err := svc.RespondSuggestion(ctx, &RespondSuggestionParams{
		MemberID:     alice.MemberID,
		SuggestionID: suggestResp.Suggestion.ID,
		Decision:     "approve",
	})
	require.NoError(t, err)
	assert.Equal(t, bob.MemberID, respondResp.ProposerID)
	assert.Empty(t, respondResp.Suggestions)
	require.Len(t, respondResp.Queue, 1)
	assert.Equal(t, "My Track", respondResp.Queue[0].Title)
	assert.Equal(t, bob.MemberID, respondResp.Queue[0].AddedByID)

	// the pending slot is free again
	_, err = svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: bob.MemberID,
		Title:    "Another",
		Source:   "link",
		URL:      "http://example.com/other",
	})
	require.NoError(t, err)
}

func TestSuggestReject(t *testing.T) {
	svc, alice, bob := setupSuggestionSession(t)
	ctx := context.Background()

	suggestResp, err := svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: bob.MemberID,
		Title:    "My Track",
		Source:   "link",
		URL:      "http://example.com/track",
	})
	require.NoError(t, err)

	respondResp, err := svc.RespondSuggestion(ctx, &RespondSuggestionParams{
		MemberID:     alice.MemberID,
		SuggestionID: suggestResp.Suggestion.ID,
		Decision:     "reject",
	})
	require.NoError(t, err)
	assert.Equal(t, "reject", respondResp.Decision)
	assert.Empty(t, respondResp.Queue)
	assert.Empty(t, respondResp.Suggestions)
}

func TestSuggestPermissions(t *testing.T) {
	svc, alice, bob := setupSuggestionSession(t)
	ctx := context.Background()

	// the host queues directly instead of suggesting
	_, err := svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: alice.MemberID,
		Title:    "Host Track",
		Source:   "link",
		URL:      "http://example.com/host",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	suggestResp, err := svc.SuggestSong(ctx, &SuggestSongParams{
		MemberID: bob.MemberID,
		Title:    "My Track",
		Source:   "link",
		URL:      "http://example.com/track",
	})
	require.NoError(t, err)

	// only the host rules on suggestions
	_, err = svc.RespondSuggestion(ctx, &RespondSuggestionParams{
		MemberID:     bob.MemberID,
		SuggestionID: suggestResp.Suggestion.ID,
		Decision:     "approve",
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = svc.RespondSuggestion(ctx, &RespondSuggestionParams{
		MemberID:     alice.MemberID,
		SuggestionID: "missing",
		Decision:     "approve",
	})
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}
