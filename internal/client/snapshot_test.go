package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolyze/server/internal/protocol"
)

func joinedState() protocol.SessionState {
	return protocol.SessionState{
		Session: protocol.SessionSummary{ID: "session-1", Name: "Late Night"},
		Members: []protocol.Member{
			{ID: "host-1", Name: "alice", IsHost: true, IsOnline: true},
			{ID: "member-1", Name: "bob", IsOnline: true},
		},
	}
}

func TestStoreJoinReplacesState(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.State())

	store.ApplyEvent(&protocol.SessionJoinedEvent{Session: joinedState()})

	state := store.State()
	require.NotNil(t, state)
	assert.Equal(t, "session-1", state.Session.ID)
	assert.Len(t, state.Members, 2)
}

func TestStoreIncrementalPatches(t *testing.T) {
	store := NewStore()
	store.ApplyEvent(&protocol.SessionJoinedEvent{Session: joinedState()})

	store.ApplyEvent(&protocol.ChatMessageEvent{
		Message: protocol.ChatMessage{ID: "m1", Text: "hello"},
	})
	store.ApplyEvent(&protocol.MemberJoinedEvent{
		Members: []protocol.Member{
			{ID: "host-1", Name: "alice", IsHost: true, IsOnline: true},
			{ID: "member-1", Name: "bob", IsOnline: true},
			{ID: "member-2", Name: "carol", IsOnline: true},
		},
		SystemMessage: &protocol.ChatMessage{ID: "m2", Text: "carol joined the stage"},
	})
	store.ApplyEvent(&protocol.SyncSnapshotEvent{
		PositionSeconds: 12.5,
		IsPlaying:       true,
		SpeedMultiplier: 1,
		CapturedAt:      100,
	})
	store.ApplyEvent(&protocol.SessionUpdatedEvent{
		Session: protocol.SessionSummary{ID: "session-1", Name: "Renamed"},
	})

	state := store.State()
	require.NotNil(t, state)
	assert.Len(t, state.Members, 3)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "hello", state.Messages[0].Text)
	assert.Equal(t, "carol joined the stage", state.Messages[1].Text)
	assert.True(t, state.Playback.IsPlaying)
	assert.Equal(t, 12.5, state.Playback.PositionSeconds)
	assert.Equal(t, "Renamed", state.Session.Name)
}

func TestStoreEventsOutsideSessionDropped(t *testing.T) {
	store := NewStore()

	store.ApplyEvent(&protocol.ChatMessageEvent{
		Message: protocol.ChatMessage{ID: "m1", Text: "hello"},
	})

	assert.Nil(t, store.State())
}

func TestStoreClosedClearsState(t *testing.T) {
	store := NewStore()
	store.ApplyEvent(&protocol.SessionJoinedEvent{Session: joinedState()})
	require.NotNil(t, store.State())

	store.ApplyEvent(&protocol.SessionClosedEvent{})
	assert.Nil(t, store.State())
}

func TestStoreHostActionPatchesPlayback(t *testing.T) {
	store := NewStore()
	store.ApplyEvent(&protocol.SessionJoinedEvent{Session: joinedState()})
	store.ApplyEvent(&protocol.SyncSnapshotEvent{
		PositionSeconds: 10,
		IsPlaying:       true,
		SpeedMultiplier: 1,
		CapturedAt:      100,
	})

	store.ApplyEvent(&protocol.HostActionEvent{
		Kind:    protocol.HostActionSeek,
		Payload: json.RawMessage(`{"positionSeconds": 42}`),
	})
	store.ApplyEvent(&protocol.HostActionEvent{
		Kind:    protocol.HostActionSpeedChange,
		Payload: json.RawMessage(`{"speedMultiplier": 1.5}`),
	})
	store.ApplyEvent(&protocol.HostActionEvent{Kind: protocol.HostActionPause})

	state := store.State()
	require.NotNil(t, state)
	assert.Equal(t, float64(42), state.Playback.PositionSeconds)
	assert.Equal(t, 1.5, state.Playback.SpeedMultiplier)
	assert.False(t, state.Playback.IsPlaying)
	assert.Greater(t, state.Playback.CapturedAt, float64(100))

	store.ApplyEvent(&protocol.HostActionEvent{
		Kind:    protocol.HostActionShapeChange,
		Payload: json.RawMessage(`{"shape": "sphere"}`),
	})
	assert.Equal(t, "sphere", store.State().Visualizer.Shape)

	// a malformed payload changes nothing
	store.ApplyEvent(&protocol.HostActionEvent{
		Kind:    protocol.HostActionSeek,
		Payload: json.RawMessage(`{`),
	})
	assert.Equal(t, float64(42), store.State().Playback.PositionSeconds)
}

func TestStoreQueueUpdateCarriesSuggestions(t *testing.T) {
	store := NewStore()
	store.ApplyEvent(&protocol.SessionJoinedEvent{Session: joinedState()})

	pending := []protocol.Suggestion{{ID: "sug-1", ProposerID: "member-1", Status: "pending"}}
	store.ApplyEvent(&protocol.QueueUpdatedEvent{
		Queue:       []protocol.QueueItem{{ID: "q1", Status: "playing"}},
		Suggestions: pending,
	})

	store.ApplyEvent(&protocol.QueueUpdatedEvent{
		Queue:       []protocol.QueueItem{{ID: "q2", Status: "playing"}},
		Suggestions: pending,
	})

	state := store.State()
	require.NotNil(t, state)
	assert.Equal(t, pending, state.Suggestions)
}
