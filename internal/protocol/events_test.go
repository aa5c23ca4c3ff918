package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeOutput(t *testing.T, event Event) []byte {
	t.Helper()

	data, err := json.Marshal(Output{Type: event.EventType(), Payload: event})
	require.NoError(t, err)

	return data
}

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name  string
		event Event
	}{
		{
			name: "connected",
			event: &ConnectedEvent{
				MemberID:       "member-1",
				ReconnectToken: "token-1",
			},
		},
		{
			name: "chat message",
			event: &ChatMessageEvent{
				Message: ChatMessage{ID: "m1", MemberID: "member-1", Text: "hello"},
			},
		},
		{
			name: "sync snapshot",
			event: &SyncSnapshotEvent{
				PositionSeconds: 42.5,
				IsPlaying:       true,
				SpeedMultiplier: 1.25,
				CapturedAt:      1700000000.5,
			},
		},
		{
			name: "member left",
			event: &MemberLeftEvent{
				Members:       []Member{{ID: "host-1", IsHost: true, IsOnline: true}},
				SystemMessage: &ChatMessage{ID: "m2", Text: "bob left the stage", IsSystem: true},
			},
		},
		{
			name: "queue updated",
			event: &QueueUpdatedEvent{
				Queue: []QueueItem{{ID: "q1", Title: "Track", Status: "playing"}},
			},
		},
		{
			name:  "session closed",
			event: &SessionClosedEvent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeEvent(encodeOutput(t, tt.event))
			require.NoError(t, err)
			assert.Equal(t, tt.event, decoded)
		})
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"type":"bogus","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeEventMalformed(t *testing.T) {
	_, err := DecodeEvent([]byte(`{`))
	assert.Error(t, err)

	_, err = DecodeEvent([]byte(`{"type":"chat_message","payload":[]}`))
	assert.Error(t, err)
}
