package client

import (
	"github.com/audiolyze/server/internal/protocol"
)

// HostSessionView is the snapshot projection for a hosting client: it sees
// the suggestion inbox and the full queue controls.
type HostSessionView struct {
	Session     protocol.SessionSummary
	Playback    protocol.PlaybackSnapshot
	AudioSource *protocol.AudioSource
	Queue       []protocol.QueueItem
	Suggestions []protocol.Suggestion
	Members     []protocol.Member
	Messages    []protocol.ChatMessage
}

// AudienceSessionView is the projection for an audience client: no
// suggestion inbox, but its own pending suggestion if any.
type AudienceSessionView struct {
	Session           protocol.SessionSummary
	Playback          protocol.PlaybackSnapshot
	AudioSource       *protocol.AudioSource
	Queue             []protocol.QueueItem
	PendingSuggestion *protocol.Suggestion
	Members           []protocol.Member
	Messages          []protocol.ChatMessage
}

// HostView projects the current snapshot for a hosting client, or nil
// outside a session.
func (c *Client) HostView() *HostSessionView {
	state := c.store.State()
	if state == nil {
		return nil
	}

	return &HostSessionView{
		Session:     state.Session,
		Playback:    state.Playback,
		AudioSource: state.AudioSource,
		Queue:       state.Queue,
		Suggestions: state.Suggestions,
		Members:     state.Members,
		Messages:    state.Messages,
	}
}

// AudienceView projects the current snapshot for an audience client.
func (c *Client) AudienceView() *AudienceSessionView {
	state := c.store.State()
	if state == nil {
		return nil
	}

	view := &AudienceSessionView{
		Session:     state.Session,
		Playback:    state.Playback,
		AudioSource: state.AudioSource,
		Queue:       state.Queue,
		Members:     state.Members,
		Messages:    state.Messages,
	}

	memberID := c.MemberID()
	for i := range state.Suggestions {
		if state.Suggestions[i].ProposerID == memberID {
			view.PendingSuggestion = &state.Suggestions[i]
			break
		}
	}

	return view
}
