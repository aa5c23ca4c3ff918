package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Server-to-client event types.
const (
	EvtConnected          = "connected"
	EvtDisplayNameSet     = "display_name_set"
	EvtSessionCreated     = "session_created"
	EvtSessionJoined      = "session_joined"
	EvtSessionUpdated     = "session_updated"
	EvtMemberJoined       = "member_joined"
	EvtMemberLeft         = "member_left"
	EvtMembersUpdated     = "members_updated"
	EvtChatMessage        = "chat_message"
	EvtSessionClosed      = "session_closed"
	EvtLeftSession        = "left_session"
	EvtPublicSessions     = "public_sessions"
	EvtAudioSource        = "audio_source"
	EvtSyncSnapshot       = "sync_snapshot"
	EvtHostAction         = "host_action"
	EvtQueueUpdated       = "queue_updated"
	EvtQueuePlayNext      = "queue_play_next"
	EvtSuggestionCreated  = "suggestion_created"
	EvtSuggestionSent     = "suggestion_sent"
	EvtSuggestionResolved = "suggestion_resolved"
	EvtWentToMenu         = "went_to_menu"
	EvtReturnedToSession  = "returned_to_session"
	EvtError              = "error"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Event is implemented by every server-to-client payload.
type Event interface {
	EventType() string
}

type ConnectedEvent struct {
	MemberID       string           `json:"memberId"`
	ReconnectToken string           `json:"reconnectToken"`
	PublicSessions []SessionSummary `json:"publicSessions"`
}

type DisplayNameSetEvent struct {
	Name string `json:"name"`
}

type SessionCreatedEvent struct {
	Session SessionState `json:"session"`
	Members []Member     `json:"members"`
}

type SessionJoinedEvent struct {
	Session             SessionState    `json:"session"`
	Members             []Member        `json:"members"`
	OwnedSessionSummary *SessionSummary `json:"ownedSessionSummary,omitempty"`
}

type SessionUpdatedEvent struct {
	Session SessionSummary `json:"session"`
}

type MemberJoinedEvent struct {
	Members       []Member     `json:"members"`
	SystemMessage *ChatMessage `json:"systemMessage,omitempty"`
}

type MemberLeftEvent struct {
	Members       []Member     `json:"members"`
	SystemMessage *ChatMessage `json:"systemMessage,omitempty"`
}

// MembersUpdatedEvent refreshes the member list without a join or leave:
// renames and online-status flips.
type MembersUpdatedEvent struct {
	Members []Member `json:"members"`
}

type ChatMessageEvent struct {
	Message ChatMessage `json:"message"`
}

type SessionClosedEvent struct{}

type LeftSessionEvent struct{}

type PublicSessionsEvent struct {
	Sessions []SessionSummary `json:"sessions"`
}

type AudioSourceEvent struct {
	AudioSource    AudioSource     `json:"audioSource"`
	AnalysisResult json.RawMessage `json:"analysisResult,omitempty"`
}

type SyncSnapshotEvent struct {
	PositionSeconds float64 `json:"positionSeconds"`
	IsPlaying       bool    `json:"isPlaying"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
	CapturedAt      float64 `json:"capturedAt"`
}

type HostActionEvent struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type QueueUpdatedEvent struct {
	Queue       []QueueItem  `json:"queue"`
	Suggestions []Suggestion `json:"suggestions"`
}

type QueuePlayNextEvent struct {
	Item QueueItem `json:"item"`
}

type SuggestionCreatedEvent struct {
	Suggestion Suggestion `json:"suggestion"`
}

type SuggestionSentEvent struct {
	Suggestion Suggestion `json:"suggestion"`
}

type SuggestionResolvedEvent struct {
	SuggestionID string `json:"suggestionId"`
	Decision     string `json:"decision"`
}

type WentToMenuEvent struct {
	OwnedSessionSummary SessionSummary `json:"ownedSessionSummary"`
}

type ReturnedToSessionEvent struct {
	Session          SessionState `json:"session"`
	NeedsAudioReload bool         `json:"needsAudioReload"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}

func (ConnectedEvent) EventType() string          { return EvtConnected }
func (DisplayNameSetEvent) EventType() string     { return EvtDisplayNameSet }
func (SessionCreatedEvent) EventType() string     { return EvtSessionCreated }
func (SessionJoinedEvent) EventType() string      { return EvtSessionJoined }
func (SessionUpdatedEvent) EventType() string     { return EvtSessionUpdated }
func (MemberJoinedEvent) EventType() string       { return EvtMemberJoined }
func (MemberLeftEvent) EventType() string         { return EvtMemberLeft }
func (MembersUpdatedEvent) EventType() string     { return EvtMembersUpdated }
func (ChatMessageEvent) EventType() string        { return EvtChatMessage }
func (SessionClosedEvent) EventType() string      { return EvtSessionClosed }
func (LeftSessionEvent) EventType() string        { return EvtLeftSession }
func (PublicSessionsEvent) EventType() string     { return EvtPublicSessions }
func (AudioSourceEvent) EventType() string        { return EvtAudioSource }
func (SyncSnapshotEvent) EventType() string       { return EvtSyncSnapshot }
func (HostActionEvent) EventType() string         { return EvtHostAction }
func (QueueUpdatedEvent) EventType() string       { return EvtQueueUpdated }
func (QueuePlayNextEvent) EventType() string      { return EvtQueuePlayNext }
func (SuggestionCreatedEvent) EventType() string  { return EvtSuggestionCreated }
func (SuggestionSentEvent) EventType() string     { return EvtSuggestionSent }
func (SuggestionResolvedEvent) EventType() string { return EvtSuggestionResolved }
func (WentToMenuEvent) EventType() string         { return EvtWentToMenu }
func (ReturnedToSessionEvent) EventType() string  { return EvtReturnedToSession }
func (ErrorEvent) EventType() string              { return EvtError }

// DecodeEvent unmarshals a raw server message into its typed event. The
// switch is the single place a new event type has to be added.
func DecodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	var event Event
	switch envelope.Type {
	case EvtConnected:
		event = &ConnectedEvent{}
	case EvtDisplayNameSet:
		event = &DisplayNameSetEvent{}
	case EvtSessionCreated:
		event = &SessionCreatedEvent{}
	case EvtSessionJoined:
		event = &SessionJoinedEvent{}
	case EvtSessionUpdated:
		event = &SessionUpdatedEvent{}
	case EvtMemberJoined:
		event = &MemberJoinedEvent{}
	case EvtMemberLeft:
		event = &MemberLeftEvent{}
	case EvtMembersUpdated:
		event = &MembersUpdatedEvent{}
	case EvtChatMessage:
		event = &ChatMessageEvent{}
	case EvtSessionClosed:
		event = &SessionClosedEvent{}
	case EvtLeftSession:
		event = &LeftSessionEvent{}
	case EvtPublicSessions:
		event = &PublicSessionsEvent{}
	case EvtAudioSource:
		event = &AudioSourceEvent{}
	case EvtSyncSnapshot:
		event = &SyncSnapshotEvent{}
	case EvtHostAction:
		event = &HostActionEvent{}
	case EvtQueueUpdated:
		event = &QueueUpdatedEvent{}
	case EvtQueuePlayNext:
		event = &QueuePlayNextEvent{}
	case EvtSuggestionCreated:
		event = &SuggestionCreatedEvent{}
	case EvtSuggestionSent:
		event = &SuggestionSentEvent{}
	case EvtSuggestionResolved:
		event = &SuggestionResolvedEvent{}
	case EvtWentToMenu:
		event = &WentToMenuEvent{}
	case EvtReturnedToSession:
		event = &ReturnedToSessionEvent{}
	case EvtError:
		event = &ErrorEvent{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, envelope.Type)
	}

	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %q payload: %w", envelope.Type, err)
		}
	}

	return event, nil
}
