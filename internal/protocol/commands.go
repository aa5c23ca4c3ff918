package protocol

import "encoding/json"

// Client-to-server command types.
const (
	CmdCreateSession     = "create_session"
	CmdJoinSession       = "join_session"
	CmdLeaveSession      = "leave_session"
	CmdSetDisplayName    = "set_display_name"
	CmdRenameSession     = "rename_session"
	CmdTogglePublic      = "toggle_public"
	CmdUpdateNowPlaying  = "update_now_playing"
	CmdChatMessage       = "chat_message"
	CmdSetAudioSource    = "set_audio_source"
	CmdSyncHeartbeat     = "sync_heartbeat"
	CmdHostAction        = "host_action"
	CmdQueueAdd          = "queue_add"
	CmdQueueRemove       = "queue_remove"
	CmdQueueReorder      = "queue_reorder"
	CmdQueueAdvance      = "queue_advance"
	CmdSuggestSong       = "suggest_song"
	CmdRespondSuggestion = "respond_suggestion"
	CmdGoToMenu          = "go_to_menu"
	CmdReturnToSession   = "return_to_session"
	CmdEndSession        = "end_session"
)

// Host action kinds. The set is closed; anything else is rejected at the
// dispatch boundary.
const (
	HostActionPlay              = "play"
	HostActionPause             = "pause"
	HostActionSeek              = "seek"
	HostActionSpeedChange       = "speed_change"
	HostActionShapeChange       = "shape_change"
	HostActionEnvironmentChange = "environment_change"
	HostActionEqChange          = "eq_change"
	HostActionReset             = "reset"
)

type EmptyInput struct{}

type CreateSessionInput struct {
	Name string `json:"name" validate:"max=50"`
}

type JoinSessionInput struct {
	SessionID string `json:"sessionId" validate:"required"`
}

type SetDisplayNameInput struct {
	Name string `json:"name" validate:"required,max=30"`
}

type RenameSessionInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

type UpdateNowPlayingInput struct {
	Track json.RawMessage `json:"track"`
}

type ChatMessageInput struct {
	Text string `json:"text" validate:"required,max=500"`
}

type SetAudioSourceInput struct {
	AudioSource    AudioSource     `json:"audioSource"`
	AnalysisResult json.RawMessage `json:"analysisResult,omitempty"`
}

type SyncHeartbeatInput struct {
	PositionSeconds float64 `json:"positionSeconds"`
	IsPlaying       bool    `json:"isPlaying"`
	SpeedMultiplier float64 `json:"speedMultiplier" validate:"gt=0"`
}

type HostActionInput struct {
	Kind    string          `json:"kind" validate:"required,oneof=play pause seek speed_change shape_change environment_change eq_change reset"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type QueueAddInput struct {
	Title  string `json:"title" validate:"required,max=200"`
	Source string `json:"source" validate:"required"`
	URL    string `json:"url" validate:"required"`
}

type QueueRemoveInput struct {
	ItemID string `json:"itemId" validate:"required"`
}

type QueueReorderInput struct {
	TailOrder []string `json:"tailOrder" validate:"required"`
}

type SuggestSongInput struct {
	Title  string `json:"title" validate:"required,max=200"`
	Source string `json:"source" validate:"required"`
	URL    string `json:"url" validate:"required"`
}

type RespondSuggestionInput struct {
	SuggestionID string `json:"suggestionId" validate:"required"`
	Decision     string `json:"decision" validate:"required,oneof=approve reject"`
}
