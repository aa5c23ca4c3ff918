package session

type SetSessionParams struct {
	SessionID    string
	Name         string
	HostMemberID string
	IsPublic     bool
	CreatedAt    float64
}

type SetMemberParams struct {
	MemberID    string
	DisplayName string
	IsOnline    bool
}

type AddMemberToSessionParams struct {
	MemberID  string
	SessionID string
}

type RemoveMemberFromSessionParams struct {
	MemberID  string
	SessionID string
}

type SetPlaybackParams struct {
	SessionID       string
	PositionSeconds float64
	IsPlaying       bool
	SpeedMultiplier float64
	CapturedAt      float64
}

type SetVisualizerParams struct {
	SessionID      string
	Shape          string
	Environment    string
	AudioTuning    string
	PlaybackTuning string
}

type SetAudioSourceParams struct {
	SessionID      string
	Title          string
	URL            string
	Source         string
	AnalysisResult string
}

type SetQueueItemParams struct {
	SessionID string
	ItemID    string
	Title     string
	Source    string
	URL       string
	Status    string
	AddedByID string
}

type RemoveQueueItemParams struct {
	SessionID string
	ItemID    string
}

type UpdateQueueItemStatusParams struct {
	SessionID string
	ItemID    string
	Status    string
}

type SetQueueOrderParams struct {
	SessionID string
	ItemIDs   []string
}

type SetSuggestionParams struct {
	SessionID    string
	SuggestionID string
	Title        string
	Source       string
	URL          string
	ProposerID   string
}

type RemoveSuggestionParams struct {
	SessionID    string
	SuggestionID string
	ProposerID   string
}

type AddChatMessageParams struct {
	SessionID string
	Message   ChatMessage
}

type SetReconnectTokenParams struct {
	Token    string
	MemberID string
}
