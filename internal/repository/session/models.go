package session

type Session struct {
	Name         string  `redis:"name"`
	HostMemberID string  `redis:"host_member_id"`
	IsPublic     bool    `redis:"is_public"`
	CreatedAt    float64 `redis:"created_at"`
	NowPlaying   string  `redis:"now_playing"`
}

type Member struct {
	DisplayName string `redis:"display_name"`
	IsOnline    bool   `redis:"is_online"`
}

type Playback struct {
	PositionSeconds float64 `redis:"position_seconds"`
	IsPlaying       bool    `redis:"is_playing"`
	SpeedMultiplier float64 `redis:"speed_multiplier"`
	CapturedAt      float64 `redis:"captured_at"`
}

type Visualizer struct {
	Shape          string `redis:"shape"`
	Environment    string `redis:"environment"`
	AudioTuning    string `redis:"audio_tuning"`
	PlaybackTuning string `redis:"playback_tuning"`
}

type AudioSource struct {
	Title          string `redis:"title"`
	URL            string `redis:"url"`
	Source         string `redis:"source"`
	AnalysisResult string `redis:"analysis_result"`
}

// Queue item statuses.
const (
	QueueStatusPending   = "pending"
	QueueStatusAnalyzing = "analyzing"
	QueueStatusReady     = "ready"
	QueueStatusPlaying   = "playing"
	QueueStatusPlayed    = "played"
)

type QueueItem struct {
	Title     string `redis:"title"`
	Source    string `redis:"source"`
	URL       string `redis:"url"`
	Status    string `redis:"status"`
	AddedByID string `redis:"added_by_id"`
}

// Suggestion statuses. Approved and rejected suggestions are deleted on
// resolution, so only pending ones are ever stored.
const (
	SuggestionStatusPending = "pending"
)

type Suggestion struct {
	Title      string `redis:"title"`
	Source     string `redis:"source"`
	URL        string `redis:"url"`
	ProposerID string `redis:"proposer_id"`
}

// ChatMessage is stored as a JSON blob in the session's chat list.
type ChatMessage struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"memberId"`
	Name      string  `json:"name"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
	IsHost    bool    `json:"isHost"`
	IsSystem  bool    `json:"isSystem"`
}
