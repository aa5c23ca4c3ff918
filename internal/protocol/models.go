// Package protocol defines the wire format shared by the server and the
// client adapter: one envelope per direction and a closed set of typed
// payloads per message type.
package protocol

import "encoding/json"

// Input is the client-to-server envelope.
type Input struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Output is the server-to-client envelope.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type PlaybackSnapshot struct {
	PositionSeconds float64 `json:"positionSeconds"`
	IsPlaying       bool    `json:"isPlaying"`
	SpeedMultiplier float64 `json:"speedMultiplier"`
	CapturedAt      float64 `json:"capturedAt"`
}

type VisualizerSnapshot struct {
	Shape          string          `json:"shape"`
	Environment    string          `json:"environment"`
	AudioTuning    json.RawMessage `json:"audioTuning,omitempty"`
	PlaybackTuning json.RawMessage `json:"playbackTuning,omitempty"`
}

type AudioSource struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Source string `json:"source"`
}

type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsHost   bool   `json:"isHost"`
	IsOnline bool   `json:"isOnline"`
}

type QueueItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	AddedByID string `json:"addedById"`
	Position  int    `json:"position"`
}

type Suggestion struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	URL        string `json:"url"`
	ProposerID string `json:"proposerId"`
	Status     string `json:"status"`
}

type ChatMessage struct {
	ID        string  `json:"id"`
	MemberID  string  `json:"memberId"`
	Name      string  `json:"name"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
	IsHost    bool    `json:"isHost"`
	IsSystem  bool    `json:"isSystem"`
}

// SessionSummary is the public-directory projection of a session.
type SessionSummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	HostID        string          `json:"hostId"`
	HostName      string          `json:"hostName"`
	IsPublic      bool            `json:"isPublic"`
	NowPlaying    json.RawMessage `json:"nowPlaying,omitempty"`
	AudienceCount int             `json:"audienceCount"`
	CreatedAt     float64         `json:"createdAt"`
}

// SessionState is the full snapshot replayed to a joining member.
type SessionState struct {
	Session        SessionSummary     `json:"session"`
	Playback       PlaybackSnapshot   `json:"playback"`
	Visualizer     VisualizerSnapshot `json:"visualizer"`
	AudioSource    *AudioSource       `json:"audioSource,omitempty"`
	AnalysisResult json.RawMessage    `json:"analysisResult,omitempty"`
	Queue          []QueueItem        `json:"queue"`
	Suggestions    []Suggestion       `json:"suggestions"`
	Members        []Member           `json:"members"`
	Messages       []ChatMessage      `json:"messages"`
}
