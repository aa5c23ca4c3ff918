package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/audiolyze/server/internal/protocol"
)

// Store holds the last authoritative session snapshot. Incremental events
// patch the copy; a full snapshot from a join or resume replaces it
// wholesale, which is what makes a dropped event recoverable.
type Store struct {
	mu    sync.RWMutex
	state *protocol.SessionState
}

func NewStore() *Store {
	return &Store{}
}

// State returns a shallow copy of the current snapshot, or nil outside a
// session.
func (s *Store) State() *protocol.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state == nil {
		return nil
	}

	state := *s.state

	return &state
}

func (s *Store) Replace(state protocol.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = &state
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = nil
}

// ApplyEvent patches the snapshot with an incremental event. Events that do
// not touch session state are ignored; events arriving outside a session are
// dropped.
func (s *Store) ApplyEvent(event protocol.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch e := event.(type) {
	case *protocol.SessionCreatedEvent:
		state := e.Session
		s.state = &state
	case *protocol.SessionJoinedEvent:
		state := e.Session
		s.state = &state
	case *protocol.ReturnedToSessionEvent:
		state := e.Session
		s.state = &state
	case *protocol.SessionClosedEvent, *protocol.LeftSessionEvent, *protocol.WentToMenuEvent:
		s.state = nil
	}

	if s.state == nil {
		return
	}

	switch e := event.(type) {
	case *protocol.SessionUpdatedEvent:
		s.state.Session = e.Session
	case *protocol.MemberJoinedEvent:
		s.state.Members = e.Members
		if e.SystemMessage != nil {
			s.state.Messages = append(s.state.Messages, *e.SystemMessage)
		}
	case *protocol.MemberLeftEvent:
		s.state.Members = e.Members
		if e.SystemMessage != nil {
			s.state.Messages = append(s.state.Messages, *e.SystemMessage)
		}
	case *protocol.MembersUpdatedEvent:
		s.state.Members = e.Members
	case *protocol.ChatMessageEvent:
		s.state.Messages = append(s.state.Messages, e.Message)
	case *protocol.AudioSourceEvent:
		source := e.AudioSource
		s.state.AudioSource = &source
		s.state.AnalysisResult = e.AnalysisResult
	case *protocol.SyncSnapshotEvent:
		s.state.Playback = protocol.PlaybackSnapshot{
			PositionSeconds: e.PositionSeconds,
			IsPlaying:       e.IsPlaying,
			SpeedMultiplier: e.SpeedMultiplier,
			CapturedAt:      e.CapturedAt,
		}
	case *protocol.HostActionEvent:
		s.applyHostAction(e)
	case *protocol.QueueUpdatedEvent:
		s.state.Queue = e.Queue
		s.state.Suggestions = e.Suggestions
	}
}

// applyHostAction mirrors an immediate host transition onto the stored
// snapshot, so the local copy does not lag until the next heartbeat. A
// malformed payload leaves the snapshot untouched; the heartbeat reconciles.
func (s *Store) applyHostAction(e *protocol.HostActionEvent) {
	now := float64(time.Now().UnixMilli()) / 1000

	switch e.Kind {
	case protocol.HostActionPlay:
		s.state.Playback.IsPlaying = true
		s.state.Playback.CapturedAt = now
	case protocol.HostActionPause:
		s.state.Playback.IsPlaying = false
		s.state.Playback.CapturedAt = now
	case protocol.HostActionSeek:
		var p struct {
			PositionSeconds float64 `json:"positionSeconds"`
		}
		if json.Unmarshal(e.Payload, &p) == nil {
			s.state.Playback.PositionSeconds = p.PositionSeconds
			s.state.Playback.CapturedAt = now
		}
	case protocol.HostActionSpeedChange:
		var p struct {
			SpeedMultiplier float64 `json:"speedMultiplier"`
		}
		if json.Unmarshal(e.Payload, &p) == nil && p.SpeedMultiplier > 0 {
			s.state.Playback.SpeedMultiplier = p.SpeedMultiplier
			s.state.Playback.CapturedAt = now
		}
	case protocol.HostActionShapeChange:
		var p struct {
			Shape string `json:"shape"`
		}
		if json.Unmarshal(e.Payload, &p) == nil {
			s.state.Visualizer.Shape = p.Shape
		}
	case protocol.HostActionEnvironmentChange:
		var p struct {
			Environment string `json:"environment"`
		}
		if json.Unmarshal(e.Payload, &p) == nil {
			s.state.Visualizer.Environment = p.Environment
		}
	case protocol.HostActionEqChange:
		s.state.Visualizer.AudioTuning = e.Payload
	case protocol.HostActionReset:
		s.state.Playback = protocol.PlaybackSnapshot{SpeedMultiplier: 1, CapturedAt: now}
	}
}
