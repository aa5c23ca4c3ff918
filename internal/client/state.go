package client

import (
	"fmt"
	"sync"
)

// Phase is where the client sits in the connection and session lifecycle.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseNoSession
	PhaseHosting
	PhaseAudience
	// PhaseVisiting is an owner sitting in someone else's session while
	// their own stays frozen server-side.
	PhaseVisiting
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseNoSession:
		return "no_session"
	case PhaseHosting:
		return "hosting"
	case PhaseAudience:
		return "audience"
	case PhaseVisiting:
		return "visiting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var validTransitions = map[Phase][]Phase{
	PhaseDisconnected: {PhaseConnecting},
	PhaseConnecting:   {PhaseNoSession, PhaseHosting, PhaseAudience, PhaseVisiting, PhaseDisconnected},
	PhaseNoSession:    {PhaseHosting, PhaseAudience, PhaseVisiting, PhaseDisconnected},
	PhaseHosting:      {PhaseNoSession, PhaseAudience, PhaseVisiting, PhaseDisconnected},
	PhaseAudience:     {PhaseNoSession, PhaseHosting, PhaseVisiting, PhaseDisconnected},
	PhaseVisiting:     {PhaseNoSession, PhaseHosting, PhaseAudience, PhaseDisconnected},
}

type ErrInvalidTransition struct {
	From Phase
	To   Phase
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// StateMachine serializes phase transitions. Every change goes through
// Transition so an illegal jump surfaces as an error instead of silent
// corruption.
type StateMachine struct {
	mu    sync.RWMutex
	phase Phase
}

func NewStateMachine() *StateMachine {
	return &StateMachine{phase: PhaseDisconnected}
}

func (sm *StateMachine) Phase() Phase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.phase
}

func (sm *StateMachine) Transition(to Phase) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.phase == to {
		return nil
	}

	for _, allowed := range validTransitions[sm.phase] {
		if allowed == to {
			sm.phase = to
			return nil
		}
	}

	return &ErrInvalidTransition{From: sm.phase, To: to}
}
