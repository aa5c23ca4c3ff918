package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachineTransitions(t *testing.T) {
	sm := NewStateMachine()
	assert.Equal(t, PhaseDisconnected, sm.Phase())

	require.NoError(t, sm.Transition(PhaseConnecting))
	require.NoError(t, sm.Transition(PhaseNoSession))
	require.NoError(t, sm.Transition(PhaseHosting))
	require.NoError(t, sm.Transition(PhaseVisiting))
	require.NoError(t, sm.Transition(PhaseHosting))
	require.NoError(t, sm.Transition(PhaseDisconnected))
}

func TestStateMachineRejectsInvalid(t *testing.T) {
	sm := NewStateMachine()

	err := sm.Transition(PhaseHosting)
	require.Error(t, err)

	var invalid *ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, PhaseDisconnected, invalid.From)
	assert.Equal(t, PhaseHosting, invalid.To)
	assert.Equal(t, PhaseDisconnected, sm.Phase())
}

func TestStateMachineSamePhaseNoop(t *testing.T) {
	sm := NewStateMachine()

	require.NoError(t, sm.Transition(PhaseDisconnected))
	assert.Equal(t, PhaseDisconnected, sm.Phase())
}
