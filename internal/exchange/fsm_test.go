package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSMValidTransitions(t *testing.T) {
	f := newFSM()
	require.Equal(t, StateDisconnected, f.Get())

	require.NoError(t, f.Transition(StateConnecting))
	require.NoError(t, f.Transition(StateConnected))
	require.NoError(t, f.Transition(StateReconnecting))
	require.NoError(t, f.Transition(StateConnecting))
	require.NoError(t, f.Transition(StateFailed))
}

func TestFSMRejectsInvalidTransition(t *testing.T) {
	f := newFSM()
	err := f.Transition(StateConnected)
	assert.Error(t, err)
	assert.Equal(t, StateDisconnected, f.Get())
}
