package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
)

func TestFSMFullLifecycle(t *testing.T) {
	f := NewFSM(model.StateIdle)
	require.NoError(t, f.Transition(model.StateStarting))
	require.NoError(t, f.Transition(model.StateWarming))
	require.NoError(t, f.Transition(model.StateActive))
	require.NoError(t, f.Transition(model.StateStopping))
	require.NoError(t, f.Transition(model.StateStopped))
	require.NoError(t, f.Transition(model.StateIdle))
}

func TestFSMRejectsSkippingWarming(t *testing.T) {
	f := NewFSM(model.StateStarting)
	err := f.Transition(model.StateActive)
	assert.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidTransition))
}

func TestFSMActiveCannotReturnToWarming(t *testing.T) {
	f := NewFSM(model.StateActive)
	err := f.Transition(model.StateWarming)
	assert.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidTransition))
}

func TestFSMResetToIdleBypassesTransitionTable(t *testing.T) {
	f := NewFSM(model.StateActive)
	from := f.ResetToIdle()
	assert.Equal(t, model.StateActive, from)
	assert.Equal(t, model.StateIdle, f.Get())
}
