package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
)

func TestApplyUnrecognizedCommandIsInvalidTransition(t *testing.T) {
	c := &Channel{handlers: make(map[string]Handler)}
	err := c.apply(context.Background(), model.ControlCommand{Type: "not-a-real-command"})
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.InvalidTransition))
}

func TestApplyDispatchesRegisteredHandler(t *testing.T) {
	called := false
	c := &Channel{handlers: make(map[string]Handler)}
	c.RegisterHandler(model.CommandAddSymbol, func(ctx context.Context, cmd model.ControlCommand) error {
		called = true
		return nil
	})

	err := c.apply(context.Background(), model.ControlCommand{Type: model.CommandAddSymbol})
	require.NoError(t, err)
	assert.True(t, called)
}
