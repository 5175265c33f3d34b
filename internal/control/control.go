// Package control implements the control channel: it listens for
// operator commands published on livermore:commands:{user_id}, applies
// them against the instance registry, and publishes the outcome back on
// a per-command correlation channel.
package control

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/registry"
)

// Handler applies one command's side effect beyond the FSM transition
// itself — e.g. CommandAddSymbol needs to touch the symbol universe,
// which the control channel doesn't own.
type Handler func(ctx context.Context, cmd model.ControlCommand) error

// Channel is one user's control channel subscription for one instance.
type Channel struct {
	rdb      *redis.Client
	reg      *registry.Registry
	userID   int64
	handlers map[string]Handler
}

func New(rdb *redis.Client, reg *registry.Registry, userID int64) *Channel {
	return &Channel{rdb: rdb, reg: reg, userID: userID, handlers: make(map[string]Handler)}
}

// RegisterHandler wires a side effect for a command type that isn't a
// pure FSM transition (add-symbol, bulk-add-symbols, force-backfill).
// reset is handled by the channel itself and never reaches a handler.
func (c *Channel) RegisterHandler(commandType string, h Handler) {
	c.handlers[commandType] = h
}

// Run subscribes to this user's command channel and dispatches every
// command until ctx is cancelled.
func (c *Channel) Run(ctx context.Context) error {
	pubsub := c.rdb.Subscribe(ctx, cachekeys.CommandsChannel(c.userID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var cmd model.ControlCommand
			if err := json.Unmarshal([]byte(msg.Payload), &cmd); err != nil {
				log.Error().Err(err).Msg("control channel: failed to decode command")
				continue
			}
			c.dispatch(ctx, cmd)
		}
	}
}

func (c *Channel) dispatch(ctx context.Context, cmd model.ControlCommand) {
	result := model.CommandResult{CorrelationID: cmd.CorrelationID, Success: true}

	if err := c.apply(ctx, cmd); err != nil {
		result.Success = false
		result.Error = err.Error()
		log.Warn().Err(err).Str("type", cmd.Type).Str("correlation_id", cmd.CorrelationID).Msg("command failed")
	}
	result.State = string(c.reg.State())

	if err := c.publishResult(ctx, cmd.CorrelationID, result); err != nil {
		log.Error().Err(err).Msg("control channel: failed to publish command result")
	}
}

func (c *Channel) apply(ctx context.Context, cmd model.ControlCommand) error {
	switch cmd.Type {
	case model.CommandStart:
		return c.reg.Transition(ctx, model.StateStarting, 0)
	case model.CommandStop:
		return c.reg.Transition(ctx, model.StateStopping, 0)
	case model.CommandReset:
		return c.reg.ResetToIdle(ctx)
	default:
		h, ok := c.handlers[cmd.Type]
		if !ok {
			return errkind.New(errkind.InvalidTransition, fmt.Errorf("unrecognized command type %q", cmd.Type))
		}
		return h(ctx, cmd)
	}
}

func (c *Channel) publishResult(ctx context.Context, correlationID string, result model.CommandResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	channel := cachekeys.CommandResponseChannel(c.userID, correlationID)
	return c.rdb.Publish(ctx, channel, payload).Err()
}
