package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/obsmetrics"
)

// Registry owns one exchange instance's status key, FSM, and activity
// stream. Only this instance writes its status key: the heartbeat loop
// refreshes it, and Transition, ResetToIdle and RecordError rewrite it
// immediately. The TTL means a crashed or partitioned instance silently degrades to
// StateOffline for any reader, with no explicit "offline" write needed.
type Registry struct {
	rdb     *redis.Client
	metrics *obsmetrics.Registry
	fsm     *FSM
	heartbeatInterval time.Duration
	heartbeatTTL      time.Duration

	identity model.InstanceStatus
}

// Identity is the static part of an instance's status, fixed at boot.
type Identity struct {
	ExchangeID       int
	ExchangeName     string
	Hostname         string
	IP               string
	AdminEmail       string
	AdminDisplayName string
}

func New(rdb *redis.Client, metrics *obsmetrics.Registry, id Identity, heartbeatInterval, heartbeatTTL time.Duration) *Registry {
	now := time.Now().UnixMilli()
	return &Registry{
		rdb:               rdb,
		metrics:           metrics,
		fsm:               NewFSM(model.StateIdle),
		heartbeatInterval: heartbeatInterval,
		heartbeatTTL:      heartbeatTTL,
		identity: model.InstanceStatus{
			ExchangeID:       id.ExchangeID,
			ExchangeName:     id.ExchangeName,
			Hostname:         id.Hostname,
			IP:               id.IP,
			AdminEmail:       id.AdminEmail,
			AdminDisplayName: id.AdminDisplayName,
			ConnectionState:  model.StateIdle,
			RegisteredAtMS:   now,
		},
	}
}

func (r *Registry) State() model.ConnectionState { return r.fsm.Get() }

// Transition moves the FSM, persists the status key immediately (rather
// than waiting for the next heartbeat tick), and appends a
// state_transition activity entry.
func (r *Registry) Transition(ctx context.Context, to model.ConnectionState, symbolCount int) error {
	from := r.fsm.Get()
	if err := r.fsm.Transition(to); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	r.identity.ConnectionState = to
	r.identity.LastStateChangeMS = now
	r.identity.SymbolCount = symbolCount
	if to == model.StateActive && from != model.StateActive {
		r.identity.ConnectedAtMS = now
	}

	if err := r.writeStatus(ctx); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.InstanceState.WithLabelValues(r.identity.ExchangeName, string(from)).Set(0)
		r.metrics.InstanceState.WithLabelValues(r.identity.ExchangeName, string(to)).Set(1)
	}

	return r.appendActivity(ctx, model.ActivityEntry{
		Event:        "state_transition",
		ExchangeID:   fmt.Sprintf("%d", r.identity.ExchangeID),
		ExchangeName: r.identity.ExchangeName,
		Hostname:     r.identity.Hostname,
		IP:           r.identity.IP,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		FromState:    string(from),
		ToState:      string(to),
	})
}

// ResetToIdle forces the instance back to idle from any state and
// persists the status key, but — unlike Transition — does not append an
// activity entry or fire a notification. This is the recovery path for
// an operator-issued reset: the spec requires reset_to_idle to be silent.
func (r *Registry) ResetToIdle(ctx context.Context) error {
	from := r.fsm.ResetToIdle()

	now := time.Now().UnixMilli()
	r.identity.ConnectionState = model.StateIdle
	r.identity.LastStateChangeMS = now

	if err := r.writeStatus(ctx); err != nil {
		return err
	}
	if r.metrics != nil {
		r.metrics.InstanceState.WithLabelValues(r.identity.ExchangeName, string(from)).Set(0)
		r.metrics.InstanceState.WithLabelValues(r.identity.ExchangeName, string(model.StateIdle)).Set(1)
	}
	return nil
}

// RecordError appends an error activity entry and sets last_error on the
// status key without transitioning the FSM — a transient fetch failure
// does not necessarily mean the instance itself should stop.
func (r *Registry) RecordError(ctx context.Context, cause error) error {
	r.identity.LastError = cause.Error()
	if err := r.writeStatus(ctx); err != nil {
		return err
	}
	return r.appendActivity(ctx, model.ActivityEntry{
		Event:        "error",
		ExchangeID:   fmt.Sprintf("%d", r.identity.ExchangeID),
		ExchangeName: r.identity.ExchangeName,
		Hostname:     r.identity.Hostname,
		IP:           r.identity.IP,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Error:        cause.Error(),
		State:        string(r.fsm.Get()),
	})
}

// RunHeartbeat refreshes the status key's TTL every heartbeatInterval
// until ctx is cancelled. It blocks.
func (r *Registry) RunHeartbeat(ctx context.Context) error {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	if err := r.writeStatus(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.identity.LastHeartbeatMS = time.Now().UnixMilli()
			if err := r.writeStatus(ctx); err != nil {
				log.Error().Err(err).Msg("heartbeat write failed")
			}
		}
	}
}

func (r *Registry) writeStatus(ctx context.Context) error {
	r.identity.LastHeartbeatMS = time.Now().UnixMilli()
	payload, err := json.Marshal(r.identity)
	if err != nil {
		return err
	}
	key := cachekeys.InstanceStatusKey(r.identity.ExchangeID)
	return r.rdb.Set(ctx, key, payload, r.heartbeatTTL).Err()
}

func (r *Registry) appendActivity(ctx context.Context, entry model.ActivityEntry) error {
	key := cachekeys.ActivityStreamKey(r.identity.ExchangeID)
	return r.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		MaxLen: 1000,
		Approx: true,
		Values: entry.ToFields(),
	}).Err()
}
