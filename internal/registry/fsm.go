// Package registry implements the instance registry and FSM: the
// authoritative lifecycle for one exchange instance, its heartbeat
// presence key, and the activity stream operators read to see history.
package registry

import (
	"fmt"
	"sync"

	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
)

// validTransitions encodes the seven-state instance FSM. StateOffline is
// never a transition target here — it is inferred by a reader from a
// missing or expired status key, never written by the instance itself.
// Every state also accepts an out-of-band reset_to_idle transition back
// to idle (see ResetToIdle), handled separately from this table because
// it must not go through the ordinary notification path.
var validTransitions = map[model.ConnectionState]map[model.ConnectionState]bool{
	model.StateIdle:     {model.StateStarting: true},
	model.StateStarting: {model.StateWarming: true, model.StateStopping: true},
	model.StateWarming:  {model.StateActive: true, model.StateStopping: true},
	model.StateActive:   {model.StateStopping: true},
	model.StateStopping: {model.StateStopped: true},
	model.StateStopped:  {model.StateIdle: true},
}

// FSM guards an instance's own lifecycle transitions in memory; the
// Registry persists every successful transition to Redis.
type FSM struct {
	mu    sync.RWMutex
	state model.ConnectionState
}

func NewFSM(initial model.ConnectionState) *FSM {
	return &FSM{state: initial}
}

func (f *FSM) Get() model.ConnectionState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Transition moves the FSM to `to`, returning an errkind.InvalidTransition
// error if the wire protocol's own state machine rejects it.
func (f *FSM) Transition(to model.ConnectionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !validTransitions[f.state][to] {
		return errkind.New(errkind.InvalidTransition, fmt.Errorf("%s -> %s", f.state, to))
	}
	f.state = to
	return nil
}

// ResetToIdle forces the FSM back to idle from any state, for the
// recovery path triggered by an explicit reset command. Unlike
// Transition it is never rejected: a stuck instance must always be able
// to reset. Returns the state it reset from.
func (f *FSM) ResetToIdle() model.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	from := f.state
	f.state = model.StateIdle
	return from
}
