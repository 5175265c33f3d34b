package exchange

import (
	"fmt"
	"sync"
)

// ConnectionState is the adapter's own connection lifecycle, distinct
// from the instance-wide FSM in package registry — this one tracks only
// the WebSocket link.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StateFailed       ConnectionState = "failed"
)

var validTransitions = map[ConnectionState]map[ConnectionState]bool{
	StateDisconnected: {StateConnecting: true},
	StateConnecting:   {StateConnected: true, StateFailed: true, StateDisconnected: true},
	StateConnected:    {StateReconnecting: true, StateDisconnected: true, StateFailed: true},
	StateReconnecting: {StateConnecting: true, StateFailed: true, StateDisconnected: true},
	StateFailed:       {StateConnecting: true, StateDisconnected: true},
}

// fsm is a small guarded state machine shared by every adapter
// implementation; it rejects transitions the wire protocol shouldn't
// produce rather than silently clobbering state.
type fsm struct {
	mu    sync.RWMutex
	state ConnectionState
}

func newFSM() *fsm {
	return &fsm{state: StateDisconnected}
}

func (f *fsm) Get() ConnectionState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *fsm) Transition(to ConnectionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !validTransitions[f.state][to] {
		return fmt.Errorf("invalid connection transition %s -> %s", f.state, to)
	}
	f.state = to
	return nil
}
