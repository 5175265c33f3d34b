package model

// ConnectionState is one of the seven states of the instance FSM.
type ConnectionState string

const (
	StateIdle     ConnectionState = "idle"
	StateStarting ConnectionState = "starting"
	StateWarming  ConnectionState = "warming"
	StateActive   ConnectionState = "active"
	StateStopping ConnectionState = "stopping"
	StateStopped  ConnectionState = "stopped"
	StateOffline  ConnectionState = "offline" // inferred, never persisted directly
)

// InstanceStatus is the JSON blob written to exchange:{id}:status every
// heartbeat tick, with a TTL three times the heartbeat cadence.
type InstanceStatus struct {
	ExchangeID       int             `json:"exchange_id"`
	ExchangeName     string          `json:"exchange_name"`
	Hostname         string          `json:"hostname"`
	IP               string          `json:"ip"`
	AdminEmail       string          `json:"admin_email"`
	AdminDisplayName string          `json:"admin_display_name"`
	ConnectionState  ConnectionState `json:"connection_state"`
	SymbolCount      int             `json:"symbol_count"`
	ConnectedAtMS    int64           `json:"connected_at,omitempty"`
	LastHeartbeatMS  int64           `json:"last_heartbeat"`
	LastStateChangeMS int64          `json:"last_state_change"`
	RegisteredAtMS   int64           `json:"registered_at"`
	LastError        string          `json:"last_error,omitempty"`
}

// ActivityEntry is one event appended to the per-exchange activity
// stream. It is a flat string map on the wire (Redis Stream fields are
// strings), hence string-typed fields throughout.
type ActivityEntry struct {
	Event        string `json:"event"` // state_transition | error
	ExchangeID   string `json:"exchange_id"`
	ExchangeName string `json:"exchange_name"`
	Hostname     string `json:"hostname"`
	IP           string `json:"ip"`
	Timestamp    string `json:"timestamp"`
	FromState    string `json:"from_state,omitempty"`
	ToState      string `json:"to_state,omitempty"`
	AdminEmail   string `json:"admin_email,omitempty"`
	Error        string `json:"error,omitempty"`
	State        string `json:"state,omitempty"`
}

// ToFields flattens the entry into the map shape XAdd expects.
func (a ActivityEntry) ToFields() map[string]interface{} {
	f := map[string]interface{}{
		"event":         a.Event,
		"exchange_id":   a.ExchangeID,
		"exchange_name": a.ExchangeName,
		"hostname":      a.Hostname,
		"ip":            a.IP,
		"timestamp":     a.Timestamp,
	}
	if a.FromState != "" {
		f["from_state"] = a.FromState
	}
	if a.ToState != "" {
		f["to_state"] = a.ToState
	}
	if a.AdminEmail != "" {
		f["admin_email"] = a.AdminEmail
	}
	if a.Error != "" {
		f["error"] = a.Error
	}
	if a.State != "" {
		f["state"] = a.State
	}
	return f
}
