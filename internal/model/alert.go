package model

import "time"

// Alert is one triggering event produced by the alert evaluator. The
// internal AlertType is never exposed by the public API — only the
// derived direction/strength labels are.
type Alert struct {
	ID               int64                  `db:"id" json:"id"`
	ExchangeID       int                    `db:"exchange_id" json:"exchange_id"`
	Symbol           string                 `db:"symbol" json:"symbol"`
	Timeframe        string                 `db:"timeframe" json:"timeframe"`
	AlertType        string                 `db:"alert_type" json:"-"`
	TriggeredAt      time.Time              `db:"triggered_at" json:"triggered_at"`
	TriggeredAtEpoch int64                  `db:"triggered_at_epoch" json:"triggered_at_epoch"`
	Price            string                 `db:"price" json:"price"`
	TriggerValue     float64                `db:"trigger_value" json:"trigger_value"`
	TriggerLabel     string                 `db:"trigger_label" json:"trigger_label"`
	PreviousLabel    string                 `db:"previous_label" json:"previous_label"`
	Details          map[string]interface{} `db:"details" json:"details"`
	NotificationSent bool                   `db:"notification_sent" json:"-"`
	NotificationErr  string                 `db:"notification_error" json:"-"`
}

// PubSubAlert is the shape published on channel:alerts:exchange:{id}; it
// carries the source exchange's identity so cross-exchange subscribers
// can attribute it without a DB round trip.
type PubSubAlert struct {
	Alert
	SourceExchangeID   int    `json:"source_exchange_id"`
	SourceExchangeName string `json:"source_exchange_name"`
}

// ControlCommand is the JSON payload accepted on livermore:commands:{user_id}.
type ControlCommand struct {
	CorrelationID string                 `json:"correlation_id"`
	Type          string                 `json:"type"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     int64                  `json:"timestamp"`
	Priority      int                    `json:"priority"`
}

// CommandResult is published back in response to a ControlCommand.
type CommandResult struct {
	CorrelationID string `json:"correlation_id"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
	State         string `json:"state,omitempty"`
}

const (
	CommandStart             = "start"
	CommandStop              = "stop"
	CommandAddSymbol         = "add-symbol"
	CommandBulkAddSymbols    = "bulk-add-symbols"
	CommandForceBackfill     = "force-backfill"
	CommandReset             = "reset"
)
