// Package model defines the wire-shaped data types shared across Livermore's
// cache, database, and network-plane components. These are cross-language
// contracts (read by the operator UI and by tests written in other
// languages), so they stay plain structs with explicit json/db tags rather
// than anything reflection-heavy.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Timeframe is one of the candle intervals this instance tracks.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

// Timeframes lists every supported interval in scan order (longest first),
// matching the tiered order the cache-trust scanner walks in.
var Timeframes = []Timeframe{Timeframe1d, Timeframe4h, Timeframe1h, Timeframe15m, Timeframe5m, Timeframe1m}

// Millis returns the duration of one bar of this timeframe in milliseconds.
func (t Timeframe) Millis() int64 {
	switch t {
	case Timeframe1m:
		return 60_000
	case Timeframe5m:
		return 5 * 60_000
	case Timeframe15m:
		return 15 * 60_000
	case Timeframe30m:
		return 30 * 60_000
	case Timeframe1h:
		return 60 * 60_000
	case Timeframe4h:
		return 4 * 60 * 60_000
	case Timeframe1d:
		return 24 * 60 * 60_000
	default:
		return 0
	}
}

// Candle is one OHLCV observation for (exchange, symbol, timeframe).
type Candle struct {
	ExchangeID   int             `json:"exchange_id"`
	Symbol       string          `json:"symbol"`
	Timeframe    Timeframe       `json:"timeframe"`
	TimestampMS  int64           `json:"timestamp_ms"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Close        decimal.Decimal `json:"close"`
	Volume       decimal.Decimal `json:"volume"`
	SequenceNum  int64           `json:"sequence_num"`
	Closed       bool            `json:"closed"`
}

// Validate enforces the OHLC ordering and grid-alignment invariants from
// the data model: low <= open,close <= high, and the open time sits on the
// timeframe's grid.
func (c Candle) Validate() error {
	if c.Low.GreaterThan(c.Open) || c.Low.GreaterThan(c.Close) || c.Low.GreaterThan(c.High) {
		return fmt.Errorf("candle low %s exceeds open/close/high", c.Low)
	}
	if c.High.LessThan(c.Open) || c.High.LessThan(c.Close) {
		return fmt.Errorf("candle high %s below open/close", c.High)
	}
	grid := c.Timeframe.Millis()
	if grid > 0 && c.TimestampMS%grid != 0 {
		return fmt.Errorf("timestamp %d not aligned to %s grid", c.TimestampMS, c.Timeframe)
	}
	return nil
}

// Ticker is the last-trade snapshot for (exchange, symbol); overwritten in
// place, no history retained.
type Ticker struct {
	ExchangeID int             `json:"exchange_id"`
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Volume24h  decimal.Decimal `json:"volume_24h"`
	UpdatedAt  int64           `json:"updated_at"`
}
