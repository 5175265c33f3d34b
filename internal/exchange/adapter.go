// Package exchange defines Livermore's exchange adapter contract and the
// concrete adapters that speak each exchange's WebSocket/REST dialect.
// Every adapter normalizes into the shared model.Candle/model.Ticker
// shapes before anything downstream ever sees exchange-specific JSON.
package exchange

import (
	"context"
	"time"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/obsmetrics"
)

// CandleSink receives normalized candles as the adapter observes them.
// Implementations (the cache writer) must not block long; the adapter
// has one goroutine per connection feeding this channel.
type CandleSink interface {
	OnCandle(ctx context.Context, c model.Candle)
	OnTicker(ctx context.Context, t model.Ticker)
}

// Adapter is the contract every exchange integration implements. One
// Adapter instance owns exactly one exchange's WebSocket connection plus
// whatever REST polling that exchange dialect requires.
type Adapter interface {
	// ExchangeID identifies which exchanges row this adapter serves.
	ExchangeID() int
	// ExchangeName is the lowercase identity used in cache keys and logs.
	ExchangeName() string

	// Run blocks, maintaining the connection and feeding sink, until ctx
	// is cancelled. Every connection failure, including an errkind Fatal
	// one (geo-restriction, auth), is retried with backoff; Run does not
	// return early on it.
	Run(ctx context.Context, symbols []string, sink CandleSink) error

	// FetchHistoricalCandles backfills via REST — used by warmup and
	// boundary reconciliation, never by the live streaming path.
	FetchHistoricalCandles(ctx context.Context, symbol string, timeframe model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error)

	// State reports the adapter's current connection FSM state.
	State() ConnectionState
}

// Config is the subset of an exchanges row an adapter needs at construction.
type Config struct {
	ExchangeID   int
	ExchangeName string
	WSURL        string
	RESTURL      string
	RESTTimeout  time.Duration
	WSIdleTimeout time.Duration

	// DailyRESTBudget caps how many REST calls this adapter's backfill
	// path may issue per day, 0 disables budget tracking entirely (the
	// exchange's own rate limiter is still in effect regardless).
	DailyRESTBudget int64
	BudgetResetHour int

	// Metrics is optional; when nil, REST/WebSocket call metrics are not
	// recorded but the adapter otherwise functions identically.
	Metrics *obsmetrics.Registry
}
