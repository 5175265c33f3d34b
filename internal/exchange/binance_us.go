package exchange

import "github.com/sawpanic/livermore/internal/net/ratelimit"

// NewBinanceUSAdapter reuses the Binance kline decoder/backfiller — the
// two exchanges are API-compatible, differing only in host and listed
// pairs, which already vary per the exchanges row's Config.
func NewBinanceUSAdapter(cfg Config, limiter *ratelimit.Limiter) Adapter {
	return NewBinanceAdapter(cfg, limiter)
}
