package exchange

import (
	"fmt"

	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// Factory builds the Adapter for one exchanges.name value.
type Factory func(cfg Config, limiter *ratelimit.Limiter) Adapter

var factories = map[string]Factory{
	"coinbase":    NewCoinbaseAdapter,
	"binance":     NewBinanceAdapter,
	"binance_us":  NewBinanceUSAdapter,
	"kraken":      NewKrakenAdapter,
	"kucoin":      NewKucoinAdapter,
	"mexc":        NewMexcAdapter,
}

// New constructs the adapter registered for cfg.ExchangeName.
func New(cfg Config, limiter *ratelimit.Limiter) (Adapter, error) {
	f, ok := factories[cfg.ExchangeName]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for exchange %q", cfg.ExchangeName)
	}
	return f(cfg, limiter), nil
}
