package exchange

import (
	"context"
	"net/http"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// baseAdapter provides the Run/FetchHistoricalCandles skeleton every
// concrete exchange adapter shares. A concrete adapter supplies the
// Decoder (websocket wire format) and a rest backfiller (REST wire
// format); both normalize into model.Candle/model.Ticker before this
// type's callers ever see them.
type baseAdapter struct {
	cfg     Config
	ws      *wsConn
	http    *http.Client
	decoder func(sink CandleSink) Decoder
	backfill func(ctx context.Context, c *http.Client, restURL, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error)
}

func newBaseAdapter(cfg Config, limiter *ratelimit.Limiter, decoder func(CandleSink) Decoder, backfill func(context.Context, *http.Client, string, string, model.Timeframe, int64, int64) ([]model.Candle, error)) *baseAdapter {
	return &baseAdapter{
		cfg:      cfg,
		ws:       newWSConn(cfg.ExchangeName, cfg.WSURL, cfg.WSIdleTimeout, cfg.Metrics),
		http:     NewRESTClient(cfg.ExchangeName, cfg.RESTURL, limiter, cfg.RESTTimeout, cfg.DailyRESTBudget, cfg.BudgetResetHour, cfg.Metrics),
		decoder:  decoder,
		backfill: backfill,
	}
}

func (a *baseAdapter) ExchangeID() int      { return a.cfg.ExchangeID }
func (a *baseAdapter) ExchangeName() string { return a.cfg.ExchangeName }
func (a *baseAdapter) State() ConnectionState { return a.ws.State() }

func (a *baseAdapter) Run(ctx context.Context, symbols []string, sink CandleSink) error {
	return a.ws.run(ctx, symbols, a.decoder(sink))
}

func (a *baseAdapter) FetchHistoricalCandles(ctx context.Context, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	return a.backfill(ctx, a.http, a.cfg.RESTURL, symbol, tf, sinceMS, untilMS)
}
