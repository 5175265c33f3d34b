package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/obsmetrics"
	"github.com/sawpanic/livermore/internal/registry"
)

// Sink adapts a Writer into the exchange.CandleSink contract: the
// boundary where a normalized exchange observation becomes a cache
// write, instrumented and error-logged so the adapter's hot loop never
// has to know about metrics or persistence failures.
type Sink struct {
	writer       *Writer
	metrics      *obsmetrics.Registry
	reg          *registry.Registry
	exchangeName string
}

func NewSink(writer *Writer, metrics *obsmetrics.Registry, reg *registry.Registry, exchangeName string) *Sink {
	return &Sink{writer: writer, metrics: metrics, reg: reg, exchangeName: exchangeName}
}

func (s *Sink) OnCandle(ctx context.Context, c model.Candle) {
	start := time.Now()
	applied, err := s.writer.WriteCandle(ctx, c)
	if s.metrics != nil {
		s.metrics.CandleWriteLatency.WithLabelValues(s.exchangeName, string(c.Timeframe)).Observe(time.Since(start).Seconds())
		outcome := "applied"
		switch {
		case err != nil:
			outcome = "invalid"
		case !applied:
			outcome = "stale"
		}
		s.metrics.CandleWritesTotal.WithLabelValues(s.exchangeName, string(c.Timeframe), outcome).Inc()
	}
	if err != nil {
		log.Error().Err(err).Str("exchange", s.exchangeName).Str("symbol", c.Symbol).Msg("candle write failed")
		if s.reg != nil {
			_ = s.reg.RecordError(ctx, err)
		}
	}
}

func (s *Sink) OnTicker(ctx context.Context, t model.Ticker) {
	if err := s.writer.WriteTicker(ctx, t); err != nil {
		log.Error().Err(err).Str("exchange", s.exchangeName).Str("symbol", t.Symbol).Msg("ticker write failed")
	}
}
