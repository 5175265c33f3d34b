package indicator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/obsmetrics"
)

// historyDepth is how many trailing candles are handed to a Calculator;
// large enough for every reference Calculator's warm-up period.
const historyDepth = 500

// AlertForwarder receives a freshly computed indicator value synchronously,
// in-process, right after it's written to cache. The alert.Evaluator
// implements this; keeping it an interface here avoids an import cycle
// between indicator and alert.
type AlertForwarder interface {
	Evaluate(ctx context.Context, v model.IndicatorValue)
}

// Scheduler subscribes to candle:close events for one exchange and
// recomputes every registered Calculator against the closed series.
type Scheduler struct {
	rdb         *redis.Client
	writer      *cache.Writer
	metrics     *obsmetrics.Registry
	exchangeID  int
	calculators []Calculator
	forwarder   AlertForwarder
}

func NewScheduler(rdb *redis.Client, writer *cache.Writer, metrics *obsmetrics.Registry, exchangeID int, forwarder AlertForwarder, calculators ...Calculator) *Scheduler {
	return &Scheduler{rdb: rdb, writer: writer, metrics: metrics, exchangeID: exchangeID, forwarder: forwarder, calculators: calculators}
}

// Run subscribes to every tracked series' close channel and blocks,
// dispatching to handleClose, until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, symbols []string) error {
	channels := make([]string, 0, len(symbols)*len(model.Timeframes))
	for _, symbol := range symbols {
		for _, tf := range model.Timeframes {
			channels = append(channels, cachekeys.CandleCloseChannel(s.exchangeID, symbol, string(tf)))
		}
	}

	pubsub := s.rdb.Subscribe(ctx, channels...)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var closed model.Candle
			if err := json.Unmarshal([]byte(msg.Payload), &closed); err != nil {
				log.Error().Err(err).Str("channel", msg.Channel).Msg("failed to decode candle close event")
				continue
			}
			s.handleClose(ctx, closed)
		}
	}
}

func (s *Scheduler) handleClose(ctx context.Context, closed model.Candle) {
	candles, err := s.writer.ReadCandles(ctx, closed.ExchangeID, closed.Symbol, string(closed.Timeframe), historyDepth)
	if err != nil {
		log.Error().Err(err).Str("symbol", closed.Symbol).Msg("failed to read candle history for indicator compute")
		return
	}
	if len(candles) == 0 {
		return
	}

	for _, calc := range s.calculators {
		start := time.Now()
		value, ok := calc.Compute(candles)
		if s.metrics != nil {
			s.metrics.IndicatorComputeLatency.WithLabelValues(closed.Symbol, string(closed.Timeframe), calc.Type()).Observe(time.Since(start).Seconds())
		}
		if !ok {
			continue
		}
		if err := s.writeIndicator(ctx, value); err != nil {
			log.Error().Err(err).Str("indicator", calc.Type()).Msg("failed to write indicator value")
			if s.metrics != nil {
				s.metrics.IndicatorErrorsTotal.WithLabelValues(closed.Symbol, calc.Type()).Inc()
			}
			continue
		}
		if s.forwarder != nil {
			s.forwarder.Evaluate(ctx, value)
		}
	}
}

func (s *Scheduler) writeIndicator(ctx context.Context, v model.IndicatorValue) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	key := cachekeys.Indicator(v.ExchangeID, v.Symbol, string(v.Timeframe), v.Type)
	return s.rdb.Set(ctx, key, payload, 0).Err()
}
