// Package reconcile implements boundary reconciliation: at every
// timeframe boundary tick, re-fetch the most recent closed candles via
// REST and replay them through the versioned writer, repairing whatever
// the live stream missed while disconnected or lagging.
package reconcile

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/exchange"
	"github.com/sawpanic/livermore/internal/model"
)

// defaultReconcileDepth is how many of the most recent closed candles a
// boundary fetch asks for. Reconciliation is authoritative-truth-source
// patching, not a gap backfill — it always re-fetches the same fixed
// tail rather than sizing the fetch to how long the series has been
// behind.
const defaultReconcileDepth = 3

// maxReconcileAttempts bounds how many times one boundary's fetch is
// retried before the failure is logged and the boundary is abandoned
// until the next tick.
const maxReconcileAttempts = 3

// Backfiller is the REST half of exchange.Adapter that reconciliation needs.
type Backfiller interface {
	FetchHistoricalCandles(ctx context.Context, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error)
}

// Reconciler watches timeframe boundaries for one exchange and, at each
// one, re-applies the fixed tail of recent closed candles for every
// tracked series.
type Reconciler struct {
	writer     *cache.Writer
	backfill   Backfiller
	exchangeID int
	rng        *rand.Rand
}

func NewReconciler(writer *cache.Writer, backfill Backfiller, exchangeID int) *Reconciler {
	return &Reconciler{
		writer:     writer,
		backfill:   backfill,
		exchangeID: exchangeID,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run blocks, firing Reconcile for every timeframe at that timeframe's
// own boundary (a 1m series gets checked every minute, a 1h series once
// an hour), until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, symbols []string) error {
	timers := make(map[model.Timeframe]*time.Timer, len(model.Timeframes))
	for _, tf := range model.Timeframes {
		timers[tf] = time.NewTimer(untilNextBoundary(tf))
	}
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		for _, tf := range model.Timeframes {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timers[tf].C:
				for _, symbol := range symbols {
					if err := r.Reconcile(ctx, symbol, tf); err != nil {
						log.Warn().Err(err).Str("symbol", symbol).Str("timeframe", string(tf)).Msg("boundary reconciliation failed")
					}
				}
				timers[tf].Reset(untilNextBoundary(tf))
			default:
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Reconcile fetches the last defaultReconcileDepth closed candles for
// (symbol, timeframe) from REST and applies each through the versioned
// writer, retrying a failed fetch with the adapter's own backoff policy
// up to maxReconcileAttempts times before giving up until the next
// boundary tick.
func (r *Reconciler) Reconcile(ctx context.Context, symbol string, tf model.Timeframe) error {
	grid := tf.Millis()
	nowMS := time.Now().UnixMilli()
	currentBoundary := nowMS - (nowMS % grid)
	sinceMS := currentBoundary - defaultReconcileDepth*grid

	var candles []model.Candle
	var lastErr error
	for attempt := 0; attempt < maxReconcileAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exchange.ReconnectDelay(attempt-1, r.rng)):
			}
		}
		candles, lastErr = r.backfill.FetchHistoricalCandles(ctx, symbol, tf, sinceMS, currentBoundary)
		if lastErr == nil {
			break
		}
		log.Warn().Err(lastErr).Str("symbol", symbol).Str("timeframe", string(tf)).Int("attempt", attempt+1).Msg("boundary reconciliation fetch failed, retrying")
	}
	if lastErr != nil {
		return lastErr
	}

	for _, c := range candles {
		c.ExchangeID = r.exchangeID
		applied, err := r.writer.WriteCandle(ctx, c)
		if err != nil {
			return err
		}
		if applied {
			log.Debug().Str("symbol", symbol).Str("timeframe", string(tf)).Int64("timestamp_ms", c.TimestampMS).Msg("boundary reconciliation gap repair")
		}
	}
	return nil
}

func untilNextBoundary(tf model.Timeframe) time.Duration {
	grid := tf.Millis()
	nowMS := time.Now().UnixMilli()
	next := ((nowMS / grid) + 1) * grid
	return time.Duration(next-nowMS) * time.Millisecond
}
