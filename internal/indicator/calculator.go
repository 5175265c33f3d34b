// Package indicator implements the indicator scheduler: it subscribes to
// candle-close events, recomputes whatever indicators depend on the
// closed series, and writes the results back through the cache contract.
package indicator

import (
	"github.com/sawpanic/livermore/internal/model"
)

// Calculator is the black-box contract between the scheduler and
// whatever computes indicator values from a candle series. The
// scheduler only ever calls Compute with the most recent candles for
// one (symbol, timeframe), at most historyDepth of them; it never knows the calculator's internals —
// seeding, warm-up depth, or numerical method are entirely the
// calculator's concern.
type Calculator interface {
	// Type identifies the indicator this Calculator produces, used as
	// the last segment of the indicator cache key.
	Type() string
	// Compute returns the indicator value for the newest candle in
	// candles (oldest first), or ok=false if there isn't enough history
	// yet to produce a value.
	Compute(candles []model.Candle) (model.IndicatorValue, bool)
}
