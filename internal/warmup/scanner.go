// Package warmup implements the cache-trust assessor, candle-status
// scanner, warmup schedule builder, and the Smart Warmup Service that
// orchestrates them into one backfill run per exchange.
package warmup

import (
	"context"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/model"
)

// MinIndicatorCandles is the minimum cached candle count a series needs
// before the derived-value calculators have enough history to seed. It
// is the scanner's count-sufficiency floor for every timeframe.
const MinIndicatorCandles = 52

// stalenessMS is how long a series can go without a new candle before
// the scanner calls it stale rather than merely low-count, keyed by
// timeframe. 5m and 1m share the 1h ceiling because their freshness is
// gap-verified by boundary reconciliation, not by this threshold.
var stalenessMS = map[model.Timeframe]int64{
	model.Timeframe1d:  90_000_000,
	model.Timeframe4h:  18_000_000,
	model.Timeframe1h:  7_200_000,
	model.Timeframe15m: 2_700_000,
	model.Timeframe5m:  3_600_000,
	model.Timeframe1m:  3_600_000,
}

// Scanner walks (symbol, timeframe) pairs in the exchange's universe
// and reports whether the cached series is sufficient.
type Scanner struct {
	writer *cache.Writer
}

func NewScanner(writer *cache.Writer) *Scanner {
	return &Scanner{writer: writer}
}

// Scan evaluates one (symbol, timeframe) pair against MinIndicatorCandles
// and stalenessMS, given the current wall-clock time in epoch milliseconds.
func (s *Scanner) Scan(ctx context.Context, exchangeID int, symbol string, tf model.Timeframe, nowMS int64) (model.ScanResult, error) {
	count, err := s.writer.Count(ctx, exchangeID, symbol, string(tf))
	if err != nil {
		return model.ScanResult{}, err
	}

	result := model.ScanResult{Symbol: symbol, Timeframe: tf, CachedCount: int(count)}

	if count == 0 {
		result.Reason = model.ReasonEmpty
		result.Sufficient = false
		return result, nil
	}

	newest, ok, err := s.writer.Newest(ctx, exchangeID, symbol, string(tf))
	if err != nil {
		return model.ScanResult{}, err
	}
	if ok {
		result.NewestCandleAgeMS = nowMS - newest.TimestampMS
	}

	if ok && result.NewestCandleAgeMS > stalenessMS[tf] {
		result.Reason = model.ReasonStale
		result.Sufficient = false
		return result, nil
	}

	if int(count) < MinIndicatorCandles {
		result.Reason = model.ReasonLowCount
		result.Sufficient = false
		return result, nil
	}

	result.Reason = model.ReasonOK
	result.Sufficient = true
	return result, nil
}

// ScanTiered runs the tiered, sentinel-first scan targeted mode uses:
// for each timeframe (longest first), the sentinel symbol is checked
// first. If the sentinel fails — insufficient count or stale — every
// other symbol is marked as needing that timeframe without a
// per-symbol query, because a failed sentinel means the pipeline was
// not producing that timeframe at all and there is nothing to learn
// from scanning the rest. If the sentinel passes, every remaining
// symbol is scanned individually.
func (s *Scanner) ScanTiered(ctx context.Context, exchangeID int, symbols []string, sentinel string, nowMS int64) ([]model.ScanResult, error) {
	results := make([]model.ScanResult, 0, len(symbols)*len(model.Timeframes))
	for _, tf := range model.Timeframes {
		sentinelResult, err := s.Scan(ctx, exchangeID, sentinel, tf, nowMS)
		if err != nil {
			return nil, err
		}
		results = append(results, sentinelResult)

		for _, symbol := range symbols {
			if symbol == sentinel {
				continue
			}
			if !sentinelResult.Sufficient {
				results = append(results, model.ScanResult{
					Symbol:    symbol,
					Timeframe: tf,
					Reason:    sentinelResult.Reason,
				})
				continue
			}
			r, err := s.Scan(ctx, exchangeID, symbol, tf, nowMS)
			if err != nil {
				return nil, err
			}
			results = append(results, r)
		}
	}
	return results, nil
}

// ScanFullRefresh emits every (symbol, timeframe) pair as insufficient
// with reason empty and does no cache reads at all: full_refresh mode
// runs after the dump phase has already cleared every candle key for
// the exchange, so there is nothing left to learn by scanning.
func ScanFullRefresh(symbols []string) []model.ScanResult {
	results := make([]model.ScanResult, 0, len(symbols)*len(model.Timeframes))
	for _, tf := range model.Timeframes {
		for _, symbol := range symbols {
			results = append(results, model.ScanResult{
				Symbol:    symbol,
				Timeframe: tf,
				Reason:    model.ReasonEmpty,
			})
		}
	}
	return results
}
