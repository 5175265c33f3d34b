// Package cache implements Livermore's versioned cache writers for the
// candles:* and ticker:* keys. Every candle write is a monotonic
// compare-and-swap on sequence_num so a REST-backfilled candle can never
// clobber a newer WebSocket-observed one that raced ahead of it; ticker
// writes are last-write-wins. indicator:* keys are written by the
// indicator scheduler, not by this package.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
)

// MaxCandlesPerSeries caps how many candles a sorted set retains; writes
// trim the oldest beyond this window after every successful apply.
const MaxCandlesPerSeries = 2000

// addCandleIfNewerScript is the atomic compare-and-swap: it looks up the
// existing member at the candle's timestamp score, compares sequence_num,
// and only replaces it if the incoming candle is newer or the slot is
// empty. Running this as a single EVAL avoids a GET/compare/SET race
// between two writers observing the same boundary.
var addCandleIfNewerScript = redis.NewScript(`
local key = KEYS[1]
local score = tonumber(ARGV[1])
local newSeq = tonumber(ARGV[2])
local payload = ARGV[3]

local existing = redis.call('ZRANGEBYSCORE', key, score, score)
if #existing > 0 then
	local ok, decoded = pcall(cjson.decode, existing[1])
	if ok and decoded.sequence_num and tonumber(decoded.sequence_num) >= newSeq then
		return 0
	end
	redis.call('ZREM', key, existing[1])
end

redis.call('ZADD', key, score, payload)
return 1
`)

// Writer applies normalized candles/tickers to Redis under the cache
// contract in package cachekeys.
type Writer struct {
	rdb *redis.Client
}

func NewWriter(rdb *redis.Client) *Writer {
	return &Writer{rdb: rdb}
}

// WriteCandle applies one candle with add-if-newer semantics, trims the
// series to MaxCandlesPerSeries, and — if the candle closed — publishes
// a close event for the indicator scheduler to pick up.
//
// Returns true if the candle was applied (new or replaced a stale one),
// false if it was rejected as stale.
func (w *Writer) WriteCandle(ctx context.Context, c model.Candle) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, fmt.Errorf("invalid candle: %w", err)
	}

	key := cachekeys.Candles(c.ExchangeID, c.Symbol, string(c.Timeframe))
	payload, err := json.Marshal(c)
	if err != nil {
		return false, err
	}

	res, err := addCandleIfNewerScript.Run(ctx, w.rdb, []string{key}, c.TimestampMS, c.SequenceNum, string(payload)).Int()
	if err != nil {
		return false, fmt.Errorf("add_candle_if_newer: %w", err)
	}
	applied := res == 1

	if applied {
		if err := w.rdb.ZRemRangeByRank(ctx, key, 0, -1-MaxCandlesPerSeries).Err(); err != nil {
			return applied, fmt.Errorf("trim series: %w", err)
		}
	}

	if applied && c.Closed {
		channel := cachekeys.CandleCloseChannel(c.ExchangeID, c.Symbol, string(c.Timeframe))
		if err := w.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			return applied, fmt.Errorf("publish candle close: %w", err)
		}
	}

	return applied, nil
}

// WriteTicker overwrites the latest ticker snapshot; tickers carry no
// history and no conflict semantics, last write wins.
func (w *Writer) WriteTicker(ctx context.Context, t model.Ticker) error {
	key := cachekeys.Ticker(t.ExchangeID, t.Symbol)
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return w.rdb.Set(ctx, key, payload, 0).Err()
}

// ReadCandles returns up to limit candles for (exchange, symbol,
// timeframe) ordered oldest-first, used by the indicator scheduler and
// the public read API.
func (w *Writer) ReadCandles(ctx context.Context, exchangeID int, symbol, timeframe string, limit int64) ([]model.Candle, error) {
	key := cachekeys.Candles(exchangeID, symbol, timeframe)
	raw, err := w.rdb.ZRange(ctx, key, -limit, -1).Result()
	if err != nil {
		return nil, err
	}
	candles := make([]model.Candle, 0, len(raw))
	for _, r := range raw {
		var c model.Candle
		if err := json.Unmarshal([]byte(r), &c); err != nil {
			continue // tolerate a corrupt member; caller's trust assessor handles gaps
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// Count returns the number of candles currently cached for one series,
// used by the candle-status scanner's low_count check.
func (w *Writer) Count(ctx context.Context, exchangeID int, symbol, timeframe string) (int64, error) {
	key := cachekeys.Candles(exchangeID, symbol, timeframe)
	return w.rdb.ZCard(ctx, key).Result()
}

// Newest returns the most recent candle for a series, or ok=false if the
// series is empty.
func (w *Writer) Newest(ctx context.Context, exchangeID int, symbol, timeframe string) (model.Candle, bool, error) {
	key := cachekeys.Candles(exchangeID, symbol, timeframe)
	raw, err := w.rdb.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{Max: "+inf", Min: "-inf", Offset: 0, Count: 1}).Result()
	if err != nil {
		return model.Candle{}, false, err
	}
	if len(raw) == 0 {
		return model.Candle{}, false, nil
	}
	var c model.Candle
	if err := json.Unmarshal([]byte(raw[0]), &c); err != nil {
		return model.Candle{}, false, fmt.Errorf("corrupt newest candle: %w", err)
	}
	return c, true, nil
}

// DumpExchange deletes every candle key for one exchange using a
// cluster-safe SCAN + UNLINK — never KEYS, never a cross-slot MULTI/EXEC,
// so this is safe against a Redis Cluster deployment.
func (w *Writer) DumpExchange(ctx context.Context, exchangeID int) error {
	pattern := cachekeys.CandlesExchangePrefix(exchangeID)
	iter := w.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 100 {
			if err := w.rdb.Unlink(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := w.rdb.Unlink(ctx, batch...).Err(); err != nil {
			return err
		}
	}
	return nil
}
