package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// NewCoinbaseAdapter builds the Coinbase Advanced Trade adapter: JSON
// WebSocket candle channel, REST /products/{id}/candles for backfill.
func NewCoinbaseAdapter(cfg Config, limiter *ratelimit.Limiter) Adapter {
	return newBaseAdapter(cfg, limiter, newCoinbaseDecoder, coinbaseBackfill)
}

type coinbaseDecoder struct {
	sink CandleSink
}

func newCoinbaseDecoder(sink CandleSink) Decoder { return &coinbaseDecoder{sink: sink} }

func (d *coinbaseDecoder) SubscribeFrames(symbols []string) ([][]byte, error) {
	frame, err := json.Marshal(map[string]interface{}{
		"type":        "subscribe",
		"product_ids": symbols,
		"channel":     "candles",
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

type coinbaseCandleEvent struct {
	Channel string `json:"channel"`
	Events  []struct {
		Type    string `json:"type"`
		Candles []struct {
			Start     string `json:"start"`
			ProductID string `json:"product_id"`
			Open      string `json:"open"`
			High      string `json:"high"`
			Low       string `json:"low"`
			Close     string `json:"close"`
			Volume    string `json:"volume"`
		} `json:"candles"`
	} `json:"events"`
}

func (d *coinbaseDecoder) Decode(data []byte) error {
	var ev coinbaseCandleEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	if ev.Channel != "candles" {
		return nil
	}
	for _, e := range ev.Events {
		for _, c := range e.Candles {
			startSec, err := strconv.ParseInt(c.Start, 10, 64)
			if err != nil {
				continue
			}
			candle := model.Candle{
				Symbol:      c.ProductID,
				Timeframe:   model.Timeframe1m,
				TimestampMS: startSec * 1000,
				Open:        mustDecimal(c.Open),
				High:        mustDecimal(c.High),
				Low:         mustDecimal(c.Low),
				Close:       mustDecimal(c.Close),
				Volume:      mustDecimal(c.Volume),
				Closed:      false,
			}
			d.sink.OnCandle(context.Background(), candle)
		}
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func coinbaseBackfill(ctx context.Context, c *http.Client, restURL, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	granularity, err := coinbaseGranularity(tf)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/products/%s/candles?start=%d&end=%d&granularity=%s",
		restURL, symbol, sinceMS/1000, untilMS/1000, granularity)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows [][]float64 // [time, low, high, open, close, volume]
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		candles = append(candles, model.Candle{
			Symbol:      symbol,
			Timeframe:   tf,
			TimestampMS: int64(r[0]) * 1000,
			Low:         decimal.NewFromFloat(r[1]),
			High:        decimal.NewFromFloat(r[2]),
			Open:        decimal.NewFromFloat(r[3]),
			Close:       decimal.NewFromFloat(r[4]),
			Volume:      decimal.NewFromFloat(r[5]),
			Closed:      true,
		})
	}
	return candles, nil
}

func coinbaseGranularity(tf model.Timeframe) (string, error) {
	switch tf {
	case model.Timeframe1m:
		return "ONE_MINUTE", nil
	case model.Timeframe5m:
		return "FIVE_MINUTE", nil
	case model.Timeframe15m:
		return "FIFTEEN_MINUTE", nil
	case model.Timeframe30m:
		return "THIRTY_MINUTE", nil
	case model.Timeframe1h:
		return "ONE_HOUR", nil
	case model.Timeframe4h:
		return "SIX_HOUR", nil
	case model.Timeframe1d:
		return "ONE_DAY", nil
	default:
		return "", fmt.Errorf("unsupported timeframe for coinbase: %s", tf)
	}
}
