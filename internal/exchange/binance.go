package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// NewBinanceAdapter builds the adapter for Binance's combined-stream
// kline WebSocket and REST /api/v3/klines backfill. The same
// implementation serves both binance.com and binance.us — they differ
// only in the exchanges row's ws_url/rest_url.
func NewBinanceAdapter(cfg Config, limiter *ratelimit.Limiter) Adapter {
	return newBaseAdapter(cfg, limiter, newBinanceDecoder, binanceBackfill)
}

type binanceDecoder struct {
	sink CandleSink
}

func newBinanceDecoder(sink CandleSink) Decoder { return &binanceDecoder{sink: sink} }

func (d *binanceDecoder) SubscribeFrames(symbols []string) ([][]byte, error) {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@kline_1m")
	}
	frame, err := json.Marshal(map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": streams,
		"id":     1,
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

type binanceKlineMsg struct {
	Stream string `json:"stream"`
	Data   struct {
		Kline struct {
			StartMS int64  `json:"t"`
			Symbol  string `json:"s"`
			Open    string `json:"o"`
			High    string `json:"h"`
			Low     string `json:"l"`
			Close   string `json:"c"`
			Volume  string `json:"v"`
			Closed  bool   `json:"x"`
			Interval string `json:"i"`
		} `json:"k"`
	} `json:"data"`
}

func (d *binanceDecoder) Decode(data []byte) error {
	var msg binanceKlineMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	k := msg.Data.Kline
	if k.Symbol == "" {
		return nil
	}
	candle := model.Candle{
		Symbol:      k.Symbol,
		Timeframe:   binanceIntervalToTimeframe(k.Interval),
		TimestampMS: k.StartMS,
		Open:        mustDecimal(k.Open),
		High:        mustDecimal(k.High),
		Low:         mustDecimal(k.Low),
		Close:       mustDecimal(k.Close),
		Volume:      mustDecimal(k.Volume),
		Closed:      k.Closed,
	}
	d.sink.OnCandle(context.Background(), candle)
	return nil
}

func binanceIntervalToTimeframe(i string) model.Timeframe {
	switch i {
	case "1m":
		return model.Timeframe1m
	case "5m":
		return model.Timeframe5m
	case "15m":
		return model.Timeframe15m
	case "30m":
		return model.Timeframe30m
	case "1h":
		return model.Timeframe1h
	case "4h":
		return model.Timeframe4h
	case "1d":
		return model.Timeframe1d
	default:
		return model.Timeframe1m
	}
}

func binanceInterval(tf model.Timeframe) string { return string(tf) }

func binanceBackfill(ctx context.Context, c *http.Client, restURL, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=1000",
		restURL, symbol, binanceInterval(tf), sinceMS, untilMS)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 6 {
			continue
		}
		openTime, _ := r[0].(float64)
		open, _ := r[1].(string)
		high, _ := r[2].(string)
		low, _ := r[3].(string)
		cls, _ := r[4].(string)
		vol, _ := r[5].(string)
		candles = append(candles, model.Candle{
			Symbol:      symbol,
			Timeframe:   tf,
			TimestampMS: int64(openTime),
			Open:        mustDecimal(open),
			High:        mustDecimal(high),
			Low:         mustDecimal(low),
			Close:       mustDecimal(cls),
			Volume:      mustDecimal(vol),
			Closed:      true,
		})
	}
	return candles, nil
}
