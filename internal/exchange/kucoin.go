package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// NewKucoinAdapter builds the KuCoin adapter. KuCoin requires a
// REST-issued bullet token before the WebSocket URL can be dialed; the
// decoder assumes cfg.WSURL is already that resolved endpoint, refreshed
// by the caller out of band (KuCoin tokens are short-lived by design).
func NewKucoinAdapter(cfg Config, limiter *ratelimit.Limiter) Adapter {
	return newBaseAdapter(cfg, limiter, newKucoinDecoder, kucoinBackfill)
}

type kucoinDecoder struct {
	sink CandleSink
}

func newKucoinDecoder(sink CandleSink) Decoder { return &kucoinDecoder{sink: sink} }

func (d *kucoinDecoder) SubscribeFrames(symbols []string) ([][]byte, error) {
	frames := make([][]byte, 0, len(symbols))
	for _, s := range symbols {
		frame, err := json.Marshal(map[string]interface{}{
			"type":     "subscribe",
			"topic":    fmt.Sprintf("/market/candles:%s_1min", s),
			"response": true,
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

type kucoinCandleMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
	Data  struct {
		Symbol  string    `json:"symbol"`
		Candles [7]string `json:"candles"`
	} `json:"data"`
}

func (d *kucoinDecoder) Decode(data []byte) error {
	var msg kucoinCandleMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	if msg.Type != "message" || msg.Data.Symbol == "" {
		return nil
	}
	c := msg.Data.Candles
	timeSec := mustDecimal(c[0])
	candle := model.Candle{
		Symbol:      msg.Data.Symbol,
		Timeframe:   model.Timeframe1m,
		TimestampMS: timeSec.IntPart() * 1000,
		Open:        mustDecimal(c[1]),
		Close:       mustDecimal(c[2]),
		High:        mustDecimal(c[3]),
		Low:         mustDecimal(c[4]),
		Volume:      mustDecimal(c[5]),
		Closed:      false,
	}
	d.sink.OnCandle(context.Background(), candle)
	return nil
}

func kucoinBackfill(ctx context.Context, c *http.Client, restURL, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	typ, err := kucoinCandleType(tf)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/api/v1/market/candles?type=%s&symbol=%s&startAt=%d&endAt=%d",
		restURL, typ, symbol, sinceMS/1000, untilMS/1000)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body struct {
		Code string     `json:"code"`
		Data [][7]string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(body.Data))
	for _, r := range body.Data {
		candles = append(candles, model.Candle{
			Symbol:      symbol,
			Timeframe:   tf,
			TimestampMS: mustDecimal(r[0]).IntPart() * 1000,
			Open:        mustDecimal(r[1]),
			Close:       mustDecimal(r[2]),
			High:        mustDecimal(r[3]),
			Low:         mustDecimal(r[4]),
			Volume:      mustDecimal(r[5]),
			Closed:      true,
		})
	}
	return candles, nil
}

func kucoinCandleType(tf model.Timeframe) (string, error) {
	switch tf {
	case model.Timeframe1m:
		return "1min", nil
	case model.Timeframe5m:
		return "5min", nil
	case model.Timeframe15m:
		return "15min", nil
	case model.Timeframe30m:
		return "30min", nil
	case model.Timeframe1h:
		return "1hour", nil
	case model.Timeframe4h:
		return "4hour", nil
	case model.Timeframe1d:
		return "1day", nil
	default:
		return "", fmt.Errorf("unsupported timeframe for kucoin: %s", tf)
	}
}
