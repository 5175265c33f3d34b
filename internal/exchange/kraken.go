package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// NewKrakenAdapter builds the Kraken adapter. Kraken's public WebSocket
// sends channel updates as a JSON array [channelID, payload, channelName,
// pair] rather than a tagged object, so Decode has to sniff the shape.
func NewKrakenAdapter(cfg Config, limiter *ratelimit.Limiter) Adapter {
	return newBaseAdapter(cfg, limiter, newKrakenDecoder, krakenBackfill)
}

type krakenDecoder struct {
	sink CandleSink
}

func newKrakenDecoder(sink CandleSink) Decoder { return &krakenDecoder{sink: sink} }

func (d *krakenDecoder) SubscribeFrames(symbols []string) ([][]byte, error) {
	frame, err := json.Marshal(map[string]interface{}{
		"event": "subscribe",
		"pair":  symbols,
		"subscription": map[string]string{
			"name":     "ohlc",
			"interval": "1",
		},
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

func (d *krakenDecoder) Decode(data []byte) error {
	var tagged struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &tagged); err == nil && tagged.Event != "" {
		return nil // heartbeat / subscriptionStatus, nothing to normalize
	}

	var arr []interface{}
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) < 4 {
		return nil
	}
	payload, ok := arr[1].([]interface{})
	if !ok || len(payload) < 8 {
		return nil
	}
	pair, _ := arr[len(arr)-1].(string)

	timeStr, _ := payload[0].(string)
	openStr, _ := payload[2].(string)
	highStr, _ := payload[3].(string)
	lowStr, _ := payload[4].(string)
	closeStr, _ := payload[5].(string)
	volStr, _ := payload[7].(string)

	timeFloat, err := strconv.ParseFloat(timeStr, 64)
	if err != nil {
		return err
	}

	candle := model.Candle{
		Symbol:      pair,
		Timeframe:   model.Timeframe1m,
		TimestampMS: int64(timeFloat) * 1000,
		Open:        mustDecimal(openStr),
		High:        mustDecimal(highStr),
		Low:         mustDecimal(lowStr),
		Close:       mustDecimal(closeStr),
		Volume:      mustDecimal(volStr),
		Closed:      false,
	}
	d.sink.OnCandle(context.Background(), candle)
	return nil
}

func krakenBackfill(ctx context.Context, c *http.Client, restURL, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	interval, err := krakenIntervalMinutes(tf)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/0/public/OHLC?pair=%s&interval=%d&since=%d", restURL, symbol, interval, sinceMS/1000)

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
		Error  []string                     `json:"error"`
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Error) > 0 {
		return nil, fmt.Errorf("kraken OHLC error: %v", body.Error)
	}

	raw, ok := body.Result[symbol]
	if !ok {
		return nil, nil
	}
	var rows [][]interface{}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		if len(r) < 7 {
			continue
		}
		ts, _ := r[0].(float64)
		open, _ := r[1].(string)
		high, _ := r[2].(string)
		low, _ := r[3].(string)
		cls, _ := r[4].(string)
		vol, _ := r[6].(string)
		ms := int64(ts) * 1000
		if ms < sinceMS || ms > untilMS {
			continue
		}
		candles = append(candles, model.Candle{
			Symbol:      symbol,
			Timeframe:   tf,
			TimestampMS: ms,
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

func krakenIntervalMinutes(tf model.Timeframe) (int, error) {
	switch tf {
	case model.Timeframe1m:
		return 1, nil
	case model.Timeframe5m:
		return 5, nil
	case model.Timeframe15m:
		return 15, nil
	case model.Timeframe30m:
		return 30, nil
	case model.Timeframe1h:
		return 60, nil
	case model.Timeframe4h:
		return 240, nil
	case model.Timeframe1d:
		return 1440, nil
	default:
		return 0, fmt.Errorf("unsupported timeframe for kraken: %s", tf)
	}
}
