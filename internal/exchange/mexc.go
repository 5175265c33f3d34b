package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
)

// NewMexcAdapter builds the MEXC spot adapter. MEXC's protobuf push
// channel is not exercised here; this adapter uses MEXC's plain-JSON sub
// channel, which is lower throughput but sufficient for the symbol set
// this instance tracks.
func NewMexcAdapter(cfg Config, limiter *ratelimit.Limiter) Adapter {
	return newBaseAdapter(cfg, limiter, newMexcDecoder, mexcBackfill)
}

type mexcDecoder struct {
	sink CandleSink
}

func newMexcDecoder(sink CandleSink) Decoder { return &mexcDecoder{sink: sink} }

func (d *mexcDecoder) SubscribeFrames(symbols []string) ([][]byte, error) {
	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, fmt.Sprintf("spot@public.kline.v3.api@%s@Min1", s))
	}
	frame, err := json.Marshal(map[string]interface{}{
		"method": "SUBSCRIPTION",
		"params": params,
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{frame}, nil
}

type mexcKlineMsg struct {
	Symbol string `json:"s"`
	Data   struct {
		Kline struct {
			StartMS int64  `json:"t"`
			Open    string `json:"o"`
			Close   string `json:"c"`
			High    string `json:"h"`
			Low     string `json:"l"`
			Volume  string `json:"v"`
		} `json:"k"`
	} `json:"d"`
}

func (d *mexcDecoder) Decode(data []byte) error {
	var msg mexcKlineMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	if msg.Symbol == "" {
		return nil
	}
	k := msg.Data.Kline
	candle := model.Candle{
		Symbol:      msg.Symbol,
		Timeframe:   model.Timeframe1m,
		TimestampMS: k.StartMS,
		Open:        mustDecimal(k.Open),
		Close:       mustDecimal(k.Close),
		High:        mustDecimal(k.High),
		Low:         mustDecimal(k.Low),
		Volume:      mustDecimal(k.Volume),
		Closed:      false,
	}
	d.sink.OnCandle(context.Background(), candle)
	return nil
}

func mexcBackfill(ctx context.Context, c *http.Client, restURL, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	interval, err := mexcInterval(tf)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&startTime=%d&endTime=%d&limit=1000",
		restURL, symbol, interval, sinceMS, untilMS)

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

func mexcInterval(tf model.Timeframe) (string, error) {
	switch tf {
	case model.Timeframe1m:
		return "1m", nil
	case model.Timeframe5m:
		return "5m", nil
	case model.Timeframe15m:
		return "15m", nil
	case model.Timeframe30m:
		return "30m", nil
	case model.Timeframe1h:
		return "60m", nil
	case model.Timeframe4h:
		return "4h", nil
	case model.Timeframe1d:
		return "1d", nil
	default:
		return "", fmt.Errorf("unsupported timeframe for mexc: %s", tf)
	}
}
