package cache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
)

func validCandle() model.Candle {
	return model.Candle{
		ExchangeID:  1,
		Symbol:      "BTC-USD",
		Timeframe:   model.Timeframe1m,
		TimestampMS: 60_000,
		Open:        decimal.NewFromInt(100),
		High:        decimal.NewFromInt(110),
		Low:         decimal.NewFromInt(90),
		Close:       decimal.NewFromInt(105),
		Volume:      decimal.NewFromInt(10),
		SequenceNum: 1,
		Closed:      true,
	}
}

func TestWriteCandleRejectsInvalidOHLC(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	w := NewWriter(rdb)

	bad := validCandle()
	bad.Low = decimal.NewFromInt(200) // low above high/open/close
	_, err := w.WriteCandle(context.Background(), bad)
	require.Error(t, err)
}

func TestWriteTickerSetsKeyNoTTL(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	w := NewWriter(rdb)

	tk := model.Ticker{ExchangeID: 1, Symbol: "BTC-USD", Price: decimal.NewFromInt(100), Volume24h: decimal.NewFromInt(5), UpdatedAt: 1}
	payload, err := json.Marshal(tk)
	require.NoError(t, err)

	mock.ExpectSet(cachekeys.Ticker(1, "BTC-USD"), payload, 0).SetVal("OK")

	err = w.WriteTicker(context.Background(), tk)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDelegatesToZCard(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	w := NewWriter(rdb)

	key := cachekeys.Candles(1, "BTC-USD", "1m")
	mock.ExpectZCard(key).SetVal(42)

	n, err := w.Count(context.Background(), 1, "BTC-USD", "1m")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadCandlesSkipsCorruptMembers(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	w := NewWriter(rdb)

	key := cachekeys.Candles(1, "BTC-USD", "1m")
	good, _ := json.Marshal(validCandle())
	mock.ExpectZRange(key, -10, -1).SetVal([]string{"{not json", string(good)})

	candles, err := w.ReadCandles(context.Background(), 1, "BTC-USD", "1m", 10)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, "BTC-USD", candles[0].Symbol)
	require.NoError(t, mock.ExpectationsWereMet())
}
