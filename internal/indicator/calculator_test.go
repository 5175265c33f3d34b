package indicator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/model"
)

func candleSeries(closes ...int64) []model.Candle {
	candles := make([]model.Candle, 0, len(closes))
	for i, c := range closes {
		d := decimal.NewFromInt(c)
		candles = append(candles, model.Candle{
			ExchangeID:  1,
			Symbol:      "BTC-USD",
			Timeframe:   model.Timeframe1m,
			TimestampMS: int64(i) * 60_000,
			Open:        d,
			High:        d,
			Low:         d,
			Close:       d,
		})
	}
	return candles
}

func TestEMACalculatorMarksUnseededBelowPeriod(t *testing.T) {
	calc := NewEMACalculator(10)
	v, ok := calc.Compute(candleSeries(100, 101, 102))
	require.True(t, ok)
	assert.False(t, v.Seeded())
	assert.Equal(t, 3, v.NEff())
}

func TestEMACalculatorSeededAtPeriod(t *testing.T) {
	calc := NewEMACalculator(3)
	v, ok := calc.Compute(candleSeries(100, 101, 102, 103))
	require.True(t, ok)
	assert.True(t, v.Seeded())
}

func TestRSICalculatorAllGainsIsHundred(t *testing.T) {
	calc := NewRSICalculator(3)
	v, ok := calc.Compute(candleSeries(100, 101, 102, 103, 104))
	require.True(t, ok)
	assert.InDelta(t, 100, v.Value["rsi"], 0.001)
}

func TestRSICalculatorNeedsAtLeastTwoCandles(t *testing.T) {
	calc := NewRSICalculator(3)
	_, ok := calc.Compute(candleSeries(100))
	assert.False(t, ok)
}
