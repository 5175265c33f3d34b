package indicator

import "github.com/sawpanic/livermore/internal/model"

// RSICalculator is a reference stand-in for a second derived-value type:
// an RSI over Close-to-Close deltas, using the plain average gain and
// loss across every delta in the series it is given (no Wilder
// smoothing). Period only decides when the value counts as seeded.
type RSICalculator struct {
	Period int
}

func NewRSICalculator(period int) *RSICalculator {
	return &RSICalculator{Period: period}
}

func (c *RSICalculator) Type() string { return "rsi" }

func (c *RSICalculator) Compute(candles []model.Candle) (model.IndicatorValue, bool) {
	if len(candles) < 2 {
		return model.IndicatorValue{}, false
	}

	var gainSum, lossSum float64
	for i := 1; i < len(candles); i++ {
		prev, _ := candles[i-1].Close.Float64()
		cur, _ := candles[i].Close.Float64()
		delta := cur - prev
		if delta >= 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}

	n := len(candles) - 1
	avgGain := gainSum / float64(n)
	avgLoss := lossSum / float64(n)

	var rsi float64
	switch {
	case avgLoss == 0 && avgGain == 0:
		rsi = 50
	case avgLoss == 0:
		rsi = 100
	default:
		rs := avgGain / avgLoss
		rsi = 100 - (100 / (1 + rs))
	}

	newest := candles[len(candles)-1]
	seeded := n >= c.Period

	return model.IndicatorValue{
		ExchangeID:  newest.ExchangeID,
		Symbol:      newest.Symbol,
		Timeframe:   newest.Timeframe,
		Type:        c.Type(),
		TimestampMS: newest.TimestampMS,
		Value:       map[string]float64{"rsi": rsi},
		Params: map[string]interface{}{
			"period": c.Period,
			"n_eff":  n,
			"seeded": seeded,
			"stage":  "batch",
		},
	}, true
}
