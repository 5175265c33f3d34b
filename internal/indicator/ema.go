package indicator

import "github.com/sawpanic/livermore/internal/model"

// EMACalculator is a reference stand-in for the derived-value
// calculator contract: an exponential moving average over Close,
// unseeded (n_eff < period) values are marked as such so the public API
// can withhold them.
type EMACalculator struct {
	Period int
}

func NewEMACalculator(period int) *EMACalculator {
	return &EMACalculator{Period: period}
}

func (c *EMACalculator) Type() string { return "ema" }

func (c *EMACalculator) Compute(candles []model.Candle) (model.IndicatorValue, bool) {
	if len(candles) == 0 {
		return model.IndicatorValue{}, false
	}

	alpha := 2.0 / (float64(c.Period) + 1)
	ema, _ := candles[0].Close.Float64()
	for _, c := range candles[1:] {
		closeF, _ := c.Close.Float64()
		ema = alpha*closeF + (1-alpha)*ema
	}

	newest := candles[len(candles)-1]
	nEff := len(candles)
	seeded := nEff >= c.Period
	lastClose, _ := newest.Close.Float64()

	return model.IndicatorValue{
		ExchangeID:  newest.ExchangeID,
		Symbol:      newest.Symbol,
		Timeframe:   newest.Timeframe,
		Type:        c.Type(),
		TimestampMS: newest.TimestampMS,
		Value:       map[string]float64{"ema": ema},
		Params: map[string]interface{}{
			"period":     c.Period,
			"n_eff":      nEff,
			"seeded":     seeded,
			"stage":      "incremental",
			"last_close": lastClose,
		},
	}, true
}
