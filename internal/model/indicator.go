package model

// IndicatorValue is the derived-value calculator's output for one
// (exchange, symbol, timeframe, type). Only the latest value per key is
// ever cached; it is recomputed only from candles whose TimestampMS is
// <= this value's own TimestampMS.
type IndicatorValue struct {
	ExchangeID  int                    `json:"exchange_id"`
	Symbol      string                 `json:"symbol"`
	Timeframe   Timeframe              `json:"timeframe"`
	Type        string                 `json:"type"`
	TimestampMS int64                  `json:"timestamp_ms"`
	Value       map[string]float64     `json:"value"`
	Params      map[string]interface{} `json:"params"`
}

// Stage returns the opaque stage label from Params, if present.
func (v IndicatorValue) Stage() string {
	if s, ok := v.Params["stage"].(string); ok {
		return s
	}
	return ""
}

// Seeded reports whether the value has enough history behind it to be
// trusted (params.seeded); unseeded values are never surfaced publicly.
func (v IndicatorValue) Seeded() bool {
	b, _ := v.Params["seeded"].(bool)
	return b
}

// NEff returns the effective sample count behind the computation, if set.
func (v IndicatorValue) NEff() int {
	switch n := v.Params["n_eff"].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
