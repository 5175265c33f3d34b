// Package alert implements the alert evaluator: it watches indicator
// values for label transitions (e.g. RSI crossing into overbought) and
// turns a transition into a persisted, notified alert exactly once.
package alert

import "github.com/sawpanic/livermore/internal/model"

// Rule maps one indicator's value to a discrete label. An alert fires
// only on a label *transition*, not on every evaluation — holding at
// "overbought" for ten minutes is one alert, not six hundred.
type Rule interface {
	// IndicatorType is the cachekeys.Indicator "type" segment this rule
	// watches.
	IndicatorType() string
	// AlertType is the internal classification recorded on model.Alert.
	AlertType() string
	// Label derives the discrete label from an indicator value.
	Label(v model.IndicatorValue) string
}

// RSIRule fires on RSI crossing into or out of overbought/oversold
// territory.
type RSIRule struct {
	Overbought float64
	Oversold   float64
}

func NewRSIRule() RSIRule {
	return RSIRule{Overbought: 70, Oversold: 30}
}

func (r RSIRule) IndicatorType() string { return "rsi" }
func (r RSIRule) AlertType() string     { return "rsi_threshold" }

func (r RSIRule) Label(v model.IndicatorValue) string {
	rsi := v.Value["rsi"]
	switch {
	case rsi >= r.Overbought:
		return "reversal_overbought"
	case rsi <= r.Oversold:
		return "reversal_oversold"
	default:
		return "neutral"
	}
}

// EMACrossRule fires when price crosses the EMA, a coarse trend-change signal.
type EMACrossRule struct{}

func (EMACrossRule) IndicatorType() string { return "ema" }
func (EMACrossRule) AlertType() string     { return "ema_cross" }

func (EMACrossRule) Label(v model.IndicatorValue) string {
	// Params carries the close used to compute this value so Label can
	// classify above/below without re-reading the candle series. Encoded
	// as a level label (n >= 0 above, n < 0 below) per the trigger_label
	// vocabulary the public API parses.
	closeVal, _ := v.Params["last_close"].(float64)
	ema := v.Value["ema"]
	if closeVal >= ema {
		return "level_1"
	}
	return "level_-1"
}
