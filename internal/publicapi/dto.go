package publicapi

import (
	"strconv"
	"strings"

	"github.com/sawpanic/livermore/internal/model"
)

// Every type in this file is an explicit whitelist transform: the public
// API never marshals an internal model type directly, so a field added
// to model.Alert or model.InstanceStatus for internal use does not leak
// across the public boundary by accident.

type candleDTO struct {
	TimestampMS int64  `json:"timestamp_ms"`
	Open        string `json:"open"`
	High        string `json:"high"`
	Low         string `json:"low"`
	Close       string `json:"close"`
	Volume      string `json:"volume"`
	Closed      bool   `json:"closed"`
}

func toCandleDTO(c model.Candle) candleDTO {
	return candleDTO{
		TimestampMS: c.TimestampMS,
		Open:        c.Open.String(),
		High:        c.High.String(),
		Low:         c.Low.String(),
		Close:       c.Close.String(),
		Volume:      c.Volume.String(),
		Closed:      c.Closed,
	}
}

type candlesResponse struct {
	Symbol    string      `json:"symbol"`
	Timeframe string      `json:"timeframe"`
	Candles   []candleDTO `json:"candles"`
	Cursor    string      `json:"next_cursor,omitempty"`
}

// indicatorDTO never carries the internal indicator "type" string — it
// appears only in the Redis key that selected this value, never in the
// response body.
type indicatorDTO struct {
	Symbol      string             `json:"symbol"`
	Timeframe   string             `json:"timeframe"`
	TimestampMS int64              `json:"timestamp_ms"`
	Value       map[string]float64 `json:"value"`
	Seeded      bool               `json:"seeded"`
	NEff        int                `json:"n_eff"`
}

func toIndicatorDTO(v model.IndicatorValue) indicatorDTO {
	return indicatorDTO{
		Symbol:      v.Symbol,
		Timeframe:   string(v.Timeframe),
		TimestampMS: v.TimestampMS,
		Value:       v.Value,
		Seeded:      v.Seeded(),
		NEff:        v.NEff(),
	}
}

// directionFromLabel applies the trigger_label parsing rule shared by
// alerts and momentum signals: reversal_oversold and reversal_overbought
// are explicit, a level_{n} label reads its sign, "neutral" stays
// neutral, and anything else is bearish.
func directionFromLabel(label string) string {
	switch {
	case label == "reversal_oversold":
		return "bullish"
	case label == "reversal_overbought":
		return "bearish"
	case label == "neutral":
		return "neutral"
	case strings.HasPrefix(label, "level_"):
		n, err := strconv.Atoi(strings.TrimPrefix(label, "level_"))
		if err == nil && n >= 0 {
			return "bullish"
		}
		return "bearish"
	default:
		return "bearish"
	}
}

// strengthFromMagnitude buckets a triggering value's absolute magnitude
// into a coarse public label, independent of which indicator produced it.
func strengthFromMagnitude(v float64) string {
	m := v
	if m < 0 {
		m = -m
	}
	switch {
	case m < 30:
		return "weak"
	case m < 80:
		return "moderate"
	case m < 150:
		return "strong"
	default:
		return "extreme"
	}
}

// alertDTO deliberately omits model.Alert.AlertType, Details, and the
// notification bookkeeping fields — only the derived label transition
// and its price context are public. Direction and strength are derived,
// never the raw internal trigger_label vocabulary.
type alertDTO struct {
	Symbol           string `json:"symbol"`
	Timeframe        string `json:"timeframe"`
	TriggeredAtEpoch int64  `json:"triggered_at_epoch"`
	Price            string `json:"price"`
	Direction        string `json:"direction"`
	Strength         string `json:"strength"`
}

func toAlertDTO(a model.Alert) alertDTO {
	return alertDTO{
		Symbol:           a.Symbol,
		Timeframe:        a.Timeframe,
		TriggeredAtEpoch: a.TriggeredAtEpoch,
		Price:            a.Price,
		Direction:        directionFromLabel(a.TriggerLabel),
		Strength:         strengthFromMagnitude(a.TriggerValue),
	}
}

// signalDTO is the momentum-signal shape served by GET /signals — the
// indicator's internal type string never appears in it.
type signalDTO struct {
	Type        string `json:"type"`
	Timeframe   string `json:"timeframe"`
	TimestampMS int64  `json:"timestamp_ms"`
	Direction   string `json:"direction"`
	Strength    string `json:"strength"`
}

func toSignalDTO(v model.IndicatorValue, label string) signalDTO {
	var magnitude float64
	for _, fv := range v.Value {
		magnitude = fv
		break
	}
	return signalDTO{
		Type:        "momentum_signal",
		Timeframe:   string(v.Timeframe),
		TimestampMS: v.TimestampMS,
		Direction:   directionFromLabel(label),
		Strength:    strengthFromMagnitude(magnitude),
	}
}

// instanceStatusDTO omits AdminEmail/AdminDisplayName and the raw IP —
// operator contact details are not public information.
type instanceStatusDTO struct {
	ExchangeName      string `json:"exchange_name"`
	ConnectionState   string `json:"connection_state"`
	SymbolCount       int    `json:"symbol_count"`
	LastHeartbeatMS   int64  `json:"last_heartbeat_ms"`
	LastStateChangeMS int64  `json:"last_state_change_ms"`
}

func toInstanceStatusDTO(s model.InstanceStatus) instanceStatusDTO {
	return instanceStatusDTO{
		ExchangeName:      s.ExchangeName,
		ConnectionState:   string(s.ConnectionState),
		SymbolCount:       s.SymbolCount,
		LastHeartbeatMS:   s.LastHeartbeatMS,
		LastStateChangeMS: s.LastStateChangeMS,
	}
}

type exchangeDTO struct {
	Name                string   `json:"name"`
	DisplayName         string   `json:"display_name"`
	SupportedTimeframes []string `json:"supported_timeframes"`
}

func toExchangeDTO(e model.Exchange) exchangeDTO {
	return exchangeDTO{
		Name:                e.Name,
		DisplayName:         e.DisplayName,
		SupportedTimeframes: e.SupportedTimeframes,
	}
}

// symbolDTO surfaces the liquidity band rather than the raw score —
// the score itself is an internal ranking signal.
type symbolDTO struct {
	Symbol    string `json:"symbol"`
	Rank      int    `json:"rank"`
	Liquidity string `json:"liquidity"`
}

func toSymbolDTO(s model.ExchangeSymbol) symbolDTO {
	return symbolDTO{
		Symbol:    s.Symbol,
		Rank:      s.Rank,
		Liquidity: s.LiquidityLabel(),
	}
}
