package publicapi

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/model"
)

func TestToCandleDTOFormatsDecimals(t *testing.T) {
	c := model.Candle{
		Symbol:      "BTC-USD",
		TimestampMS: 1700000000000,
		Open:        decimal.NewFromFloat(100.5),
		High:        decimal.NewFromFloat(101),
		Low:         decimal.NewFromFloat(99.5),
		Close:       decimal.NewFromFloat(100.75),
		Volume:      decimal.NewFromFloat(12.3),
		Closed:      true,
	}
	dto := toCandleDTO(c)
	require.Equal(t, "100.5", dto.Open)
	require.True(t, dto.Closed)
}

func TestToIndicatorDTOReflectsSeededAndNEff(t *testing.T) {
	v := model.IndicatorValue{
		Symbol: "BTC-USD", Type: "rsi", TimestampMS: 1,
		Value:  map[string]float64{"rsi": 55.5},
		Params: map[string]interface{}{"seeded": true, "n_eff": 14},
	}
	dto := toIndicatorDTO(v)
	require.True(t, dto.Seeded)
	require.Equal(t, 14, dto.NEff)
	require.Equal(t, 55.5, dto.Value["rsi"])
}

func TestToAlertDTOOmitsInternalFields(t *testing.T) {
	a := model.Alert{
		Symbol: "BTC-USD", Timeframe: "1h", AlertType: "rsi_threshold",
		Price: "50000", TriggerValue: 85, TriggerLabel: "reversal_overbought", PreviousLabel: "neutral",
		Details: map[string]interface{}{"internal": "detail"},
	}
	dto := toAlertDTO(a)
	require.Equal(t, "bearish", dto.Direction)
	require.Equal(t, "strong", dto.Strength)
	// alertDTO has no AlertType, TriggerLabel, or Details field at all —
	// compile-time enforcement that the whitelist excludes them.
	require.Equal(t, "50000", dto.Price)
}

func TestDirectionFromLabelParsesLevelSign(t *testing.T) {
	require.Equal(t, "bullish", directionFromLabel("level_1"))
	require.Equal(t, "bearish", directionFromLabel("level_-1"))
	require.Equal(t, "bullish", directionFromLabel("reversal_oversold"))
	require.Equal(t, "bearish", directionFromLabel("reversal_overbought"))
	require.Equal(t, "bearish", directionFromLabel("garbage"))
}

func TestToSymbolDTOUsesLiquidityLabelNotScore(t *testing.T) {
	s := model.ExchangeSymbol{Symbol: "ETH-USD", Rank: 2, LiquidityScore: 0.2}
	dto := toSymbolDTO(s)
	require.Equal(t, "low", dto.Liquidity)
}
