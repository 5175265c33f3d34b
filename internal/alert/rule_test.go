package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/livermore/internal/model"
)

func TestRSIRuleLabels(t *testing.T) {
	rule := NewRSIRule()
	assert.Equal(t, "reversal_overbought", rule.Label(model.IndicatorValue{Value: map[string]float64{"rsi": 85}}))
	assert.Equal(t, "reversal_oversold", rule.Label(model.IndicatorValue{Value: map[string]float64{"rsi": 10}}))
	assert.Equal(t, "neutral", rule.Label(model.IndicatorValue{Value: map[string]float64{"rsi": 50}}))
}

func TestEMACrossRuleLabels(t *testing.T) {
	rule := EMACrossRule{}
	above := rule.Label(model.IndicatorValue{
		Value:  map[string]float64{"ema": 100},
		Params: map[string]interface{}{"last_close": 105.0},
	})
	assert.Equal(t, "level_1", above)

	below := rule.Label(model.IndicatorValue{
		Value:  map[string]float64{"ema": 100},
		Params: map[string]interface{}{"last_close": 95.0},
	})
	assert.Equal(t, "level_-1", below)
}
