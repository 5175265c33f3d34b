package warmup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/model"
)

func TestBuildScheduleSeparatesSufficientFromNeedsFetching(t *testing.T) {
	results := []model.ScanResult{
		{Symbol: "BTC-USD", Timeframe: model.Timeframe1m, Sufficient: true, Reason: model.ReasonOK},
		{Symbol: "ETH-USD", Timeframe: model.Timeframe1m, Sufficient: false, Reason: model.ReasonLowCount, CachedCount: 10},
	}

	schedule := BuildSchedule(1, model.TrustTargeted, results, 1_000)

	assert.Equal(t, 2, schedule.TotalPairs)
	assert.Equal(t, 1, schedule.SufficientPairs)
	assert.Equal(t, 1, schedule.NeedsFetching)
	require.Len(t, schedule.Entries, 1)
	assert.Equal(t, "ETH-USD", schedule.Entries[0].Symbol)
	assert.Equal(t, DefaultTargetCount, schedule.Entries[0].TargetCount)
}
