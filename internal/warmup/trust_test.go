package warmup

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redismock "github.com/go-redis/redismock/v9"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
)

func newTrustFixture(t *testing.T) (*redis.Client, redismock.ClientMock, *cache.Writer) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()
	return rdb, mock, cache.NewWriter(rdb)
}

func TestAssessTrustFullRefreshWhenHeartbeatStale(t *testing.T) {
	rdb, mock, writer := newTrustFixture(t)
	now := time.Now().UnixMilli()
	status := model.InstanceStatus{ExchangeID: 1, LastHeartbeatMS: now - int64(4*time.Hour/time.Millisecond)}
	raw, err := json.Marshal(status)
	require.NoError(t, err)
	mock.ExpectGet(cachekeys.InstanceStatusKey(1)).SetVal(string(raw))

	d, err := AssessTrust(context.Background(), rdb, writer, 1, "BTC-USD", now)
	require.NoError(t, err)
	assert.Equal(t, model.TrustFullRefresh, d.Mode)
	assert.Equal(t, "heartbeat stale", d.Reason)
}

func TestAssessTrustFullRefreshWhenSentinelEmpty(t *testing.T) {
	rdb, mock, writer := newTrustFixture(t)
	now := time.Now().UnixMilli()
	mock.ExpectGet(cachekeys.InstanceStatusKey(1)).RedisNil()
	mock.ExpectZCard(cachekeys.Candles(1, "BTC-USD", "5m")).SetVal(0)

	d, err := AssessTrust(context.Background(), rdb, writer, 1, "BTC-USD", now)
	require.NoError(t, err)
	assert.Equal(t, model.TrustFullRefresh, d.Mode)
	assert.Equal(t, "sentinel empty", d.Reason)
}

func TestAssessTrustTargetedWhenSentinelCurrent(t *testing.T) {
	rdb, mock, writer := newTrustFixture(t)
	now := time.Now().UnixMilli()
	candle := model.Candle{ExchangeID: 1, Symbol: "BTC-USD", Timeframe: model.Timeframe5m, TimestampMS: now - 60_000, SequenceNum: 1}
	payload, err := json.Marshal(candle)
	require.NoError(t, err)

	mock.ExpectGet(cachekeys.InstanceStatusKey(1)).RedisNil()
	mock.ExpectZCard(cachekeys.Candles(1, "BTC-USD", "5m")).SetVal(1)
	mock.ExpectZRevRangeByScore(cachekeys.Candles(1, "BTC-USD", "5m"), &redis.ZRangeBy{Max: "+inf", Min: "-inf", Offset: 0, Count: 1}).SetVal([]string{string(payload)})

	d, err := AssessTrust(context.Background(), rdb, writer, 1, "BTC-USD", now)
	require.NoError(t, err)
	assert.Equal(t, model.TrustTargeted, d.Mode)
}
