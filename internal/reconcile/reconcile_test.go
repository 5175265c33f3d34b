package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/model"
)

type stubBackfiller struct {
	calls     int
	sinceMS   int64
	untilMS   int64
	failUntil int
	fetchErr  error
}

func (s *stubBackfiller) FetchHistoricalCandles(ctx context.Context, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error) {
	s.calls++
	s.sinceMS, s.untilMS = sinceMS, untilMS
	if s.calls <= s.failUntil {
		return nil, s.fetchErr
	}
	return nil, nil
}

func TestUntilNextBoundaryIsWithinOneGrid(t *testing.T) {
	d := untilNextBoundary(model.Timeframe1m)
	assert.Greater(t, d, time.Duration(0))
	assert.LessOrEqual(t, d, time.Duration(model.Timeframe1m.Millis())*time.Millisecond)
}

// Reconcile never calls the writer when the fetch returns zero candles,
// so a nil writer is safe here and lets the test isolate the fetch window.
func TestReconcileFetchesFixedDepthWindow(t *testing.T) {
	stub := &stubBackfiller{}
	r := NewReconciler(nil, stub, 1)

	grid := model.Timeframe1m.Millis()
	nowMS := time.Now().UnixMilli()
	currentBoundary := nowMS - (nowMS % grid)

	err := r.Reconcile(context.Background(), "BTC-USD", model.Timeframe1m)
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls)
	assert.Equal(t, currentBoundary-defaultReconcileDepth*grid, stub.sinceMS)
	assert.Equal(t, currentBoundary, stub.untilMS)
}

func TestReconcileRetriesUpToMaxAttempts(t *testing.T) {
	stub := &stubBackfiller{failUntil: maxReconcileAttempts, fetchErr: errors.New("rest error")}
	r := NewReconciler(nil, stub, 1)

	err := r.Reconcile(context.Background(), "BTC-USD", model.Timeframe1m)
	require.Error(t, err)
	require.Equal(t, maxReconcileAttempts, stub.calls)
}

func TestReconcileSucceedsAfterTransientFailure(t *testing.T) {
	stub := &stubBackfiller{failUntil: 1, fetchErr: errors.New("transient")}
	r := NewReconciler(nil, stub, 1)

	err := r.Reconcile(context.Background(), "BTC-USD", model.Timeframe1m)
	require.NoError(t, err)
	require.Equal(t, 2, stub.calls)
}
