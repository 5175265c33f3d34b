package alert

import (
	"context"
	"testing"

	redismock "github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
)

type stubRepo struct {
	inserted []*model.Alert
}

func (s *stubRepo) Insert(ctx context.Context, a *model.Alert) error {
	a.ID = int64(len(s.inserted) + 1)
	s.inserted = append(s.inserted, a)
	return nil
}

func (s *stubRepo) MarkNotified(ctx context.Context, alertID int64, sendErr error) error { return nil }

func newTestEvaluator(repo Repo) (*Evaluator, redismock.ClientMock) {
	rdb, mock := redismock.NewClientMock()
	mock.MatchExpectationsInOrder(false)
	mock.Regexp().ExpectPublish(cachekeys.AlertsChannel(1), ".*").SetVal(0)
	return NewEvaluator(rdb, repo, NoopDispatcher{}, nil, 1, "coinbase", NewRSIRule()), mock
}

func TestEvaluateRuleSkipsFirstObservation(t *testing.T) {
	repo := &stubRepo{}
	e, _ := newTestEvaluator(repo)

	v := model.IndicatorValue{
		ExchangeID: 1, Symbol: "BTC-USD", Timeframe: model.Timeframe1m,
		Value: map[string]float64{"rsi": 80}, Params: map[string]interface{}{"seeded": true},
	}
	e.evaluateRule(context.Background(), NewRSIRule(), v)
	assert.Empty(t, repo.inserted, "first observation establishes baseline, no alert yet")
}

func TestEvaluateRuleFiresOnTransition(t *testing.T) {
	repo := &stubRepo{}
	e, _ := newTestEvaluator(repo)
	rule := NewRSIRule()

	neutral := model.IndicatorValue{ExchangeID: 1, Symbol: "BTC-USD", Timeframe: model.Timeframe1m, Value: map[string]float64{"rsi": 50}}
	e.evaluateRule(context.Background(), rule, neutral)
	require.Empty(t, repo.inserted)

	overbought := model.IndicatorValue{ExchangeID: 1, Symbol: "BTC-USD", Timeframe: model.Timeframe1m, Value: map[string]float64{"rsi": 85}}
	e.evaluateRule(context.Background(), rule, overbought)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, "neutral", repo.inserted[0].PreviousLabel)
	assert.Equal(t, "reversal_overbought", repo.inserted[0].TriggerLabel)
}

func TestEvaluateRuleSkipsRepeatedLabel(t *testing.T) {
	repo := &stubRepo{}
	e, _ := newTestEvaluator(repo)
	rule := NewRSIRule()

	v := model.IndicatorValue{ExchangeID: 1, Symbol: "BTC-USD", Timeframe: model.Timeframe1m, Value: map[string]float64{"rsi": 85}}
	e.evaluateRule(context.Background(), rule, v)
	e.evaluateRule(context.Background(), rule, v)
	assert.Len(t, repo.inserted, 1)
}
