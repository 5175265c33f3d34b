package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/obsmetrics"
	"github.com/sawpanic/livermore/internal/postgres"
)

// Repo is the persistence surface the evaluator needs.
type Repo interface {
	Insert(ctx context.Context, a *model.Alert) error
	MarkNotified(ctx context.Context, alertID int64, sendErr error) error
}

var _ Repo = (*postgres.AlertRepo)(nil)

// Evaluator reacts to indicator values forwarded synchronously by the
// indicator scheduler — it never re-subscribes to candle-close events or
// re-reads the indicator key itself, so there is no race between the
// scheduler's cache write and the evaluator's read of the same value. It
// is single-process, in-memory stateful: the last-seen label per
// (symbol, timeframe, rule) lives only here, which is why only one
// evaluator instance should run per exchange.
type Evaluator struct {
	rdb          *redis.Client
	repo         Repo
	dispatcher   NotificationDispatcher
	metrics      *obsmetrics.Registry
	exchangeID   int
	exchangeName string
	rules        []Rule

	mu        sync.Mutex
	lastLabel map[string]string
}

func NewEvaluator(rdb *redis.Client, repo Repo, dispatcher NotificationDispatcher, metrics *obsmetrics.Registry, exchangeID int, exchangeName string, rules ...Rule) *Evaluator {
	return &Evaluator{
		rdb:          rdb,
		repo:         repo,
		dispatcher:   dispatcher,
		metrics:      metrics,
		exchangeID:   exchangeID,
		exchangeName: exchangeName,
		rules:        rules,
		lastLabel:    make(map[string]string),
	}
}

// Evaluate is the indicator scheduler's synchronous forwarding call: it
// runs every rule that watches v's indicator type against the value the
// scheduler just computed and wrote, with no independent cache read.
func (e *Evaluator) Evaluate(ctx context.Context, v model.IndicatorValue) {
	if !v.Seeded() {
		return // unseeded values never drive an alert
	}
	for _, rule := range e.rules {
		if rule.IndicatorType() != v.Type {
			continue
		}
		e.evaluateRule(ctx, rule, v)
	}
}

func (e *Evaluator) evaluateRule(ctx context.Context, rule Rule, v model.IndicatorValue) {
	label := rule.Label(v)
	stateKey := fmt.Sprintf("%d:%s:%s:%s", v.ExchangeID, v.Symbol, v.Timeframe, rule.IndicatorType())

	e.mu.Lock()
	previous, known := e.lastLabel[stateKey]
	e.lastLabel[stateKey] = label
	e.mu.Unlock()

	if !known || previous == label {
		return // no transition, no alert
	}

	triggerValue := 0.0
	for _, fv := range v.Value {
		triggerValue = fv
		break
	}

	alert := &model.Alert{
		ExchangeID:       v.ExchangeID,
		Symbol:           v.Symbol,
		Timeframe:        string(v.Timeframe),
		AlertType:        rule.AlertType(),
		TriggeredAt:      time.UnixMilli(v.TimestampMS),
		TriggeredAtEpoch: v.TimestampMS,
		TriggerValue:     triggerValue,
		TriggerLabel:     label,
		PreviousLabel:    previous,
		Details:          map[string]interface{}{"indicator_params": v.Params},
	}

	if err := e.repo.Insert(ctx, alert); err != nil {
		if errkind.Is(err, errkind.DuplicateAlert) {
			if e.metrics != nil {
				e.metrics.AlertsDuplicateTotal.WithLabelValues(e.exchangeName).Inc()
			}
			return
		}
		log.Error().Err(err).Str("symbol", v.Symbol).Msg("failed to persist alert")
		return
	}

	if e.metrics != nil {
		e.metrics.AlertsTriggeredTotal.WithLabelValues(e.exchangeName, rule.AlertType()).Inc()
	}

	if err := e.publish(ctx, *alert); err != nil {
		log.Error().Err(err).Str("symbol", v.Symbol).Msg("failed to publish alert to cross-exchange bus")
	}

	sendErr := e.dispatcher.Dispatch(ctx, *alert)
	if sendErr != nil {
		log.Warn().Err(sendErr).Str("symbol", v.Symbol).Msg("alert notification dispatch failed")
	}
	if err := e.repo.MarkNotified(ctx, alert.ID, sendErr); err != nil {
		log.Error().Err(err).Msg("failed to record notification outcome")
	}
}

// publish broadcasts a triggered alert on the cross-exchange alert bus
// so other instances (and the operator UI) learn about it without
// polling Postgres.
func (e *Evaluator) publish(ctx context.Context, a model.Alert) error {
	payload, err := json.Marshal(model.PubSubAlert{
		Alert:              a,
		SourceExchangeID:   e.exchangeID,
		SourceExchangeName: e.exchangeName,
	})
	if err != nil {
		return err
	}
	return e.rdb.Publish(ctx, cachekeys.AlertsChannel(e.exchangeID), payload).Err()
}
