// Package postgres holds Livermore's repositories: thin sqlx wrappers
// around the exchanges, users, api_keys, and alerts tables, each enforcing
// its own timeout. AlertRepo translates a unique-violation into
// errkind.DuplicateAlert; other driver errors are returned unclassified.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
)

// AlertRepo persists triggered alerts, relying on a unique constraint on
// (exchange_id, symbol, timeframe, alert_type, triggered_at) so a
// duplicate evaluation (the evaluator races reconciliation, or a process
// restarts mid-window) is a no-op rather than a double notification.
type AlertRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewAlertRepo(db *sqlx.DB, timeout time.Duration) *AlertRepo {
	return &AlertRepo{db: db, timeout: timeout}
}

// Insert writes one alert. A unique-violation is reported as
// errkind.DuplicateAlert rather than a generic error so the evaluator
// can treat it as "already recorded" and skip notification, not retry.
func (r *AlertRepo) Insert(ctx context.Context, a *model.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("marshal alert details: %w", err)
	}

	query := `
		INSERT INTO alerts (exchange_id, symbol, timeframe, alert_type, triggered_at,
			triggered_at_epoch, price, trigger_value, trigger_label, previous_label, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err = r.db.QueryRowxContext(ctx, query,
		a.ExchangeID, a.Symbol, a.Timeframe, a.AlertType, a.TriggeredAt,
		a.TriggeredAtEpoch, a.Price, a.TriggerValue, a.TriggerLabel, a.PreviousLabel, details,
	).Scan(&a.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errkind.New(errkind.DuplicateAlert, err)
		}
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// MarkNotified records that a notification was dispatched (or failed)
// for an alert, so an operator can see which alerts never made it out.
func (r *AlertRepo) MarkNotified(ctx context.Context, alertID int64, sendErr error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	errMsg := ""
	if sendErr != nil {
		errMsg = sendErr.Error()
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET notification_sent = $1, notification_error = $2 WHERE id = $3`,
		sendErr == nil, errMsg, alertID)
	return err
}

// RecentForSymbol returns the most recent alerts for (exchange, symbol),
// cursor-paginated by descending id rather than triggered_at — two alerts
// can share a triggered_at timestamp, but id is always strictly ordered.
// beforeID of 0 starts from the newest row.
func (r *AlertRepo) RecentForSymbol(ctx context.Context, exchangeID int, symbol string, beforeID int64, limit int) ([]model.Alert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var alerts []model.Alert
	var err error
	if beforeID > 0 {
		err = r.db.SelectContext(ctx, &alerts,
			`SELECT * FROM alerts WHERE exchange_id = $1 AND symbol = $2 AND id < $3
			 ORDER BY id DESC LIMIT $4`,
			exchangeID, symbol, beforeID, limit)
	} else {
		err = r.db.SelectContext(ctx, &alerts,
			`SELECT * FROM alerts WHERE exchange_id = $1 AND symbol = $2
			 ORDER BY id DESC LIMIT $3`,
			exchangeID, symbol, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("select recent alerts: %w", err)
	}
	return alerts, nil
}
