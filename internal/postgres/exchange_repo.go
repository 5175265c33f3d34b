package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/livermore/internal/model"
)

// ExchangeRepo reads the exchanges and exchange_symbols tables, both
// seeded at bootstrap and effectively read-only at runtime.
type ExchangeRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewExchangeRepo(db *sqlx.DB, timeout time.Duration) *ExchangeRepo {
	return &ExchangeRepo{db: db, timeout: timeout}
}

func (r *ExchangeRepo) List(ctx context.Context) ([]model.Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var exchanges []model.Exchange
	err := r.db.SelectContext(ctx, &exchanges, `SELECT * FROM exchanges WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	return exchanges, nil
}

func (r *ExchangeRepo) GetByName(ctx context.Context, name string) (model.Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var e model.Exchange
	err := r.db.GetContext(ctx, &e, `SELECT * FROM exchanges WHERE name = $1`, name)
	if err != nil {
		return model.Exchange{}, fmt.Errorf("get exchange %q: %w", name, err)
	}
	return e, nil
}

// ListSymbols returns an exchange's monitored universe ordered by rank,
// the same ordering the warmup schedule builder walks.
func (r *ExchangeRepo) ListSymbols(ctx context.Context, exchangeID int) ([]model.ExchangeSymbol, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var symbols []model.ExchangeSymbol
	err := r.db.SelectContext(ctx, &symbols,
		`SELECT * FROM exchange_symbols WHERE exchange_id = $1 ORDER BY rank`, exchangeID)
	if err != nil {
		return nil, fmt.Errorf("list symbols for exchange %d: %w", exchangeID, err)
	}
	return symbols, nil
}
