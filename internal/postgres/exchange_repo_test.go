package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newExchangeMockRepo(t *testing.T) (*ExchangeRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	return NewExchangeRepo(sqlxDB, 5*time.Second), mock
}

func TestGetByNameReturnsExchangeRow(t *testing.T) {
	repo, mock := newExchangeMockRepo(t)

	rows := sqlmock.NewRows([]string{
		"id", "name", "display_name", "ws_url", "rest_url",
		"supported_timeframes", "api_limits", "fee_schedule", "geo_restrictions", "is_active",
	}).AddRow(1, "coinbase", "Coinbase", "wss://ws.example", "https://api.example",
		`{1m,5m,1h}`, `{}`, `{}`, `{}`, true)

	mock.ExpectQuery("SELECT \\* FROM exchanges WHERE name = \\$1").
		WithArgs("coinbase").
		WillReturnRows(rows)

	e, err := repo.GetByName(context.Background(), "coinbase")
	require.NoError(t, err)
	require.Equal(t, "coinbase", e.Name)
	require.True(t, e.IsActive)
}

func TestListSymbolsOrdersByRank(t *testing.T) {
	repo, mock := newExchangeMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "exchange_id", "symbol", "rank", "volume_24h", "market_cap", "liquidity_score"}).
		AddRow(int64(1), 1, "BTC-USD", 1, 1_000_000.0, 1_000_000_000.0, 0.9).
		AddRow(int64(2), 1, "ETH-USD", 2, 500_000.0, 400_000_000.0, 0.7)

	mock.ExpectQuery("SELECT \\* FROM exchange_symbols WHERE exchange_id = \\$1 ORDER BY rank").
		WithArgs(1).
		WillReturnRows(rows)

	symbols, err := repo.ListSymbols(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	require.Equal(t, "BTC-USD", symbols[0].Symbol)
	require.Equal(t, "high", symbols[0].LiquidityLabel())
}
