package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/errkind"
	"github.com/sawpanic/livermore/internal/model"
)

func newMockRepo(t *testing.T) (*AlertRepo, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	return NewAlertRepo(sqlxDB, 5*time.Second), mock
}

func TestInsertReturnsDuplicateAlertOnUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO alerts").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	a := &model.Alert{
		ExchangeID: 1, Symbol: "BTC-USD", Timeframe: "1h", AlertType: "rsi_threshold",
		TriggeredAt: time.Now(), Price: "50000", TriggerLabel: "overbought", PreviousLabel: "neutral",
	}
	err := repo.Insert(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errkind.Is(err, errkind.DuplicateAlert))
}

func TestInsertSucceedsAndSetsID(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO alerts").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	a := &model.Alert{
		ExchangeID: 1, Symbol: "BTC-USD", Timeframe: "1h", AlertType: "rsi_threshold",
		TriggeredAt: time.Now(), Price: "50000", TriggerLabel: "overbought", PreviousLabel: "neutral",
	}
	err := repo.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, int64(42), a.ID)
}

func TestMarkNotifiedRecordsFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE alerts SET notification_sent").
		WithArgs(false, "webhook timeout", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkNotified(context.Background(), 7, assertError("webhook timeout"))
	require.NoError(t, err)
}

type testErr string

func (e testErr) Error() string { return string(e) }

func assertError(msg string) error { return testErr(msg) }
