package publicapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	redismock "github.com/go-redis/redismock/v9"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/livermore/internal/alert"
	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/postgres"
)

func newTestHandlers(t *testing.T) (*Handlers, redismock.ClientMock, sqlmock.Sqlmock, sqlmock.Sqlmock) {
	t.Helper()
	rdb, rmock := redismock.NewClientMock()

	exDB, exMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { exDB.Close() })
	exchanges := postgres.NewExchangeRepo(sqlx.NewDb(exDB, "postgres"), 5*time.Second)

	alertDB, alertMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { alertDB.Close() })
	alerts := postgres.NewAlertRepo(sqlx.NewDb(alertDB, "postgres"), 5*time.Second)

	writer := cache.NewWriter(rdb)
	return NewHandlers(rdb, writer, exchanges, alerts, alert.NewRSIRule(), alert.EMACrossRule{}), rmock, exMock, alertMock
}

func decodeEnvelope(t *testing.T, body []byte, into interface{}) envelope {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Meta    *meta           `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	if into != nil {
		require.NoError(t, json.Unmarshal(raw.Data, into))
	}
	return envelope{Success: raw.Success, Meta: raw.Meta}
}

func TestHealthHandler(t *testing.T) {
	h, _, _, _ := newTestHandlers(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestInstanceStatusReturnsOfflineOnMiss(t *testing.T) {
	h, rmock, exMock, _ := newTestHandlers(t)

	exMock.ExpectQuery("SELECT \\* FROM exchanges WHERE name = \\$1").
		WithArgs("coinbase").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "display_name", "ws_url", "rest_url",
			"supported_timeframes", "api_limits", "fee_schedule", "geo_restrictions", "is_active",
		}).AddRow(1, "coinbase", "Coinbase", "wss://x", "https://x", `{}`, `{}`, `{}`, `{}`, true))

	rmock.ExpectGet(cachekeys.InstanceStatusKey(1)).RedisNil()

	req := httptest.NewRequest(http.MethodGet, "/public/v1/exchanges/coinbase/status", nil)
	req = mux.SetURLVars(req, map[string]string{"exchange": "coinbase"})
	rec := httptest.NewRecorder()
	h.InstanceStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var dto instanceStatusDTO
	decodeEnvelope(t, rec.Body.Bytes(), &dto)
	require.Equal(t, string(model.StateOffline), dto.ConnectionState)
}

func TestIndicatorReturns404WhenUnseeded(t *testing.T) {
	h, rmock, exMock, _ := newTestHandlers(t)

	exMock.ExpectQuery("SELECT \\* FROM exchanges WHERE name = \\$1").
		WithArgs("coinbase").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "display_name", "ws_url", "rest_url",
			"supported_timeframes", "api_limits", "fee_schedule", "geo_restrictions", "is_active",
		}).AddRow(1, "coinbase", "Coinbase", "wss://x", "https://x", `{}`, `{}`, `{}`, `{}`, true))

	v := model.IndicatorValue{Symbol: "BTC-USD", Type: "rsi", Params: map[string]interface{}{"seeded": false}}
	raw, _ := json.Marshal(v)
	key := cachekeys.Indicator(1, "BTC-USD", "1h", "rsi")
	rmock.ExpectGet(key).SetVal(string(raw))

	req := httptest.NewRequest(http.MethodGet, "/public/v1/exchanges/coinbase/indicators/BTC-USD/1h/rsi", nil)
	req = mux.SetURLVars(req, map[string]string{"exchange": "coinbase", "symbol": "BTC-USD", "timeframe": "1h", "type": "rsi"})
	rec := httptest.NewRecorder()
	h.Indicator(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentAlertsDelegatesToRepo(t *testing.T) {
	h, _, exMock, alertMock := newTestHandlers(t)

	exMock.ExpectQuery("SELECT \\* FROM exchanges WHERE name = \\$1").
		WithArgs("coinbase").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "display_name", "ws_url", "rest_url",
			"supported_timeframes", "api_limits", "fee_schedule", "geo_restrictions", "is_active",
		}).AddRow(1, "coinbase", "Coinbase", "wss://x", "https://x", `{}`, `{}`, `{}`, `{}`, true))

	alertMock.ExpectQuery("SELECT \\* FROM alerts WHERE exchange_id = \\$1 AND symbol = \\$2").
		WithArgs(1, "BTC-USD", 51).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "exchange_id", "symbol", "timeframe", "alert_type", "triggered_at",
			"triggered_at_epoch", "price", "trigger_value", "trigger_label", "previous_label",
			"details", "notification_sent", "notification_error",
		}).AddRow(int64(1), 1, "BTC-USD", "1h", "rsi_threshold", time.Now(),
			int64(1700000000), "50000", 85.0, "reversal_overbought", "neutral", []byte(`{}`), true, ""))

	req := httptest.NewRequest(http.MethodGet, "/public/v1/exchanges/coinbase/alerts/BTC-USD", nil)
	req = mux.SetURLVars(req, map[string]string{"exchange": "coinbase", "symbol": "BTC-USD"})
	rec := httptest.NewRecorder()
	h.RecentAlerts(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out []alertDTO
	decodeEnvelope(t, rec.Body.Bytes(), &out)
	require.Len(t, out, 1)
	require.Equal(t, "bearish", out[0].Direction)
}
