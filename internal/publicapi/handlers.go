package publicapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
	"github.com/sawpanic/livermore/internal/postgres"
)

const defaultCandlePage = 200
const defaultAlertPage = 50

// signalTimeframes are the four timeframes GET /signals inspects, in
// the order they're returned.
var signalTimeframes = []model.Timeframe{model.Timeframe15m, model.Timeframe1h, model.Timeframe4h, model.Timeframe1d}

var (
	errNotFound  = errors.New("not found")
	errNotSeeded = errors.New("indicator not yet seeded")
)

// signalRule is the subset of alert.Rule the signals endpoint needs to
// derive a direction label from a cached indicator value, without
// importing the alert package's evaluator/dispatch machinery.
type signalRule interface {
	IndicatorType() string
	Label(v model.IndicatorValue) string
}

// Handlers holds every read dependency the public API serves from. The
// cache.Writer is used only through ReadCandles; no handler writes to
// the cache or the database.
type Handlers struct {
	rdb       *redis.Client
	writer    *cache.Writer
	exchanges *postgres.ExchangeRepo
	alerts    *postgres.AlertRepo
	rules     []signalRule
}

func NewHandlers(rdb *redis.Client, writer *cache.Writer, exchanges *postgres.ExchangeRepo, alerts *postgres.AlertRepo, rules ...signalRule) *Handlers {
	return &Handlers{rdb: rdb, writer: writer, exchanges: exchanges, alerts: alerts, rules: rules}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
}

func (h *Handlers) ListExchanges(w http.ResponseWriter, r *http.Request) {
	exchanges, err := h.exchanges.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := make([]exchangeDTO, 0, len(exchanges))
	for _, e := range exchanges {
		out = append(out, toExchangeDTO(e))
	}
	writeData(w, http.StatusOK, out, &meta{Count: len(out)})
}

func (h *Handlers) ListSymbols(w http.ResponseWriter, r *http.Request) {
	ex, err := h.resolveExchange(r.Context(), mux.Vars(r)["exchange"])
	if err != nil {
		writeError(w, http.StatusNotFound, "exchange_not_found", err)
		return
	}
	symbols, err := h.exchanges.ListSymbols(r.Context(), ex.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	out := make([]symbolDTO, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, toSymbolDTO(s))
	}
	writeData(w, http.StatusOK, out, &meta{Count: len(out)})
}

func (h *Handlers) InstanceStatus(w http.ResponseWriter, r *http.Request) {
	ex, err := h.resolveExchange(r.Context(), mux.Vars(r)["exchange"])
	if err != nil {
		writeError(w, http.StatusNotFound, "exchange_not_found", err)
		return
	}

	raw, err := h.rdb.Get(r.Context(), cachekeys.InstanceStatusKey(ex.ID)).Result()
	if err == redis.Nil {
		writeData(w, http.StatusOK, instanceStatusDTO{ExchangeName: ex.Name, ConnectionState: string(model.StateOffline)}, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	var status model.InstanceStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeData(w, http.StatusOK, toInstanceStatusDTO(status), nil)
}

func (h *Handlers) Candles(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ex, err := h.resolveExchange(r.Context(), vars["exchange"])
	if err != nil {
		writeError(w, http.StatusNotFound, "exchange_not_found", err)
		return
	}

	limit := int64(defaultCandlePage)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, parseErr := strconv.ParseInt(v, 10, 64); parseErr == nil && n > 0 && n <= cache.MaxCandlesPerSeries {
			limit = n
		}
	}

	before, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cursor", err)
		return
	}

	candles, err := h.writer.ReadCandles(r.Context(), ex.ID, vars["symbol"], vars["timeframe"], cache.MaxCandlesPerSeries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	filtered := candles
	if before > 0 {
		filtered = make([]model.Candle, 0, len(candles))
		for _, c := range candles {
			if c.TimestampMS < before {
				filtered = append(filtered, c)
			}
		}
	}

	start := 0
	hasMore := false
	nextCursor := ""
	if int64(len(filtered)) > limit {
		start = len(filtered) - int(limit)
		hasMore = true
		nextCursor = encodeCursor(filtered[start].TimestampMS)
	}
	page := filtered[start:]
	out := make([]candleDTO, 0, len(page))
	for _, c := range page {
		out = append(out, toCandleDTO(c))
	}
	writeData(w, http.StatusOK, out, &meta{Count: len(out), NextCursor: nextCursor, HasMore: hasMore})
}

func (h *Handlers) Indicator(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ex, err := h.resolveExchange(r.Context(), vars["exchange"])
	if err != nil {
		writeError(w, http.StatusNotFound, "exchange_not_found", err)
		return
	}

	v, err := h.readIndicator(r.Context(), ex.ID, vars["symbol"], vars["timeframe"], vars["type"])
	if errors.Is(err, errNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	if errors.Is(err, errNotSeeded) {
		writeError(w, http.StatusNotFound, "not_seeded", err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeData(w, http.StatusOK, toIndicatorDTO(v), nil)
}

// Signals serves the generic momentum-signal view: one entry per
// (timeframe, rule) pair with a cached, seeded indicator, classified into a
// direction/strength pair instead of the raw indicator type and value.
func (h *Handlers) Signals(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ex, err := h.resolveExchange(r.Context(), vars["exchange"])
	if err != nil {
		writeError(w, http.StatusNotFound, "exchange_not_found", err)
		return
	}
	symbol := vars["symbol"]

	out := make([]signalDTO, 0, len(signalTimeframes))
	for _, tf := range signalTimeframes {
		for _, rule := range h.rules {
			v, err := h.readIndicator(r.Context(), ex.ID, symbol, string(tf), rule.IndicatorType())
			if err != nil {
				continue
			}
			out = append(out, toSignalDTO(v, rule.Label(v)))
		}
	}
	writeData(w, http.StatusOK, out, &meta{Count: len(out)})
}

// readIndicator fetches and decodes one cached indicator value, rejecting
// unseeded values the same way for every caller.
func (h *Handlers) readIndicator(ctx context.Context, exchangeID int, symbol, timeframe, indicatorType string) (model.IndicatorValue, error) {
	key := cachekeys.Indicator(exchangeID, symbol, timeframe, indicatorType)
	raw, err := h.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return model.IndicatorValue{}, errNotFound
	}
	if err != nil {
		return model.IndicatorValue{}, err
	}
	var v model.IndicatorValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return model.IndicatorValue{}, err
	}
	if !v.Seeded() {
		return model.IndicatorValue{}, errNotSeeded
	}
	return v, nil
}

func (h *Handlers) RecentAlerts(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	ex, err := h.resolveExchange(r.Context(), vars["exchange"])
	if err != nil {
		writeError(w, http.StatusNotFound, "exchange_not_found", err)
		return
	}

	limit := defaultAlertPage
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, parseErr := strconv.Atoi(v); parseErr == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	before, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cursor", err)
		return
	}

	alerts, err := h.alerts.RecentForSymbol(r.Context(), ex.ID, vars["symbol"], before, limit+1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	hasMore := len(alerts) > limit
	if hasMore {
		alerts = alerts[:limit]
	}
	out := make([]alertDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertDTO(a))
	}
	nextCursor := ""
	if hasMore {
		nextCursor = encodeCursor(alerts[len(alerts)-1].ID)
	}
	writeData(w, http.StatusOK, out, &meta{Count: len(out), NextCursor: nextCursor, HasMore: hasMore})
}

func (h *Handlers) resolveExchange(ctx context.Context, name string) (model.Exchange, error) {
	return h.exchanges.GetByName(ctx, name)
}
