// Package obsmetrics holds Livermore's Prometheus metrics registry. One
// Registry is constructed at boot and threaded into every subsystem that
// needs to record a measurement.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric Livermore exports.
type Registry struct {
	CandleWriteLatency *prometheus.HistogramVec
	CandleWritesTotal  *prometheus.CounterVec

	WarmupDuration  *prometheus.HistogramVec
	WarmupSymbols   *prometheus.GaugeVec
	TrustDecisions  *prometheus.CounterVec

	ReconcileBackfills *prometheus.CounterVec
	ReconcileGapCandles *prometheus.HistogramVec

	IndicatorComputeLatency *prometheus.HistogramVec
	IndicatorErrorsTotal    *prometheus.CounterVec

	AlertsTriggeredTotal *prometheus.CounterVec
	AlertsDuplicateTotal *prometheus.CounterVec

	WSReconnectsTotal *prometheus.CounterVec
	RESTRequestsTotal *prometheus.CounterVec
	CircuitOpenTotal  *prometheus.CounterVec
	RateLimitWaitTime *prometheus.HistogramVec

	InstanceState *prometheus.GaugeVec

	HTTPRequestDuration *prometheus.HistogramVec
}

// New builds and registers every metric against the default registerer.
func New() *Registry {
	r := &Registry{
		CandleWriteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livermore_candle_write_latency_seconds",
				Help:    "Time to apply one candle write to the cache.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
			[]string{"exchange", "timeframe"},
		),
		CandleWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_candle_writes_total",
				Help: "Candle writes by outcome (applied, stale, invalid).",
			},
			[]string{"exchange", "timeframe", "outcome"},
		),
		WarmupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livermore_warmup_duration_seconds",
				Help:    "Wall-clock duration of a warmup run.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"exchange", "mode"},
		),
		WarmupSymbols: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "livermore_warmup_symbols_remaining",
				Help: "Symbols left in the active warmup schedule.",
			},
			[]string{"exchange"},
		),
		TrustDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_trust_decisions_total",
				Help: "Cache-trust assessments by decided mode.",
			},
			[]string{"exchange", "mode"},
		),
		ReconcileBackfills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_reconcile_backfills_total",
				Help: "Boundary reconciliation backfills performed.",
			},
			[]string{"exchange", "timeframe"},
		),
		ReconcileGapCandles: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livermore_reconcile_gap_candles",
				Help:    "Number of candles filled per reconciliation gap.",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
			},
			[]string{"exchange", "timeframe"},
		),
		IndicatorComputeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livermore_indicator_compute_latency_seconds",
				Help:    "Time to compute one indicator value.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"symbol", "timeframe", "indicator"},
		),
		IndicatorErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_indicator_errors_total",
				Help: "Indicator computation errors by indicator type.",
			},
			[]string{"symbol", "indicator"},
		),
		AlertsTriggeredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_alerts_triggered_total",
				Help: "Alerts triggered by type.",
			},
			[]string{"exchange", "alert_type"},
		),
		AlertsDuplicateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_alerts_duplicate_total",
				Help: "Alert inserts rejected as duplicates by the unique constraint.",
			},
			[]string{"exchange"},
		),
		WSReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_ws_reconnects_total",
				Help: "WebSocket adapter reconnect attempts.",
			},
			[]string{"exchange"},
		),
		RESTRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_rest_requests_total",
				Help: "REST calls to an exchange by outcome.",
			},
			[]string{"exchange", "outcome"},
		),
		CircuitOpenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livermore_circuit_open_total",
				Help: "Times a circuit breaker tripped open.",
			},
			[]string{"exchange"},
		),
		RateLimitWaitTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livermore_rate_limit_wait_seconds",
				Help:    "Time spent waiting on the token bucket before a request.",
				Buckets: []float64{0, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"exchange"},
		),
		InstanceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "livermore_instance_state",
				Help: "1 if the exchange instance currently reports the given state.",
			},
			[]string{"exchange", "state"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livermore_http_request_duration_seconds",
				Help:    "Public API request duration.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	prometheus.MustRegister(
		r.CandleWriteLatency, r.CandleWritesTotal,
		r.WarmupDuration, r.WarmupSymbols, r.TrustDecisions,
		r.ReconcileBackfills, r.ReconcileGapCandles,
		r.IndicatorComputeLatency, r.IndicatorErrorsTotal,
		r.AlertsTriggeredTotal, r.AlertsDuplicateTotal,
		r.WSReconnectsTotal, r.RESTRequestsTotal, r.CircuitOpenTotal, r.RateLimitWaitTime,
		r.InstanceState,
		r.HTTPRequestDuration,
	)
	return r
}

// Handler exposes the metrics endpoint for the public API server to mount.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
