package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/net/budget"
	"github.com/sawpanic/livermore/internal/net/circuit"
	"github.com/sawpanic/livermore/internal/net/ratelimit"
	"github.com/sawpanic/livermore/internal/obsmetrics"
)

// ProviderError records which layer of a REST call failed (budget, rate
// limit, transport, or HTTP status). It is not an errkind.Error, so
// errkind.Retryable and errkind.Fatal report false for it.
type ProviderError struct {
	Exchange   string
	Type       string // "rate_limit", "budget", "transport", "http_error"
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (HTTP %d): %v", e.Exchange, e.Type, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Exchange, e.Type, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// restTransport wraps the default transport with an optional daily
// budget, rate limiting, and a circuit breaker, in that order — a
// request that would exceed the budget never touches the limiter.
type restTransport struct {
	exchangeName string
	host         string
	limiter      *ratelimit.Limiter
	breaker      *circuit.Breaker
	budget       *budget.Tracker
	metrics      *obsmetrics.Registry
	inner        http.RoundTripper
}

func newRESTTransport(exchangeName, host string, limiter *ratelimit.Limiter, breaker *circuit.Breaker, tracker *budget.Tracker, metrics *obsmetrics.Registry) *restTransport {
	return &restTransport{
		exchangeName: exchangeName,
		host:         host,
		limiter:      limiter,
		breaker:      breaker,
		budget:       tracker,
		metrics:      metrics,
		inner:        http.DefaultTransport,
	}
}

func (t *restTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", "Livermore/1.0 (+market-data-plane)")
	}

	if t.budget != nil {
		if err := t.budget.Consume(); err != nil {
			var exhausted *budget.BudgetExhaustedError
			if errors.As(err, &exhausted) {
				return nil, &ProviderError{Exchange: t.exchangeName, Type: "budget", Err: err}
			}
			log.Warn().Err(err).Str("exchange", t.exchangeName).Msg("daily REST budget warning")
		}
	}

	if t.limiter != nil {
		waitStart := time.Now()
		err := t.limiter.Wait(req.Context(), t.host)
		if t.metrics != nil {
			t.metrics.RateLimitWaitTime.WithLabelValues(t.exchangeName).Observe(time.Since(waitStart).Seconds())
		}
		if err != nil {
			return nil, &ProviderError{Exchange: t.exchangeName, Type: "rate_limit", Err: err}
		}
	}

	if t.breaker != nil && t.breaker.State() == circuit.StateOpen && t.metrics != nil {
		t.metrics.CircuitOpenTotal.WithLabelValues(t.exchangeName).Inc()
	}

	var resp *http.Response
	call := func(ctx context.Context) error {
		var err error
		resp, err = t.inner.RoundTrip(req.WithContext(ctx))
		if err != nil {
			return &ProviderError{Exchange: t.exchangeName, Type: "transport", Err: err}
		}
		if resp.StatusCode >= 400 {
			return &ProviderError{Exchange: t.exchangeName, Type: "http_error", StatusCode: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
		}
		return nil
	}

	var err error
	if t.breaker != nil {
		err = t.breaker.Call(req.Context(), call)
	} else {
		err = call(req.Context())
	}

	if t.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		t.metrics.RESTRequestsTotal.WithLabelValues(t.exchangeName, outcome).Inc()
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// NewRESTClient builds an *http.Client wired with rate limiting, a
// circuit breaker, an optional daily request budget, and a timeout, for
// one exchange's REST calls. dailyBudget of 0 disables budget tracking.
func NewRESTClient(exchangeName, host string, limiter *ratelimit.Limiter, timeout time.Duration, dailyBudget int64, budgetResetHour int, metrics *obsmetrics.Registry) *http.Client {
	breaker := circuit.NewBreaker(circuit.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		RequestTimeout:   timeout,
	})

	var tracker *budget.Tracker
	if dailyBudget > 0 {
		tracker = budget.NewTracker(dailyBudget, budgetResetHour, 0.8)
	}

	return &http.Client{
		Transport: newRESTTransport(exchangeName, host, limiter, breaker, tracker, metrics),
		Timeout:   timeout,
	}
}
