package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/sawpanic/livermore/internal/model"
)

// NotificationDispatcher delivers a triggered alert to an operator-facing
// channel. Delivery is best-effort: a failure is recorded against the
// alert row, never retried by the evaluator itself.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, a model.Alert) error
}

// DiscordDispatcher posts one alert per Discord webhook message. A
// gobreaker.CircuitBreaker guards the webhook independently of any
// exchange's REST circuit — a Discord outage should never be attributed
// to, or throttle, exchange data collection.
type DiscordDispatcher struct {
	webhookURL string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewDiscordDispatcher(webhookURL string) *DiscordDispatcher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "discord-webhook",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &DiscordDispatcher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
	}
}

type discordPayload struct {
	Content string `json:"content"`
}

func (d *DiscordDispatcher) Dispatch(ctx context.Context, a model.Alert) error {
	if d.webhookURL == "" {
		return nil // notifications are optional per the ambient config contract
	}

	content := fmt.Sprintf("**%s** %s/%s: %s -> %s (price %s)",
		a.AlertType, a.Symbol, a.Timeframe, a.PreviousLabel, a.TriggerLabel, a.Price)

	body, err := json.Marshal(discordPayload{Content: content})
	if err != nil {
		return err
	}

	_, err = d.breaker.Execute(func() (interface{}, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")

		resp, doErr := d.client.Do(req)
		if doErr != nil {
			return nil, doErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("discord webhook returned HTTP %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// NoopDispatcher is used when no webhook is configured, keeping the
// evaluator's code path identical whether or not notifications are wired.
type NoopDispatcher struct{}

func (NoopDispatcher) Dispatch(ctx context.Context, a model.Alert) error { return nil }
