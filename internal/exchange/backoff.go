package exchange

import (
	"math"
	"math/rand"
	"time"
)

// backoffBase and backoffCap implement the min(base*2^attempt, cap) with
// +/-20% jitter reconnect schedule every adapter follows.
const (
	backoffBase = 1 * time.Second
	backoffCap  = 60 * time.Second
)

// ReconnectDelay computes the backoff schedule any Livermore retry loop
// uses: min(base*2^attempt, cap) with +/-20% jitter. Boundary
// reconciliation reuses this exact policy for its bounded retry so a
// flaky exchange backs off the same way whether the adapter's
// WebSocket or a reconciliation REST call is the thing retrying.
func ReconnectDelay(attempt int, rng *rand.Rand) time.Duration {
	d := float64(backoffBase) * math.Pow(2, float64(attempt))
	if d > float64(backoffCap) {
		d = float64(backoffCap)
	}
	jitter := 1 + (rng.Float64()*0.4 - 0.2) // +/-20%
	return time.Duration(d * jitter)
}

func reconnectDelay(attempt int, rng *rand.Rand) time.Duration {
	return ReconnectDelay(attempt, rng)
}
