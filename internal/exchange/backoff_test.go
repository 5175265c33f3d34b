package exchange

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectDelayRespectsCap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for attempt := 0; attempt < 20; attempt++ {
		d := reconnectDelay(attempt, rng)
		assert.LessOrEqual(t, d, backoffCap+backoffCap/5) // allow jitter headroom
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestReconnectDelayGrows(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d0 := reconnectDelay(0, rng)
	d3 := reconnectDelay(3, rng)
	assert.Greater(t, d3, d0)
}
