package warmup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
)

// heartbeatStaleAfter is how old exchange:{id}:status's last_heartbeat
// can be before the assessor treats the instance's own signal as
// untrustworthy, independent of anything it finds in the cache.
const heartbeatStaleAfter = 3 * time.Hour

// sentinelStaleAfter is how old the sentinel symbol's newest 5m candle
// can be before the cache itself is judged stale.
const sentinelStaleAfter = 20 * time.Minute

// AssessTrust decides whether an exchange's cache deserves a narrow
// targeted top-up or a ground-up full_refresh, from the exchange's own
// status key and the #1-ranked (sentinel) symbol's 5m series. A cache
// is not worth patching incrementally when the instance itself has been
// silent for a long time, or when the one series every other decision
// is calibrated against is empty or stale.
func AssessTrust(ctx context.Context, rdb *redis.Client, writer *cache.Writer, exchangeID int, sentinel string, nowMS int64) (model.TrustDecision, error) {
	raw, err := rdb.Get(ctx, cachekeys.InstanceStatusKey(exchangeID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		// Missing status key (45s TTL) is not evidence of bad data on
		// its own — a brief restart looks identical. Fall through to
		// the sentinel check.
		log.Info().Int("exchange_id", exchangeID).Msg("cache trust: no status key, falling through to sentinel check")
	case err != nil:
		return model.TrustDecision{}, err
	default:
		var status model.InstanceStatus
		if err := json.Unmarshal(raw, &status); err != nil {
			return model.TrustDecision{}, err
		}
		if age := time.Duration(nowMS-status.LastHeartbeatMS) * time.Millisecond; age > heartbeatStaleAfter {
			return model.TrustDecision{Mode: model.TrustFullRefresh, Reason: "heartbeat stale"}, nil
		}
	}

	count, err := writer.Count(ctx, exchangeID, sentinel, string(model.Timeframe5m))
	if err != nil {
		return model.TrustDecision{}, err
	}
	if count == 0 {
		return model.TrustDecision{Mode: model.TrustFullRefresh, Reason: "sentinel empty"}, nil
	}

	newest, ok, err := writer.Newest(ctx, exchangeID, sentinel, string(model.Timeframe5m))
	if err != nil {
		return model.TrustDecision{}, err
	}
	if ok {
		age := time.Duration(nowMS-newest.TimestampMS) * time.Millisecond
		if age > sentinelStaleAfter {
			return model.TrustDecision{Mode: model.TrustFullRefresh, Reason: "sentinel stale"}, nil
		}
	}

	return model.TrustDecision{Mode: model.TrustTargeted, Reason: "sentinel current"}, nil
}
