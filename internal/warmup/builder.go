package warmup

import "github.com/sawpanic/livermore/internal/model"

// DefaultTargetCount is the backfill depth every schedule entry asks
// for, regardless of timeframe.
const DefaultTargetCount = 100

// BuildSchedule turns a candle-status scan into the persisted plan of
// REST fetches a warmup run will execute, in the same longest-timeframe-
// first order the scanner walked.
func BuildSchedule(exchangeID int, mode model.TrustMode, results []model.ScanResult, nowMS int64) model.WarmupSchedule {
	schedule := model.WarmupSchedule{
		ExchangeID:  exchangeID,
		Mode:        mode,
		CreatedAtMS: nowMS,
		TotalPairs:  len(results),
	}

	for _, r := range results {
		if r.Sufficient {
			schedule.SufficientPairs++
			continue
		}
		schedule.NeedsFetching++
		schedule.Entries = append(schedule.Entries, model.ScheduleEntry{
			Symbol:      r.Symbol,
			Timeframe:   r.Timeframe,
			CachedCount: r.CachedCount,
			TargetCount: DefaultTargetCount,
			Reason:      r.Reason,
		})
	}

	return schedule
}
