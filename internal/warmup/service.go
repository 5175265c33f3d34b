package warmup

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/livermore/internal/cache"
	"github.com/sawpanic/livermore/internal/cachekeys"
	"github.com/sawpanic/livermore/internal/model"
)

// Backfiller is the subset of exchange.Adapter the warmup service needs;
// narrowed so tests can stub it without constructing a real adapter.
type Backfiller interface {
	FetchHistoricalCandles(ctx context.Context, symbol string, tf model.Timeframe, sinceMS, untilMS int64) ([]model.Candle, error)
}

// Service runs one warmup per exchange: assess trust, optionally dump,
// scan, build a schedule, then fetch every entry and write it through
// the versioned cache writer, publishing live progress throughout.
type Service struct {
	rdb     *redis.Client
	writer  *cache.Writer
	scanner *Scanner
	backfill Backfiller
	exchangeID int
}

func NewService(rdb *redis.Client, writer *cache.Writer, backfill Backfiller, exchangeID int) *Service {
	return &Service{
		rdb:        rdb,
		writer:     writer,
		scanner:    NewScanner(writer),
		backfill:   backfill,
		exchangeID: exchangeID,
	}
}

// warmupBatchSize and warmupBatchDelay govern the fetch phase: entries
// are issued concurrently within a batch, with a pause between batches
// so a full warmup doesn't hammer an exchange's REST budget all at once.
const (
	warmupBatchSize  = 5
	warmupBatchDelay = 1 * time.Second
)

// Run executes one full warmup pass against symbols and blocks until it
// completes, fails, or ctx is cancelled. The #1-ranked symbol (symbols[0],
// the order ExchangeRepo.ListSymbols returns) is the sentinel the trust
// assessor and tiered scanner calibrate against.
func (s *Service) Run(ctx context.Context, symbols []string) error {
	now := time.Now().UnixMilli()
	var sentinel string
	if len(symbols) > 0 {
		sentinel = symbols[0]
	}

	if err := s.publishStats(ctx, model.WarmupStats{
		ExchangeID: s.exchangeID, Status: model.WarmupAssessing, UpdatedAtMS: now,
	}); err != nil {
		return err
	}

	trust, err := AssessTrust(ctx, s.rdb, s.writer, s.exchangeID, sentinel, now)
	if err != nil {
		return s.fail(ctx, err)
	}
	log.Info().Int("exchange_id", s.exchangeID).Str("mode", string(trust.Mode)).Str("reason", trust.Reason).Msg("cache trust assessed")

	if trust.Mode == model.TrustFullRefresh {
		if err := s.publishStats(ctx, model.WarmupStats{ExchangeID: s.exchangeID, Status: model.WarmupDumping, UpdatedAtMS: time.Now().UnixMilli()}); err != nil {
			return err
		}
		if err := s.writer.DumpExchange(ctx, s.exchangeID); err != nil {
			return s.fail(ctx, err)
		}
	}

	if err := s.publishStats(ctx, model.WarmupStats{ExchangeID: s.exchangeID, Status: model.WarmupScanning, UpdatedAtMS: time.Now().UnixMilli()}); err != nil {
		return err
	}
	var results []model.ScanResult
	if trust.Mode == model.TrustFullRefresh {
		results = ScanFullRefresh(symbols)
	} else {
		results, err = s.scanner.ScanTiered(ctx, s.exchangeID, symbols, sentinel, time.Now().UnixMilli())
		if err != nil {
			return s.fail(ctx, err)
		}
	}

	schedule := BuildSchedule(s.exchangeID, trust.Mode, results, time.Now().UnixMilli())
	if err := s.persistSchedule(ctx, schedule); err != nil {
		return s.fail(ctx, err)
	}

	warmupMode := model.ModeTargeted
	if trust.Mode == model.TrustFullRefresh {
		warmupMode = model.ModeFullRefresh
	}

	stats := model.WarmupStats{
		ExchangeID:   s.exchangeID,
		Status:       model.WarmupFetching,
		Mode:         warmupMode,
		TotalEntries: len(schedule.Entries),
		UpdatedAtMS:  time.Now().UnixMilli(),
	}

	// The warm-restart optimisation: a running restart against an
	// already-warm cache has nothing to fetch, so it goes straight to
	// complete without ever publishing status=fetching.
	if schedule.NeedsFetching > 0 {
		if err := s.publishStats(ctx, stats); err != nil {
			return err
		}

		for batchStart := 0; batchStart < len(schedule.Entries); batchStart += warmupBatchSize {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			batchEnd := batchStart + warmupBatchSize
			if batchEnd > len(schedule.Entries) {
				batchEnd = len(schedule.Entries)
			}
			batch := schedule.Entries[batchStart:batchEnd]

			type outcome struct {
				entry model.ScheduleEntry
				err   error
			}
			outcomes := make([]outcome, len(batch))
			var wg sync.WaitGroup
			for i, entry := range batch {
				wg.Add(1)
				go func(i int, entry model.ScheduleEntry) {
					defer wg.Done()
					outcomes[i] = outcome{entry: entry, err: s.fetchEntry(ctx, entry)}
				}(i, entry)
			}
			wg.Wait()

			for _, o := range outcomes {
				if o.err != nil {
					stats.FailedEntries++
					stats.Failures = append(stats.Failures, model.FetchFailure{Symbol: o.entry.Symbol, Timeframe: o.entry.Timeframe, Error: o.err.Error()})
					log.Warn().Err(o.err).Str("symbol", o.entry.Symbol).Str("timeframe", string(o.entry.Timeframe)).Msg("warmup fetch failed, continuing")
				} else {
					stats.CompletedEntries++
				}
			}

			if batchEnd < len(schedule.Entries) {
				next := schedule.Entries[batchEnd]
				stats.CurrentSymbol, stats.CurrentTimeframe = next.Symbol, next.Timeframe
				if batchEnd+1 < len(schedule.Entries) {
					stats.NextSymbol, stats.NextTimeframe = schedule.Entries[batchEnd+1].Symbol, schedule.Entries[batchEnd+1].Timeframe
				} else {
					stats.NextSymbol, stats.NextTimeframe = "", ""
				}
			} else {
				stats.CurrentSymbol, stats.CurrentTimeframe = "", ""
				stats.NextSymbol, stats.NextTimeframe = "", ""
			}

			stats.PercentComplete = percentComplete(stats.CompletedEntries+stats.FailedEntries, stats.TotalEntries)
			stats.ETAMS = estimateETA(stats.CompletedEntries+stats.FailedEntries, stats.TotalEntries, schedule.CreatedAtMS)
			stats.UpdatedAtMS = time.Now().UnixMilli()
			if err := s.publishStats(ctx, stats); err != nil {
				return err
			}

			if batchEnd < len(schedule.Entries) {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(warmupBatchDelay):
				}
			}
		}
	}

	stats.Status = model.WarmupComplete
	stats.CurrentSymbol, stats.CurrentTimeframe = "", ""
	stats.NextSymbol, stats.NextTimeframe = "", ""
	stats.UpdatedAtMS = time.Now().UnixMilli()
	return s.publishStats(ctx, stats)
}

func (s *Service) fetchEntry(ctx context.Context, entry model.ScheduleEntry) error {
	untilMS := time.Now().UnixMilli()
	sinceMS := untilMS - int64(entry.TargetCount)*entry.Timeframe.Millis()

	candles, err := s.backfill.FetchHistoricalCandles(ctx, entry.Symbol, entry.Timeframe, sinceMS, untilMS)
	if err != nil {
		return err
	}
	for _, c := range candles {
		c.ExchangeID = s.exchangeID
		if _, err := s.writer.WriteCandle(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fail(ctx context.Context, cause error) error {
	_ = s.publishStats(ctx, model.WarmupStats{
		ExchangeID: s.exchangeID, Status: model.WarmupError, UpdatedAtMS: time.Now().UnixMilli(),
	})
	return cause
}

func (s *Service) publishStats(ctx context.Context, stats model.WarmupStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cachekeys.WarmupStatsKey(s.exchangeID), payload, 0).Err()
}

func (s *Service) persistSchedule(ctx context.Context, schedule model.WarmupSchedule) error {
	payload, err := json.Marshal(schedule)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cachekeys.WarmupScheduleKey(s.exchangeID), payload, 0).Err()
}

func percentComplete(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(done) / float64(total)
}

func estimateETA(done, total int, startedAtMS int64) int64 {
	if done == 0 || total == 0 {
		return 0
	}
	elapsed := time.Now().UnixMilli() - startedAtMS
	perEntry := float64(elapsed) / float64(done)
	remaining := total - done
	return int64(perEntry * float64(remaining))
}
