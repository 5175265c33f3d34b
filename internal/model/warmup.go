package model

// ScanReason explains why a (symbol, timeframe) pair was judged
// insufficient during a candle-status scan.
type ScanReason string

const (
	ReasonOK       ScanReason = "ok"
	ReasonLowCount ScanReason = "low_count"
	ReasonStale    ScanReason = "stale"
	ReasonEmpty    ScanReason = "empty"
)

// ScanResult is the per-(symbol,timeframe) outcome of the candle-status
// scanner.
type ScanResult struct {
	Symbol           string     `json:"symbol"`
	Timeframe        Timeframe  `json:"timeframe"`
	CachedCount      int        `json:"cached_count"`
	NewestCandleAgeMS int64     `json:"newest_candle_age_ms"`
	Sufficient       bool       `json:"sufficient"`
	Reason           ScanReason `json:"reason"`
}

// TrustMode is the cache-trust assessor's verdict for an exchange's
// candle cache.
type TrustMode string

const (
	TrustTargeted    TrustMode = "targeted"
	TrustFullRefresh TrustMode = "full_refresh"
)

// TrustDecision is the assessor's output.
type TrustDecision struct {
	Mode   TrustMode `json:"mode"`
	Reason string    `json:"reason"`
}

// ScheduleEntry is one planned REST backfill in a WarmupSchedule.
type ScheduleEntry struct {
	Symbol       string     `json:"symbol"`
	Timeframe    Timeframe  `json:"timeframe"`
	CachedCount  int        `json:"cached_count"`
	TargetCount  int        `json:"target_count"`
	Reason       ScanReason `json:"reason"`
}

// WarmupSchedule is the persisted plan of REST fetches for one warmup run.
type WarmupSchedule struct {
	ExchangeID     int             `json:"exchange_id"`
	Mode           TrustMode       `json:"mode"`
	CreatedAtMS    int64           `json:"created_at_ms"`
	TotalPairs     int             `json:"total_pairs"`
	SufficientPairs int            `json:"sufficient_pairs"`
	NeedsFetching  int             `json:"needs_fetching"`
	Entries        []ScheduleEntry `json:"entries"`
}

// WarmupStatus is the Smart Warmup Service's phase at any instant.
type WarmupStatus string

const (
	WarmupAssessing WarmupStatus = "assessing"
	WarmupDumping   WarmupStatus = "dumping"
	WarmupScanning  WarmupStatus = "scanning"
	WarmupFetching  WarmupStatus = "fetching"
	WarmupComplete  WarmupStatus = "complete"
	WarmupError     WarmupStatus = "error"
)

// WarmupMode distinguishes a ground-up backfill from a narrow top-up.
type WarmupMode string

const (
	ModeFullRefresh WarmupMode = "full_refresh"
	ModeTargeted    WarmupMode = "targeted"
)

// FetchFailure records one entry's REST fetch failure during warmup.
type FetchFailure struct {
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Error     string    `json:"error"`
}

// WarmupStats is the real-time progress snapshot, overwritten on every
// batch.
type WarmupStats struct {
	ExchangeID       int            `json:"exchange_id"`
	Status           WarmupStatus   `json:"status"`
	Mode             WarmupMode     `json:"mode"`
	TotalEntries     int            `json:"total_entries"`
	CompletedEntries int            `json:"completed_entries"`
	FailedEntries    int            `json:"failed_entries"`
	PercentComplete  float64        `json:"percent_complete"`
	ETAMS            int64          `json:"eta_ms"`
	CurrentSymbol    string         `json:"current_symbol,omitempty"`
	CurrentTimeframe Timeframe      `json:"current_timeframe,omitempty"`
	NextSymbol       string         `json:"next_symbol,omitempty"`
	NextTimeframe    Timeframe      `json:"next_timeframe,omitempty"`
	Failures         []FetchFailure `json:"failures"`
	UpdatedAtMS      int64          `json:"updated_at_ms"`
}
