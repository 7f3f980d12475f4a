package repository

import "time"

// Limits carries the retention policy for per-symbol state: how long
// each key lives and how many entries each list keeps.
type Limits struct {
	BiasTTL     time.Duration
	DecisionTTL time.Duration
	ChangeTTL   time.Duration
	PositionTTL time.Duration
	SessionTTL  time.Duration

	HistoryMaxLength  int64
	PositionMaxLength int64
	DecisionMaxLength int64
}

// DefaultLimits matches a fast intraday profile: state expires within
// a day, the audit ledger within a week.
func DefaultLimits() Limits {
	return Limits{
		BiasTTL:           24 * time.Hour,
		DecisionTTL:       7 * 24 * time.Hour,
		ChangeTTL:         3 * 24 * time.Hour,
		PositionTTL:       24 * time.Hour,
		SessionTTL:        7 * 24 * time.Hour,
		HistoryMaxLength:  100,
		PositionMaxLength: 20,
		DecisionMaxLength: 500,
	}
}
