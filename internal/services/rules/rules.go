package rules

import (
	"fmt"
	"time"

	"BiasGuard/internal/domain/models"
)

// Threshold is one adverse-move band.
type Threshold struct {
	Percent  float64
	Severity models.Severity
	Message  string
}

// Config carries the tunable knobs for every rule. Zero value is not
// usable; build with DefaultConfig or from the service configuration.
type Config struct {
	// Minimum hold time before a directional change, per market
	// condition.
	TimeGateNormal   time.Duration
	TimeGateVolatile time.Duration
	TimeGateChoppy   time.Duration

	// OverrideTimeGateAllowed permits an explicit caller override of
	// the time gate. Disabled by default.
	OverrideTimeGateAllowed bool

	// MaxChangesPerWindow is the whipsaw cap in normal conditions.
	// Volatile and choppy markets are capped at one change.
	MaxChangesPerWindow int
	Lookback            time.Duration

	Thresholds []Threshold
}

// DefaultConfig is the fast intraday profile.
func DefaultConfig() Config {
	return Config{
		TimeGateNormal:      3 * time.Minute,
		TimeGateVolatile:    5 * time.Minute,
		TimeGateChoppy:      5 * time.Minute,
		MaxChangesPerWindow: 2,
		Lookback:            time.Hour,
		Thresholds: []Threshold{
			{Percent: 0.05, Severity: models.SeverityMedium, Message: "5% adverse move - consider reducing position"},
			{Percent: 0.10, Severity: models.SeverityHigh, Message: "10% adverse move - bias likely invalid"},
			{Percent: 0.20, Severity: models.SeverityCritical, Message: "20% adverse move - stop loss triggered"},
		},
	}
}

// Input is the full state a check runs against. Snapshot changes must
// already be windowed to cfg.Lookback and sorted ascending.
type Input struct {
	Now            time.Time
	Symbol         string
	Proposed       models.Bias
	Override       bool
	OverrideReason string
	// Condition is the caller's current read of the market. When
	// absent, the held bias's recorded condition applies.
	Condition    models.MarketCondition
	CurrentPrice *float64
	Snapshot     *models.ConsistencySnapshot
}

// condition resolves the market condition the rules run under: the
// caller's assessment wins over the one stored with the bias.
func (in Input) condition() models.MarketCondition {
	if in.Condition.Valid() && in.Condition != "" {
		return in.Condition
	}
	if bias := in.Snapshot.Bias; bias != nil {
		return bias.MarketCondition
	}
	return models.MarketNormal
}

// Result is one rule's outcome. A nil Conflict means the rule passed
// clean. Blocking conflicts veto the proposal; non-blocking ones only
// downgrade the recommendation to caution.
type Result struct {
	Conflict        *models.ConflictReport
	Blocking        bool
	OverrideApplied bool
	OverrideNote    string
	// AllowsChange short-circuits other blocking rules: set when the
	// invalidation level is breached and the caller proposes moving
	// away from the broken thesis.
	AllowsChange bool
}

func (c Config) gateFor(cond models.MarketCondition) time.Duration {
	switch cond {
	case models.MarketVolatile:
		return c.TimeGateVolatile
	case models.MarketChoppy:
		return c.TimeGateChoppy
	}
	return c.TimeGateNormal
}

func (c Config) maxChangesFor(cond models.MarketCondition) int {
	if cond == models.MarketVolatile || cond == models.MarketChoppy {
		return 1
	}
	return c.MaxChangesPerWindow
}

// ceilMinutes rounds a duration up to whole minutes, minimum one when
// any time remains.
func ceilMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}

func fmtMinutes(n int) string {
	if n == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", n)
}
