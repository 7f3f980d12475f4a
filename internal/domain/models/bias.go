package models

import (
	"regexp"
	"strings"
	"time"
)

// Bias is the directional stance held for a symbol.
type Bias string

const (
	BiasBullish Bias = "bullish"
	BiasBearish Bias = "bearish"
	BiasNeutral Bias = "neutral"
)

// Valid reports whether the bias is one of the known values.
func (b Bias) Valid() bool {
	switch b {
	case BiasBullish, BiasBearish, BiasNeutral:
		return true
	}
	return false
}

// Directional reports whether the bias commits to a direction.
// Directional biases require an invalidation level.
func (b Bias) Directional() bool {
	return b == BiasBullish || b == BiasBearish
}

// MarketCondition influences how strict the consistency rules are.
type MarketCondition string

const (
	MarketNormal   MarketCondition = "normal"
	MarketVolatile MarketCondition = "volatile"
	MarketChoppy   MarketCondition = "choppy"
)

func (m MarketCondition) Valid() bool {
	switch m {
	case MarketNormal, MarketVolatile, MarketChoppy:
		return true
	}
	return false
}

// BiasRecord is the single live bias per symbol. A new establishment
// replaces it atomically; the previous value is archived into the
// change history before being overwritten.
type BiasRecord struct {
	Bias              Bias            `json:"bias"`
	Confidence        int             `json:"confidence"`
	InvalidationLevel *float64        `json:"invalidation_level,omitempty"`
	KeyLevels         []float64       `json:"key_levels,omitempty"`
	MarketCondition   MarketCondition `json:"market_condition"`
	Reasoning         string          `json:"reasoning"`
	EstablishedAt     time.Time       `json:"established_at"`
}

// TimeHeld returns how long the bias has been held as of now.
func (r *BiasRecord) TimeHeld(now time.Time) time.Duration {
	if r == nil || r.EstablishedAt.IsZero() {
		return 0
	}
	d := now.Sub(r.EstablishedAt)
	if d < 0 {
		return 0
	}
	return d
}

// TimeHeldMinutes is TimeHeld rounded down to whole minutes.
func (r *BiasRecord) TimeHeldMinutes(now time.Time) int {
	return int(r.TimeHeld(now) / time.Minute)
}

// ChangeHistoryEntry records one bias transition, ordered by timestamp
// ascending. Only entries inside the rolling lookback window count for
// whipsaw detection; older entries live until their TTL expires.
type ChangeHistoryEntry struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	From      Bias      `json:"from_bias,omitempty"` // empty on first establishment
	To        Bias      `json:"to_bias"`
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// NormalizeSymbol trims, upper-cases and validates a trading symbol.
// Symbols are 1-10 alphanumeric characters (SPY, QQQ, ES, BTCUSD).
func NormalizeSymbol(raw string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(symbol) {
		return "", &ValidationError{
			Field:   "symbol",
			Value:   raw,
			Message: "symbol must be 1-10 alphanumeric characters",
		}
	}
	return symbol, nil
}
