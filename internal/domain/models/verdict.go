package models

// Severity orders conflicts from nuisance to stop-the-world.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank maps severity to a sortable weight, critical highest.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// ConflictType identifies the rule that raised a conflict. The order
// of these values is also the tie-break order when severities match.
type ConflictType string

const (
	ConflictTimeGate      ConflictType = "time_gate"
	ConflictWhipsaw       ConflictType = "whipsaw"
	ConflictInvalidation  ConflictType = "invalidation"
	ConflictPriceMovement ConflictType = "price_movement"
)

// EvalOrder is the fixed rule evaluation position used for stable
// conflict ordering.
func (t ConflictType) EvalOrder() int {
	switch t {
	case ConflictTimeGate:
		return 0
	case ConflictWhipsaw:
		return 1
	case ConflictInvalidation:
		return 2
	case ConflictPriceMovement:
		return 3
	}
	return 4
}

// ConflictReport is one rule violation (or non-blocking warning) with
// enough context for the caller to act on it.
type ConflictReport struct {
	Type          ConflictType `json:"type"`
	Severity      Severity     `json:"severity"`
	Message       string       `json:"message"`
	CurrentValue  string       `json:"current_value,omitempty"`
	Threshold     string       `json:"threshold,omitempty"`
	TimeRemaining string       `json:"time_remaining,omitempty"`
	Guidance      string       `json:"guidance,omitempty"`
	Transitions   []string     `json:"transitions,omitempty"`
}

// Recommendation is the aggregate call on the proposed change.
type Recommendation string

const (
	RecommendProceed Recommendation = "proceed"
	RecommendCaution Recommendation = "caution"
	RecommendBlock   Recommendation = "block_signal"
)

// CheckContext snapshots the state the verdict was computed against.
type CheckContext struct {
	CurrentBias       *Bias           `json:"current_bias"`
	ProposedBias      Bias            `json:"proposed_bias"`
	EstablishedAt     string          `json:"established_at,omitempty"`
	TimeHeldMinutes   int             `json:"time_held_minutes"`
	Confidence        int             `json:"confidence,omitempty"`
	InvalidationLevel *float64        `json:"invalidation_level,omitempty"`
	RecentChanges     int             `json:"recent_changes"`
	MarketCondition   MarketCondition `json:"market_condition"`
	OverrideApplied   bool            `json:"override_applied"`
	OverrideNote      string          `json:"override_note,omitempty"`
}

// ConsistencyVerdict is computed on demand and never persisted.
// Conflicts are ordered highest severity first, ties broken by rule
// evaluation order.
type ConsistencyVerdict struct {
	Consistent     bool             `json:"consistent"`
	Conflicts      []ConflictReport `json:"conflicts"`
	Recommendation Recommendation   `json:"recommendation"`
	Guidance       string           `json:"guidance"`
	Context        CheckContext     `json:"context"`
}

// ConsistencySnapshot is a mutually consistent read of everything the
// rule engine needs: bias, windowed change history and open positions,
// taken in a single store transaction.
type ConsistencySnapshot struct {
	Bias      *BiasRecord
	Changes   []ChangeHistoryEntry // inside the lookback window, ascending
	Positions []PositionEntry      // newest first
}
