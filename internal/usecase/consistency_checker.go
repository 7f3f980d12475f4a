package usecase

import (
	"context"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	"BiasGuard/internal/services/rules"
	applogger "BiasGuard/pkg/logger"
)

// ConsistencyChecker evaluates a proposed bias against the held state.
// Verdicts are computed on demand and never persisted.
type ConsistencyChecker struct {
	ledger  repository.DecisionLedger
	metrics repository.Metrics
	cfg     rules.Config
	log     *applogger.Logger
	nowFn   func() time.Time
}

// NewConsistencyChecker creates a consistency checker.
func NewConsistencyChecker(ledger repository.DecisionLedger, metrics repository.Metrics, cfg rules.Config, l *applogger.Logger) *ConsistencyChecker {
	if l == nil {
		l = applogger.Nop()
	}
	return &ConsistencyChecker{
		ledger:  ledger,
		metrics: metrics,
		cfg:     cfg,
		log:     l,
		nowFn:   time.Now,
	}
}

// SetClock swaps the time source, for tests.
func (c *ConsistencyChecker) SetClock(now func() time.Time) { c.nowFn = now }

// CheckInput is one consistency question: a proposed stance plus the
// caller's market context.
type CheckInput struct {
	Symbol         string
	Proposed       models.Bias
	Reasoning      string
	Action         string
	Condition      models.MarketCondition
	CurrentPrice   *float64
	Override       bool
	OverrideReason string
}

// Check runs every rule against a single consistent snapshot of the
// symbol's state.
func (c *ConsistencyChecker) Check(ctx context.Context, in CheckInput) (*models.ConsistencyVerdict, error) {
	symbol, err := models.NormalizeSymbol(in.Symbol)
	if err != nil {
		return nil, err
	}
	if !in.Proposed.Valid() {
		return nil, &models.ValidationError{
			Field:   "proposed_bias",
			Value:   string(in.Proposed),
			Message: "proposed bias must be bullish, bearish or neutral",
		}
	}

	start := c.nowFn()
	snap, err := c.ledger.Snapshot(ctx, symbol, start.Add(-c.cfg.Lookback))
	if err != nil {
		return nil, err
	}

	if verr := requireDetailedReasoning(snap, in.Proposed, in.Condition, in.Reasoning); verr != nil {
		return nil, verr
	}

	verdict := rules.Evaluate(c.cfg, rules.Input{
		Now:            start,
		Symbol:         symbol,
		Proposed:       in.Proposed,
		Override:       in.Override,
		OverrideReason: in.OverrideReason,
		Condition:      in.Condition,
		CurrentPrice:   in.CurrentPrice,
		Snapshot:       snap,
	})

	c.metrics.RecordCheck(string(verdict.Recommendation))
	for _, conflict := range verdict.Conflicts {
		c.metrics.RecordConflict(string(conflict.Type), string(conflict.Severity))
	}
	c.metrics.RecordLatency("consistency_check", time.Since(start).Seconds())

	if !verdict.Consistent {
		c.log.Info("proposal blocked",
			applogger.String("symbol", symbol),
			applogger.String("proposed", string(in.Proposed)),
			applogger.String("reason", string(verdict.Conflicts[0].Type)),
		)
	}

	return &verdict, nil
}
