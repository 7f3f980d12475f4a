package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	"BiasGuard/internal/services/rules"
	applogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/store"
)

// RecordResult reports what happened to a submitted decision. Blocked
// establishments are not errors: the rejection itself is recorded as a
// signal_blocked decision and the verdict explains why.
type RecordResult struct {
	Decision  *models.DecisionRecord     `json:"decision"`
	Blocked   bool                       `json:"blocked"`
	Verdict   *models.ConsistencyVerdict `json:"verdict,omitempty"`
	StoredAt  time.Time                  `json:"stored_at"`
	ExpiresAt time.Time                  `json:"expires_at"`
}

// choppyReasoningMin is the minimum reasoning length for a bias change
// when the market is choppy. Thin reasoning in chop is exactly the
// flip-flopping the engine exists to stop.
const choppyReasoningMin = 50

// requireDetailedReasoning rejects a bias change proposed in choppy
// conditions without substantive reasoning behind it.
func requireDetailedReasoning(snap *models.ConsistencySnapshot, proposed models.Bias, cond models.MarketCondition, reasoning string) *models.ValidationError {
	if snap.Bias == nil || snap.Bias.Bias == proposed {
		return nil
	}
	if cond == "" {
		cond = snap.Bias.MarketCondition
	}
	if cond != models.MarketChoppy {
		return nil
	}
	if len(strings.TrimSpace(reasoning)) < choppyReasoningMin {
		return &models.ValidationError{
			Field:   "reasoning",
			Value:   reasoning,
			Message: fmt.Sprintf("changing bias in a choppy market requires at least %d characters of reasoning", choppyReasoningMin),
		}
	}
	return nil
}

// DecisionRecorder validates incoming decisions, applies their side
// effects and appends them to the ledger. Writes for the same symbol
// are serialized through a per-symbol lock.
type DecisionRecorder struct {
	biases    repository.BiasRepository
	ledger    repository.DecisionLedger
	publisher repository.Publisher
	archiver  repository.Archiver
	metrics   repository.Metrics
	cfg       rules.Config
	locks     *store.KeyLock
	log       *applogger.Logger
	nowFn     func() time.Time
}

// NewDecisionRecorder creates a decision recorder.
func NewDecisionRecorder(
	biases repository.BiasRepository,
	ledger repository.DecisionLedger,
	publisher repository.Publisher,
	archiver repository.Archiver,
	metrics repository.Metrics,
	cfg rules.Config,
	locks *store.KeyLock,
	l *applogger.Logger,
) *DecisionRecorder {
	if l == nil {
		l = applogger.Nop()
	}
	return &DecisionRecorder{
		biases:    biases,
		ledger:    ledger,
		publisher: publisher,
		archiver:  archiver,
		metrics:   metrics,
		cfg:       cfg,
		locks:     locks,
		log:       l,
		nowFn:     time.Now,
	}
}

// SetClock swaps the time source, for tests.
func (r *DecisionRecorder) SetClock(now func() time.Time) { r.nowFn = now }

// Record validates and persists one decision. Establishments that the
// consistency rules reject come back Blocked with the verdict attached
// and leave a signal_blocked entry in the ledger instead.
func (r *DecisionRecorder) Record(ctx context.Context, rawSymbol string, decisionType models.DecisionType, rawContent json.RawMessage, override bool, overrideReason string) (*RecordResult, error) {
	symbol, err := models.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}
	if !decisionType.Valid() {
		return nil, &models.ValidationError{
			Field:   "decision_type",
			Value:   string(decisionType),
			Message: "unknown decision type",
		}
	}

	content, err := models.DecodeDecisionContent(decisionType, rawContent)
	if err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(symbol)
	defer unlock()

	now := r.nowFn()

	switch c := content.(type) {
	case *models.BiasEstablishment:
		return r.recordEstablishment(ctx, symbol, c, now, override, overrideReason)
	case *models.PositionEntry:
		return r.recordPosition(ctx, symbol, c, now)
	default:
		return r.append(ctx, symbol, content, now)
	}
}

func (r *DecisionRecorder) recordEstablishment(ctx context.Context, symbol string, c *models.BiasEstablishment, now time.Time, override bool, overrideReason string) (*RecordResult, error) {
	snap, err := r.ledger.Snapshot(ctx, symbol, now.Add(-r.cfg.Lookback))
	if err != nil {
		return nil, err
	}

	if verr := requireDetailedReasoning(snap, c.Bias, c.MarketCondition, c.Reasoning); verr != nil {
		return nil, verr
	}

	verdict := rules.Evaluate(r.cfg, rules.Input{
		Now:            now,
		Symbol:         symbol,
		Proposed:       c.Bias,
		Override:       override,
		OverrideReason: overrideReason,
		Condition:      c.MarketCondition,
		Snapshot:       snap,
	})
	for _, conflict := range verdict.Conflicts {
		r.metrics.RecordConflict(string(conflict.Type), string(conflict.Severity))
	}

	if verdict.Recommendation == models.RecommendBlock {
		blocked := &models.SignalBlocked{
			ProposedBias:      c.Bias,
			ProposedReasoning: c.Reasoning,
			BlockReason:       string(verdict.Conflicts[0].Type),
			BlockDetails: map[string]interface{}{
				"message":  verdict.Conflicts[0].Message,
				"guidance": verdict.Guidance,
			},
		}
		res, err := r.append(ctx, symbol, blocked, now)
		if err != nil {
			return nil, err
		}
		res.Blocked = true
		res.Verdict = &verdict
		return res, nil
	}

	var prev *models.Bias
	if snap.Bias != nil {
		b := snap.Bias.Bias
		prev = &b
	}
	if err := r.biases.Establish(ctx, symbol, c.Record(now), prev); err != nil {
		return nil, err
	}

	res, err := r.append(ctx, symbol, c, now)
	if err != nil {
		return nil, err
	}
	if verdict.Context.OverrideApplied {
		res.Verdict = &verdict
	}
	return res, nil
}

func (r *DecisionRecorder) recordPosition(ctx context.Context, symbol string, c *models.PositionEntry, now time.Time) (*RecordResult, error) {
	if c.Timestamp.IsZero() {
		c.Timestamp = now
	}
	if err := r.ledger.AppendPosition(ctx, symbol, c); err != nil {
		return nil, err
	}
	return r.append(ctx, symbol, c, now)
}

func (r *DecisionRecorder) append(ctx context.Context, symbol string, content models.DecisionContent, now time.Time) (*RecordResult, error) {
	rec := &models.DecisionRecord{
		ID:        models.NewDecisionID(symbol, content.Type(), now),
		Symbol:    symbol,
		Type:      content.Type(),
		Content:   content,
		Timestamp: now,
	}
	if err := r.ledger.Append(ctx, rec); err != nil {
		return nil, err
	}

	r.metrics.RecordDecision(string(rec.Type), symbol)
	r.fanOut(ctx, rec)

	return &RecordResult{
		Decision:  rec,
		StoredAt:  now,
		ExpiresAt: now.Add(r.ledger.Expiry()),
	}, nil
}

// fanOut publishes and archives best effort; the ledger write is the
// source of truth and has already succeeded.
func (r *DecisionRecorder) fanOut(ctx context.Context, rec *models.DecisionRecord) {
	if err := r.publisher.PublishDecision(ctx, rec); err != nil {
		r.log.Warn("decision publish failed",
			applogger.String("decision_id", rec.ID), applogger.Error(err))
	}
	if err := r.archiver.ArchiveDecision(ctx, rec); err != nil {
		r.log.Warn("decision archive failed",
			applogger.String("decision_id", rec.ID), applogger.Error(err))
	}
}

// Recent returns the newest decisions for a symbol.
func (r *DecisionRecorder) Recent(ctx context.Context, rawSymbol string, limit int64) ([]models.DecisionRecord, error) {
	symbol, err := models.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}
	return r.ledger.Recent(ctx, symbol, limit)
}
