package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	applogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/store"
)

// ResetResult reports a reset attempt. An unconfirmed request is a
// refusal, not an error.
type ResetResult struct {
	Success     bool   `json:"success"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message"`
	DeletedKeys int64  `json:"deleted_keys"`
	Attempted   int    `json:"attempted_keys,omitempty"`
	AuditID     string `json:"audit_id,omitempty"`
}

// ResetCoordinator wipes all per-symbol state behind an explicit
// confirmation gate and leaves an audit record behind.
type ResetCoordinator struct {
	wiper     repository.SymbolWiper
	ledger    repository.DecisionLedger
	publisher repository.Publisher
	archiver  repository.Archiver
	metrics   repository.Metrics
	locks     *store.KeyLock
	log       *applogger.Logger
	nowFn     func() time.Time
}

// NewResetCoordinator creates a reset coordinator.
func NewResetCoordinator(
	wiper repository.SymbolWiper,
	ledger repository.DecisionLedger,
	publisher repository.Publisher,
	archiver repository.Archiver,
	metrics repository.Metrics,
	locks *store.KeyLock,
	l *applogger.Logger,
) *ResetCoordinator {
	if l == nil {
		l = applogger.Nop()
	}
	return &ResetCoordinator{
		wiper:     wiper,
		ledger:    ledger,
		publisher: publisher,
		archiver:  archiver,
		metrics:   metrics,
		locks:     locks,
		log:       l,
		nowFn:     time.Now,
	}
}

// SetClock swaps the time source, for tests.
func (r *ResetCoordinator) SetClock(now func() time.Time) { r.nowFn = now }

// Reset deletes every key the symbol owns, then writes a system_reset
// audit record as the first entry of the fresh ledger. Resetting a
// symbol with no state succeeds and deletes nothing.
func (r *ResetCoordinator) Reset(ctx context.Context, rawSymbol string, confirm bool, reason string) (*ResetResult, error) {
	symbol, err := models.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}

	if !confirm {
		r.metrics.RecordReset("not_confirmed")
		return &ResetResult{
			Success: false,
			Code:    models.ErrCodeNotConfirmed,
			Message: fmt.Sprintf("reset of %s requires confirm=true; no state was touched", symbol),
		}, nil
	}

	unlock := r.locks.Lock(symbol)
	defer unlock()

	now := r.nowFn()
	deleted, attempted, wipeErr := r.wiper.Wipe(ctx, symbol)
	if wipeErr != nil {
		var partial *models.PartialFailure
		if errors.As(wipeErr, &partial) || deleted > 0 {
			r.metrics.RecordReset("partial_failure")
			return &ResetResult{
				Success:     false,
				Code:        models.ErrCodePartialFailure,
				Message:     fmt.Sprintf("reset of %s deleted %d of %d keys before failing", symbol, deleted, attempted),
				DeletedKeys: deleted,
				Attempted:   attempted,
			}, wipeErr
		}
		r.metrics.RecordReset("error")
		return nil, wipeErr
	}

	audit := &models.SystemReset{
		Action:      "force_reset",
		Symbol:      symbol,
		Reason:      reason,
		DeletedKeys: int(deleted),
		ResetAt:     now,
	}
	rec := &models.DecisionRecord{
		ID:        models.NewDecisionID(symbol, models.DecisionSystemReset, now),
		Symbol:    symbol,
		Type:      models.DecisionSystemReset,
		Content:   audit,
		Timestamp: now,
	}
	if err := r.ledger.Append(ctx, rec); err != nil {
		// The wipe already happened; surface the reset as done but
		// note the missing audit trail.
		r.log.Error("reset audit write failed",
			applogger.String("symbol", symbol), applogger.Error(err))
	}

	if err := r.publisher.PublishDecision(ctx, rec); err != nil {
		r.log.Warn("reset publish failed",
			applogger.String("symbol", symbol), applogger.Error(err))
	}
	if err := r.archiver.ArchiveDecision(ctx, rec); err != nil {
		r.log.Warn("reset archive failed",
			applogger.String("symbol", symbol), applogger.Error(err))
	}

	r.metrics.RecordReset("success")
	r.log.Info("symbol reset",
		applogger.String("symbol", symbol),
		applogger.Int64("deleted_keys", deleted),
		applogger.String("reason", reason),
	)

	return &ResetResult{
		Success:     true,
		Message:     fmt.Sprintf("all state for %s wiped", symbol),
		DeletedKeys: deleted,
		Attempted:   attempted,
		AuditID:     rec.ID,
	}, nil
}
