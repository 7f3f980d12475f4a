package usecase

import (
	"context"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
)

// BiasStatus is the read-side view of a symbol: the live record plus
// derived hold time and windowed change count.
type BiasStatus struct {
	Symbol          string                      `json:"symbol"`
	Bias            *models.BiasRecord          `json:"bias,omitempty"`
	TimeHeldMinutes int                         `json:"time_held_minutes"`
	RecentChanges   []models.ChangeHistoryEntry `json:"recent_changes"`
}

// BiasQuery answers read-only bias lookups.
type BiasQuery struct {
	biases   repository.BiasRepository
	lookback time.Duration
	nowFn    func() time.Time
}

// NewBiasQuery creates a bias query service.
func NewBiasQuery(biases repository.BiasRepository, lookback time.Duration) *BiasQuery {
	return &BiasQuery{biases: biases, lookback: lookback, nowFn: time.Now}
}

// SetClock swaps the time source, for tests.
func (q *BiasQuery) SetClock(now func() time.Time) { q.nowFn = now }

// Get returns the current bias status for a symbol. A symbol with no
// bias yields a status with a nil record, not an error.
func (q *BiasQuery) Get(ctx context.Context, rawSymbol string) (*BiasStatus, error) {
	symbol, err := models.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}

	now := q.nowFn()
	rec, err := q.biases.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}

	changes, err := q.biases.Changes(ctx, symbol, now.Add(-q.lookback))
	if err != nil {
		return nil, err
	}

	status := &BiasStatus{
		Symbol:        symbol,
		Bias:          rec,
		RecentChanges: changes,
	}
	if rec != nil {
		status.TimeHeldMinutes = rec.TimeHeldMinutes(now)
	}
	return status, nil
}
