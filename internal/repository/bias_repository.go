package repository

import (
	"context"
	"errors"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	applogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/store"
)

// BiasRepo implements repository.BiasRepository on the key-value store.
type BiasRepo struct {
	store  store.Store
	limits Limits
	log    *applogger.Logger
}

// NewBiasRepo creates a bias repository.
func NewBiasRepo(s store.Store, limits Limits, l *applogger.Logger) repository.BiasRepository {
	if l == nil {
		l = applogger.Nop()
	}
	return &BiasRepo{store: s, limits: limits, log: l}
}

// Get returns the live bias for a symbol, nil when none is held.
func (r *BiasRepo) Get(ctx context.Context, symbol string) (*models.BiasRecord, error) {
	var rec models.BiasRecord
	err := r.store.GetJSON(ctx, biasKey(symbol), &rec)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Establish replaces the live bias. A change-history entry is written
// in the same transaction, but only when the direction moved.
func (r *BiasRepo) Establish(ctx context.Context, symbol string, rec *models.BiasRecord, prev *models.Bias) error {
	ops := []store.Op{
		store.SetOp{Key: biasKey(symbol), Value: rec, TTL: r.limits.BiasTTL},
	}

	if prev == nil || *prev != rec.Bias {
		entry := models.ChangeHistoryEntry{
			Symbol:    symbol,
			Timestamp: rec.EstablishedAt,
			To:        rec.Bias,
		}
		if prev != nil {
			entry.From = *prev
		}
		ops = append(ops, store.PushOp{
			Key:    changesKey(symbol),
			Value:  entry,
			MaxLen: r.limits.HistoryMaxLength,
			TTL:    r.limits.ChangeTTL,
		})
	}

	return r.store.Tx(ctx, ops...)
}

// Changes returns change-history entries at or after since, oldest
// first. Entries that no longer decode are skipped.
func (r *BiasRepo) Changes(ctx context.Context, symbol string, since time.Time) ([]models.ChangeHistoryEntry, error) {
	raw, err := r.store.Range(ctx, changesKey(symbol), 0, -1)
	if err != nil {
		return nil, err
	}
	return decodeChanges(raw, since, symbol, r.log), nil
}

func decodeChanges(raw [][]byte, since time.Time, symbol string, l *applogger.Logger) []models.ChangeHistoryEntry {
	// Stored newest first; emit ascending.
	out := make([]models.ChangeHistoryEntry, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var entry models.ChangeHistoryEntry
		if err := unmarshalEntry(raw[i], &entry); err != nil {
			l.Warn("skipping undecodable change entry",
				applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		if entry.Timestamp.Before(since) {
			continue
		}
		out = append(out, entry)
	}
	return out
}
