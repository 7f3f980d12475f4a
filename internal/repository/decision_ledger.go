package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"BiasGuard/internal/domain/models"
	"BiasGuard/internal/domain/repository"
	applogger "BiasGuard/pkg/logger"
	"BiasGuard/pkg/store"
)

// Ledger implements repository.DecisionLedger on the key-value store.
// Lists are kept newest first; caps and TTLs are refreshed on every
// write so an active symbol never expires mid-session.
type Ledger struct {
	store  store.Store
	limits Limits
	log    *applogger.Logger
}

// NewLedger creates a decision ledger.
func NewLedger(s store.Store, limits Limits, l *applogger.Logger) repository.DecisionLedger {
	if l == nil {
		l = applogger.Nop()
	}
	return &Ledger{store: s, limits: limits, log: l}
}

func (g *Ledger) Expiry() time.Duration { return g.limits.DecisionTTL }

func (g *Ledger) Append(ctx context.Context, rec *models.DecisionRecord) error {
	return g.store.Push(ctx, decisionsKey(rec.Symbol), rec,
		g.limits.DecisionMaxLength, g.limits.DecisionTTL)
}

// Recent returns the newest decisions first, at most limit of them.
func (g *Ledger) Recent(ctx context.Context, symbol string, limit int64) ([]models.DecisionRecord, error) {
	if limit <= 0 {
		limit = g.limits.DecisionMaxLength
	}
	raw, err := g.store.Range(ctx, decisionsKey(symbol), 0, limit-1)
	if err != nil {
		return nil, err
	}

	out := make([]models.DecisionRecord, 0, len(raw))
	for _, b := range raw {
		var rec models.DecisionRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			g.log.Warn("skipping undecodable decision",
				applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (g *Ledger) AppendPosition(ctx context.Context, symbol string, pos *models.PositionEntry) error {
	return g.store.Push(ctx, positionsKey(symbol), pos,
		g.limits.PositionMaxLength, g.limits.PositionTTL)
}

// Positions returns recorded positions, newest first.
func (g *Ledger) Positions(ctx context.Context, symbol string) ([]models.PositionEntry, error) {
	raw, err := g.store.Range(ctx, positionsKey(symbol), 0, -1)
	if err != nil {
		return nil, err
	}
	return decodePositions(raw, symbol, g.log), nil
}

// LatestEntryPrice returns the newest recorded entry price, nil when
// the symbol has no positions.
func (g *Ledger) LatestEntryPrice(ctx context.Context, symbol string) (*float64, error) {
	raw, err := g.store.Range(ctx, positionsKey(symbol), 0, 0)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var pos models.PositionEntry
	if err := json.Unmarshal(raw[0], &pos); err != nil {
		return nil, err
	}
	price := pos.EntryPrice
	return &price, nil
}

// Snapshot reads bias, windowed change history and positions in a
// single store transaction.
func (g *Ledger) Snapshot(ctx context.Context, symbol string, since time.Time) (*models.ConsistencySnapshot, error) {
	view, err := g.store.View(ctx,
		[]string{biasKey(symbol)},
		[]string{changesKey(symbol), positionsKey(symbol)},
	)
	if err != nil {
		return nil, err
	}

	snap := &models.ConsistencySnapshot{}

	if b, ok := view.Values[biasKey(symbol)]; ok && len(b) > 0 {
		var rec models.BiasRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, err
		}
		snap.Bias = &rec
	}

	snap.Changes = decodeChanges(view.Lists[changesKey(symbol)], since, symbol, g.log)
	snap.Positions = decodePositions(view.Lists[positionsKey(symbol)], symbol, g.log)

	return snap, nil
}

func decodePositions(raw [][]byte, symbol string, l *applogger.Logger) []models.PositionEntry {
	out := make([]models.PositionEntry, 0, len(raw))
	for _, b := range raw {
		var pos models.PositionEntry
		if err := json.Unmarshal(b, &pos); err != nil {
			l.Warn("skipping undecodable position",
				applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		out = append(out, pos)
	}
	return out
}

func unmarshalEntry(b []byte, dest interface{}) error {
	if len(b) == 0 {
		return errors.New("empty entry")
	}
	return json.Unmarshal(b, dest)
}
