package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BiasGuard/internal/domain/models"
	"BiasGuard/pkg/store"
)

var t0 = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func newLedger(t *testing.T) (*store.MemoryStore, *Ledger, *BiasRepo) {
	t.Helper()
	mem := store.NewMemoryStore()
	limits := DefaultLimits()
	return mem, NewLedger(mem, limits, nil).(*Ledger), NewBiasRepo(mem, limits, nil).(*BiasRepo)
}

func decisionAt(symbol string, at time.Time) *models.DecisionRecord {
	return &models.DecisionRecord{
		ID:     models.NewDecisionID(symbol, models.DecisionSessionClose, at),
		Symbol: symbol,
		Type:   models.DecisionSessionClose,
		Content: &models.SessionClose{
			Summary: "flat session, no setups worth taking",
		},
		Timestamp: at,
	}
}

func TestLedgerAppendAndRecent(t *testing.T) {
	_, ledger, _ := newLedger(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Append(ctx, decisionAt("SPY", t0.Add(time.Duration(i)*time.Minute))))
	}

	recent, err := ledger.Recent(ctx, "SPY", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.True(t, recent[0].Timestamp.After(recent[1].Timestamp), "newest first")

	all, err := ledger.Recent(ctx, "SPY", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestLedgerRecentSkipsUndecodable(t *testing.T) {
	mem, ledger, _ := newLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Append(ctx, decisionAt("SPY", t0)))
	require.NoError(t, mem.Push(ctx, decisionsKey("SPY"), "not an envelope", 500, 0))

	recent, err := ledger.Recent(ctx, "SPY", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestLedgerPositionsAndLatestEntryPrice(t *testing.T) {
	_, ledger, _ := newLedger(t)
	ctx := context.Background()

	price, err := ledger.LatestEntryPrice(ctx, "SPY")
	require.NoError(t, err)
	require.Nil(t, price)

	require.NoError(t, ledger.AppendPosition(ctx, "SPY", &models.PositionEntry{
		Direction: "long", EntryPrice: 1.10, Size: 5,
		Reasoning: "first entry on the reclaim", Timestamp: t0,
	}))
	require.NoError(t, ledger.AppendPosition(ctx, "SPY", &models.PositionEntry{
		Direction: "long", EntryPrice: 1.35, Size: 5,
		Reasoning: "adding as the move confirms", Timestamp: t0.Add(time.Minute),
	}))

	price, err = ledger.LatestEntryPrice(ctx, "SPY")
	require.NoError(t, err)
	require.Equal(t, 1.35, *price)

	positions, err := ledger.Positions(ctx, "SPY")
	require.NoError(t, err)
	require.Len(t, positions, 2)
	require.Equal(t, 1.35, positions[0].EntryPrice)
}

func TestLedgerSnapshot(t *testing.T) {
	_, ledger, biases := newLedger(t)
	ctx := context.Background()

	level := 470.5
	rec := &models.BiasRecord{
		Bias:              models.BiasBullish,
		Confidence:        70,
		InvalidationLevel: &level,
		MarketCondition:   models.MarketNormal,
		EstablishedAt:     t0,
	}
	require.NoError(t, biases.Establish(ctx, "SPY", rec, nil))
	require.NoError(t, ledger.AppendPosition(ctx, "SPY", &models.PositionEntry{
		Direction: "long", EntryPrice: 1.10, Size: 5,
		Reasoning: "entry with the fresh bias", Timestamp: t0,
	}))

	snap, err := ledger.Snapshot(ctx, "SPY", t0.Add(-time.Hour))
	require.NoError(t, err)
	require.NotNil(t, snap.Bias)
	require.Equal(t, models.BiasBullish, snap.Bias.Bias)
	require.Len(t, snap.Changes, 1)
	require.Len(t, snap.Positions, 1)

	// Window excludes the only change.
	snap, err = ledger.Snapshot(ctx, "SPY", t0.Add(time.Minute))
	require.NoError(t, err)
	require.Empty(t, snap.Changes)
}

func TestLedgerSnapshotEmptySymbol(t *testing.T) {
	_, ledger, _ := newLedger(t)

	snap, err := ledger.Snapshot(context.Background(), "QQQ", t0)
	require.NoError(t, err)
	require.Nil(t, snap.Bias)
	require.Empty(t, snap.Changes)
	require.Empty(t, snap.Positions)
}
