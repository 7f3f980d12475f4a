package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BiasGuard/internal/domain/models"
	"BiasGuard/pkg/store"
)

func record(bias models.Bias, at time.Time) *models.BiasRecord {
	return &models.BiasRecord{
		Bias:            bias,
		Confidence:      70,
		MarketCondition: models.MarketNormal,
		Reasoning:       "test stance",
		EstablishedAt:   at,
	}
}

func TestBiasRepoGetMissing(t *testing.T) {
	_, _, biases := newLedger(t)

	rec, err := biases.Get(context.Background(), "SPY")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestBiasRepoEstablishWritesChangeEntry(t *testing.T) {
	_, _, biases := newLedger(t)
	ctx := context.Background()

	require.NoError(t, biases.Establish(ctx, "SPY", record(models.BiasBullish, t0), nil))

	prev := models.BiasBullish
	require.NoError(t, biases.Establish(ctx, "SPY",
		record(models.BiasBearish, t0.Add(5*time.Minute)), &prev))

	changes, err := biases.Changes(ctx, "SPY", t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, changes, 2)

	// Ascending by timestamp; first entry has no prior bias.
	require.Empty(t, changes[0].From)
	require.Equal(t, models.BiasBullish, changes[0].To)
	require.Equal(t, models.BiasBullish, changes[1].From)
	require.Equal(t, models.BiasBearish, changes[1].To)
}

func TestBiasRepoSameBiasSkipsChangeEntry(t *testing.T) {
	_, _, biases := newLedger(t)
	ctx := context.Background()

	require.NoError(t, biases.Establish(ctx, "SPY", record(models.BiasBullish, t0), nil))

	prev := models.BiasBullish
	require.NoError(t, biases.Establish(ctx, "SPY",
		record(models.BiasBullish, t0.Add(10*time.Minute)), &prev))

	changes, err := biases.Changes(ctx, "SPY", t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, changes, 1)

	rec, err := biases.Get(ctx, "SPY")
	require.NoError(t, err)
	require.Equal(t, t0.Add(10*time.Minute), rec.EstablishedAt, "record itself is replaced")
}

func TestBiasRepoChangesWindow(t *testing.T) {
	_, _, biases := newLedger(t)
	ctx := context.Background()

	require.NoError(t, biases.Establish(ctx, "SPY", record(models.BiasBullish, t0), nil))

	changes, err := biases.Changes(ctx, "SPY", t0.Add(time.Minute))
	require.NoError(t, err)
	require.Empty(t, changes)
}

func TestBiasRepoChangesSkipsUndecodable(t *testing.T) {
	mem, _, biases := newLedger(t)
	ctx := context.Background()

	require.NoError(t, biases.Establish(ctx, "SPY", record(models.BiasBullish, t0), nil))
	require.NoError(t, mem.Push(ctx, changesKey("SPY"), 42, 100, 0))

	changes, err := biases.Changes(ctx, "SPY", t0.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, changes, 1)
}

func TestWiperWipesAllSymbolKeys(t *testing.T) {
	mem := store.NewMemoryStore()
	limits := DefaultLimits()
	biases := NewBiasRepo(mem, limits, nil)
	ledger := NewLedger(mem, limits, nil)
	wiper := NewWiper(mem)
	ctx := context.Background()

	require.NoError(t, biases.Establish(ctx, "SPY", record(models.BiasBullish, t0), nil))
	require.NoError(t, ledger.AppendPosition(ctx, "SPY", &models.PositionEntry{
		Direction: "long", EntryPrice: 1.0, Size: 1,
		Reasoning: "position before the wipe", Timestamp: t0,
	}))

	deleted, attempted, err := wiper.Wipe(ctx, "SPY")
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted, "bias, changes and positions existed")
	require.Equal(t, 5, attempted)

	rec, err := biases.Get(ctx, "SPY")
	require.NoError(t, err)
	require.Nil(t, rec)

	deleted, _, err = wiper.Wipe(ctx, "SPY")
	require.NoError(t, err)
	require.Zero(t, deleted)
}

func TestSymbolKeyLayout(t *testing.T) {
	keys := symbolKeys("SPY")
	require.Equal(t, []string{
		"bias:SPY", "changes:SPY", "decisions:SPY", "positions:SPY", "session:SPY",
	}, keys)
}
