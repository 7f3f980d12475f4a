package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BiasGuard/internal/domain/models"
)

func TestResetRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)

	res, err := f.reset.Reset(ctx, "SPY", false, "cleanup before new session")
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, models.ErrCodeNotConfirmed, res.Code)
	require.Zero(t, res.DeletedKeys)

	// Nothing was touched.
	status, err := f.query.Get(ctx, "SPY")
	require.NoError(t, err)
	require.NotNil(t, status.Bias)
	require.Equal(t, []string{"not_confirmed"}, f.metrics.resets)
}

func TestResetWipesAndLeavesAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	raw := []byte(`{
		"direction": "long",
		"entry_price": 1.25,
		"size": 10,
		"reasoning": "entry aligned with the held bias"
	}`)
	_, err := f.recorder.Record(ctx, "SPY", models.DecisionPositionEntry, raw, false, "")
	require.NoError(t, err)

	res, err := f.reset.Reset(ctx, "SPY", true, "bad data poisoned the session")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, int64(4), res.DeletedKeys, "bias, changes, decisions and positions existed; session did not")
	require.Equal(t, 5, res.Attempted)
	require.NotEmpty(t, res.AuditID)

	status, err := f.query.Get(ctx, "SPY")
	require.NoError(t, err)
	require.Nil(t, status.Bias)
	require.Empty(t, status.RecentChanges)

	// The audit record is the only survivor on the fresh ledger.
	recent, err := f.recorder.Recent(ctx, "SPY", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, models.DecisionSystemReset, recent[0].Type)
	require.Equal(t, res.AuditID, recent[0].ID)

	audit := recent[0].Content.(*models.SystemReset)
	require.Equal(t, "force_reset", audit.Action)
	require.Equal(t, "bad data poisoned the session", audit.Reason)
	require.Equal(t, 4, audit.DeletedKeys)
	require.Equal(t, []string{"success"}, f.metrics.resets)
}

func TestResetUnknownSymbolSucceeds(t *testing.T) {
	f := newFixture(t)

	res, err := f.reset.Reset(context.Background(), "QQQ", true, "starting clean")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Zero(t, res.DeletedKeys)
	require.NotEmpty(t, res.AuditID)
}

func TestResetRejectsBadSymbol(t *testing.T) {
	f := newFixture(t)

	_, err := f.reset.Reset(context.Background(), "", true, "whatever the reason")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestResetOnlyNamedSymbol(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.establish(t, "QQQ", models.BiasBearish, 400.0)

	_, err := f.reset.Reset(ctx, "SPY", true, "symbol scoped wipe only")
	require.NoError(t, err)

	status, err := f.query.Get(ctx, "QQQ")
	require.NoError(t, err)
	require.NotNil(t, status.Bias)
	require.Equal(t, models.BiasBearish, status.Bias.Bias)
}

func TestBiasQueryUnknownSymbol(t *testing.T) {
	f := newFixture(t)

	status, err := f.query.Get(context.Background(), "TSLA")
	require.NoError(t, err)
	require.Equal(t, "TSLA", status.Symbol)
	require.Nil(t, status.Bias)
	require.Zero(t, status.TimeHeldMinutes)
	require.Empty(t, status.RecentChanges)
}

func TestBiasQueryTimeHeld(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(7*time.Minute + 30*time.Second)

	status, err := f.query.Get(context.Background(), "spy")
	require.NoError(t, err)
	require.Equal(t, 7, status.TimeHeldMinutes)
}

func TestBiasQueryWindowsChanges(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(2 * time.Hour)

	status, err := f.query.Get(context.Background(), "SPY")
	require.NoError(t, err)
	require.Empty(t, status.RecentChanges, "changes older than the lookback drop out")
}
