package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BiasGuard/internal/domain/models"
)

func price(v float64) *float64 { return &v }

func TestCheckNoStateProceeds(t *testing.T) {
	f := newFixture(t)

	v, err := f.checker.Check(context.Background(),
		CheckInput{Symbol: "SPY", Proposed: models.BiasBullish})
	require.NoError(t, err)
	require.True(t, v.Consistent)
	require.Equal(t, models.RecommendProceed, v.Recommendation)
	require.Empty(t, v.Conflicts)
	require.Equal(t, []string{"proceed"}, f.metrics.checks)
}

func TestCheckBlocksEarlyFlip(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(time.Minute)

	v, err := f.checker.Check(context.Background(),
		CheckInput{Symbol: "SPY", Proposed: models.BiasBearish})
	require.NoError(t, err)
	require.False(t, v.Consistent)
	require.Equal(t, models.RecommendBlock, v.Recommendation)
	require.Equal(t, models.ConflictTimeGate, v.Conflicts[0].Type)
	require.Contains(t, f.metrics.conflicts, "time_gate")

	// Checks are read-only: the ledger gained nothing.
	recent, err := f.recorder.Recent(context.Background(), "SPY", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestCheckInvalidationBreachPermitsChange(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 471.20)
	f.advance(time.Minute)

	// Price through the level: the flip is allowed despite the gate.
	v, err := f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBearish, CurrentPrice: price(471.10),
	})
	require.NoError(t, err)
	require.True(t, v.Consistent)
	require.Equal(t, models.RecommendProceed, v.Recommendation)
	require.True(t, v.Context.OverrideApplied)

	// Holding through the breach is the blocked direction.
	v, err = f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBullish, CurrentPrice: price(471.10),
	})
	require.NoError(t, err)
	require.Equal(t, models.RecommendBlock, v.Recommendation)
	require.Equal(t, models.ConflictInvalidation, v.Conflicts[0].Type)
	require.Equal(t, models.SeverityCritical, v.Conflicts[0].Severity)
}

func TestCheckBreachAtExactLevel(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 471.20)
	f.advance(time.Minute)

	v, err := f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBearish, CurrentPrice: price(471.20),
	})
	require.NoError(t, err)
	require.True(t, v.Consistent, "price at the level counts as a breach")
	require.True(t, v.Context.OverrideApplied)
}

func TestCheckSameBiasProceeds(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(time.Minute)

	v, err := f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBullish, CurrentPrice: price(472.0),
	})
	require.NoError(t, err)
	require.True(t, v.Consistent)
	require.Equal(t, models.RecommendProceed, v.Recommendation)
}

func TestCheckCallerConditionTightensGate(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(4 * time.Minute)

	// Past the normal 3 minute gate.
	v, err := f.checker.Check(context.Background(),
		CheckInput{Symbol: "SPY", Proposed: models.BiasBearish})
	require.NoError(t, err)
	require.True(t, v.Consistent)

	// The caller judging the market volatile widens the gate to 5.
	v, err = f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBearish, Condition: models.MarketVolatile,
	})
	require.NoError(t, err)
	require.False(t, v.Consistent)
	require.Equal(t, models.ConflictTimeGate, v.Conflicts[0].Type)
}

func TestCheckChoppyChangeNeedsDetailedReasoning(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(10 * time.Minute)

	_, err := f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBearish,
		Condition: models.MarketChoppy, Reasoning: "looks weak",
	})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "reasoning", verr.Field)

	v, err := f.checker.Check(context.Background(), CheckInput{
		Symbol: "SPY", Proposed: models.BiasBearish,
		Condition: models.MarketChoppy,
		Reasoning: "clean rejection at the range high with heavy sell volume and failed retest",
	})
	require.NoError(t, err)
	require.NotNil(t, v)
}

func TestCheckRejectsInvalidProposedBias(t *testing.T) {
	f := newFixture(t)

	_, err := f.checker.Check(context.Background(),
		CheckInput{Symbol: "SPY", Proposed: "sideways"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "proposed_bias", verr.Field)
}

func TestCheckContextReflectsState(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(4 * time.Minute)

	v, err := f.checker.Check(context.Background(),
		CheckInput{Symbol: "SPY", Proposed: models.BiasBearish})
	require.NoError(t, err)
	require.NotNil(t, v.Context.CurrentBias)
	require.Equal(t, models.BiasBullish, *v.Context.CurrentBias)
	require.Equal(t, 4, v.Context.TimeHeldMinutes)
	require.Equal(t, 1, v.Context.RecentChanges)
}
