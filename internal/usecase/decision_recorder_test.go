package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"BiasGuard/internal/domain/models"
	internalrepo "BiasGuard/internal/repository"
	"BiasGuard/internal/services/rules"
	"BiasGuard/pkg/store"
)

type recordingMetrics struct {
	mu        sync.Mutex
	decisions []string
	checks    []string
	conflicts []string
	resets    []string
}

func (m *recordingMetrics) RecordDecision(decisionType, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, decisionType)
}

func (m *recordingMetrics) RecordCheck(recommendation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, recommendation)
}

func (m *recordingMetrics) RecordConflict(rule, _ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = append(m.conflicts, rule)
}

func (m *recordingMetrics) RecordReset(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, result)
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type fixture struct {
	store    *store.MemoryStore
	metrics  *recordingMetrics
	recorder *DecisionRecorder
	checker  *ConsistencyChecker
	query    *BiasQuery
	reset    *ResetCoordinator
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemoryStore()
	limits := internalrepo.DefaultLimits()
	metrics := &recordingMetrics{}
	locks := store.NewKeyLock()
	cfg := rules.DefaultConfig()

	biases := internalrepo.NewBiasRepo(mem, limits, nil)
	ledger := internalrepo.NewLedger(mem, limits, nil)
	wiper := internalrepo.NewWiper(mem)

	f := &fixture{
		store:   mem,
		metrics: metrics,
		now:     time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	mem.SetClock(clock)

	f.recorder = NewDecisionRecorder(biases, ledger,
		internalrepo.NopPublisher{}, internalrepo.NopArchiver{}, metrics, cfg, locks, nil)
	f.recorder.SetClock(clock)

	f.checker = NewConsistencyChecker(ledger, metrics, cfg, nil)
	f.checker.SetClock(clock)

	f.query = NewBiasQuery(biases, cfg.Lookback)
	f.query.SetClock(clock)

	f.reset = NewResetCoordinator(wiper, ledger,
		internalrepo.NopPublisher{}, internalrepo.NopArchiver{}, metrics, locks, nil)
	f.reset.SetClock(clock)

	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) establish(t *testing.T, symbol string, bias models.Bias, level float64) *RecordResult {
	t.Helper()
	content := map[string]interface{}{
		"bias":       bias,
		"reasoning":  "structure and volume support this stance",
		"confidence": 70,
	}
	if bias.Directional() {
		content["invalidation_level"] = level
	}
	raw, err := json.Marshal(content)
	require.NoError(t, err)

	res, err := f.recorder.Record(context.Background(), symbol,
		models.DecisionBiasEstablishment, raw, false, "")
	require.NoError(t, err)
	return res
}

func TestRecordFirstEstablishment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.establish(t, "spy", models.BiasBullish, 470.5)
	require.False(t, res.Blocked)
	require.NotNil(t, res.Decision)
	require.Equal(t, "SPY", res.Decision.Symbol)
	require.Equal(t, models.DecisionBiasEstablishment, res.Decision.Type)
	require.Nil(t, res.Verdict)

	status, err := f.query.Get(ctx, "SPY")
	require.NoError(t, err)
	require.NotNil(t, status.Bias)
	require.Equal(t, models.BiasBullish, status.Bias.Bias)
	require.Len(t, status.RecentChanges, 1)
	require.Empty(t, status.RecentChanges[0].From, "first establishment has no prior bias")
	require.Equal(t, models.BiasBullish, status.RecentChanges[0].To)

	recent, err := f.recorder.Recent(ctx, "SPY", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, []string{"bias_establishment"}, f.metrics.decisions)
}

func TestRecordChangeBeforeGateIsBlocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(time.Minute)

	res := f.establish(t, "SPY", models.BiasBearish, 474.0)
	require.True(t, res.Blocked)
	require.NotNil(t, res.Verdict)
	require.Equal(t, models.RecommendBlock, res.Verdict.Recommendation)
	require.Equal(t, models.ConflictTimeGate, res.Verdict.Conflicts[0].Type)

	// The rejection itself is on the record.
	require.Equal(t, models.DecisionSignalBlocked, res.Decision.Type)
	blocked := res.Decision.Content.(*models.SignalBlocked)
	require.Equal(t, models.BiasBearish, blocked.ProposedBias)
	require.Equal(t, "time_gate", blocked.BlockReason)

	// The held bias is untouched.
	status, err := f.query.Get(ctx, "SPY")
	require.NoError(t, err)
	require.Equal(t, models.BiasBullish, status.Bias.Bias)
	require.Len(t, status.RecentChanges, 1)

	recent, err := f.recorder.Recent(ctx, "SPY", 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, models.DecisionSignalBlocked, recent[0].Type)
}

func TestRecordChangeAfterGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(5 * time.Minute)

	res := f.establish(t, "SPY", models.BiasBearish, 474.0)
	require.False(t, res.Blocked)

	status, err := f.query.Get(ctx, "SPY")
	require.NoError(t, err)
	require.Equal(t, models.BiasBearish, status.Bias.Bias)
	require.Len(t, status.RecentChanges, 2)
	require.Equal(t, models.BiasBullish, status.RecentChanges[1].From)
	require.Equal(t, models.BiasBearish, status.RecentChanges[1].To)
}

func TestRecordReestablishSameBiasNoChangeEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(10 * time.Minute)
	f.establish(t, "SPY", models.BiasBullish, 471.0)

	status, err := f.query.Get(ctx, "SPY")
	require.NoError(t, err)
	require.Len(t, status.RecentChanges, 1, "restating the same bias is not a change")
	require.Equal(t, 471.0, *status.Bias.InvalidationLevel, "record itself is refreshed")
}

func TestRecordWhipsawCapBlocksThirdChange(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(5 * time.Minute)
	f.establish(t, "SPY", models.BiasBearish, 474.0)
	f.advance(5 * time.Minute)

	// Two changes already in the window: the first establishment and
	// the flip. A third directional change trips the cap.
	res := f.establish(t, "SPY", models.BiasNeutral, 0)
	require.True(t, res.Blocked)
	require.Equal(t, models.ConflictWhipsaw, res.Verdict.Conflicts[0].Type)
}

func TestRecordWhipsawWindowAgesOut(t *testing.T) {
	f := newFixture(t)

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(5 * time.Minute)
	f.establish(t, "SPY", models.BiasBearish, 474.0)

	f.advance(5 * time.Minute)
	res := f.establish(t, "SPY", models.BiasNeutral, 0)
	require.True(t, res.Blocked, "two changes still inside the window")

	// An hour later both changes have aged out of the lookback.
	f.advance(61 * time.Minute)
	res = f.establish(t, "SPY", models.BiasNeutral, 0)
	require.False(t, res.Blocked)
}

func TestRecordChoppyChangeNeedsDetailedReasoning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(10 * time.Minute)

	raw := []byte(`{
		"bias": "bearish",
		"reasoning": "feels heavy up here",
		"confidence": 60,
		"invalidation_level": 474.0,
		"market_condition": "choppy"
	}`)
	_, err := f.recorder.Record(ctx, "SPY", models.DecisionBiasEstablishment, raw, false, "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "reasoning", verr.Field)
}

func TestRecordResultCarriesRetention(t *testing.T) {
	f := newFixture(t)

	res := f.establish(t, "SPY", models.BiasBullish, 470.5)
	require.Equal(t, f.now, res.StoredAt)
	require.Equal(t, f.now.Add(7*24*time.Hour), res.ExpiresAt)
}

func TestRecordPositionEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)

	raw := []byte(`{
		"direction": "long",
		"entry_price": 1.25,
		"size": 10,
		"reasoning": "entry at VWAP reclaim with bias confirmed"
	}`)
	res, err := f.recorder.Record(ctx, "SPY", models.DecisionPositionEntry, raw, false, "")
	require.NoError(t, err)
	require.False(t, res.Blocked)

	pos := res.Decision.Content.(*models.PositionEntry)
	require.Equal(t, f.now, pos.Timestamp, "missing timestamp defaults to write time")
}

func TestRecordRejectsInvalidContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.recorder.Record(ctx, "SPY", models.DecisionBiasEstablishment,
		[]byte(`{"bias":"bullish","reasoning":"too short","confidence":70}`), false, "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	recent, err := f.recorder.Recent(ctx, "SPY", 10)
	require.NoError(t, err)
	require.Empty(t, recent, "rejected input leaves no trace")
}

func TestRecordRejectsBadSymbol(t *testing.T) {
	f := newFixture(t)

	_, err := f.recorder.Record(context.Background(), "not a symbol",
		models.DecisionBiasEstablishment, []byte(`{}`), false, "")
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "symbol", verr.Field)
}

func TestRecordSymbolsAreIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	f.advance(time.Minute)

	// QQQ has no held bias, so SPY's gate does not apply to it.
	res := f.establish(t, "QQQ", models.BiasBearish, 400.0)
	require.False(t, res.Blocked)

	status, err := f.query.Get(ctx, "QQQ")
	require.NoError(t, err)
	require.Equal(t, models.BiasBearish, status.Bias.Bias)
}

func TestRecentLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.establish(t, "SPY", models.BiasBullish, 470.5)
	for i := 0; i < 3; i++ {
		f.advance(time.Minute)
		raw := []byte(`{
			"direction": "long",
			"entry_price": 1.25,
			"size": 1,
			"reasoning": "scaling into the established bias"
		}`)
		_, err := f.recorder.Record(ctx, "SPY", models.DecisionPositionEntry, raw, false, "")
		require.NoError(t, err)
	}

	recent, err := f.recorder.Recent(ctx, "SPY", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, models.DecisionPositionEntry, recent[0].Type)
}
