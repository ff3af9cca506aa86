package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/services/engine"
)

func testBatch(asset string, dir models.Direction) *models.EvidenceBatch {
	return &models.EvidenceBatch{
		Asset:          asset,
		WindowStart:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
		WindowEnd:      time.Date(2025, 3, 10, 12, 15, 0, 0, time.UTC),
		ReferencePrice: 2000.0,
		Items: []models.EvidenceItem{
			{Kind: models.EventBOS, Direction: dir, BaseScore: 2.0, BodyStrength: 0.8, CloseBonus: 0.2},
		},
	}
}

func testConf(dir models.Direction) models.ConfidenceResult {
	return models.ConfidenceResult{Direction: dir, Raw: 0.9, Release: 0.8}
}

func newTestLifecycle(store drepo.SignalStore, archive drepo.SignalArchive, events drepo.EventPublisher, m drepo.Metrics) *SignalLifecycleManager {
	return NewSignalLifecycleManager(LifecycleConfig{
		Strategy: "structure-v1",
		Expiry:   15 * time.Minute,
		Levels:   engine.LevelConfig{EntryBand: 0.0005, RiskFraction: 0.004, RewardRisk: 2.0},
	}, store, archive, events, m, testLogger())
}

func TestCreateFromApprovalPersistsWaitingSignal(t *testing.T) {
	store := newMemSignalStore()
	events := &memEvents{}
	m := newMemMetrics()
	lm := newTestLifecycle(store, &memArchive{}, events, m)

	s, err := lm.CreateFromApproval(context.Background(), testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)
	require.NotNil(t, s)

	assert.Equal(t, models.StateWaitingForEntry, s.State)
	assert.Equal(t, "XAUUSD", s.Asset)
	assert.Equal(t, 2000.0, s.EntryPrice)
	assert.InDelta(t, 2016.0, s.TakeProfit, 1e-9) // 2000 + 2×0.004×2000
	assert.InDelta(t, 1992.0, s.StopLoss, 1e-9)
	assert.NotEmpty(t, s.Fingerprint)
	assert.True(t, s.ExpiryAt.After(s.GeneratedAt))

	persisted, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, models.StateWaitingForEntry, persisted.State)

	assert.Equal(t, 1, m.count("approval:XAUUSD"))
	assert.Len(t, events.created, 1)
}

func TestCreateFromApprovalDedupesByFingerprint(t *testing.T) {
	store := newMemSignalStore()
	lm := newTestLifecycle(store, &memArchive{}, &memEvents{}, newMemMetrics())
	ctx := context.Background()

	first, err := lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)

	// release the active slot, then retry the same window
	ok, err := lm.CancelExpired(ctx, first, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	_, err = lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	assert.ErrorIs(t, err, drepo.ErrDuplicate)
}

func TestCreateFromApprovalRespectsActiveSlot(t *testing.T) {
	store := newMemSignalStore()
	lm := newTestLifecycle(store, &memArchive{}, &memEvents{}, newMemMetrics())
	ctx := context.Background()

	_, err := lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)

	other := testBatch("XAUUSD", models.Bearish)
	other.WindowStart = other.WindowStart.Add(time.Minute)
	_, err = lm.CreateFromApproval(ctx, other, testConf(models.Bearish))
	assert.ErrorIs(t, err, drepo.ErrOverlap)
}

func TestConcurrentApprovalsClaimSlotExactlyOnce(t *testing.T) {
	store := newMemSignalStore()
	lm := newTestLifecycle(store, &memArchive{}, &memEvents{}, newMemMetrics())
	ctx := context.Background()

	// distinct evidence windows, same asset: only the slot decides the winner
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	var losses []error
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := testBatch("XAUUSD", models.Bullish)
			b.WindowStart = b.WindowStart.Add(time.Duration(i) * time.Minute)
			s, err := lm.CreateFromApproval(ctx, b, testConf(models.Bullish))
			mu.Lock()
			defer mu.Unlock()
			if err == nil && s != nil {
				created++
				return
			}
			losses = append(losses, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	require.Len(t, losses, 15)
	for _, err := range losses {
		assert.ErrorIs(t, err, drepo.ErrOverlap)
	}

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestTransitionsAreIdempotent(t *testing.T) {
	store := newMemSignalStore()
	archive := &memArchive{}
	events := &memEvents{}
	lm := newTestLifecycle(store, archive, events, newMemMetrics())
	ctx := context.Background()

	s, err := lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)

	at := time.Now()
	ok, err := lm.MarkEntryHit(ctx, s, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.StateEntryHit, s.State)
	require.NotNil(t, s.EntryHitAt)

	// a second observer applying the same crossing is a no-op
	stale := *s
	stale.State = models.StateWaitingForEntry
	ok, err = lm.MarkEntryHit(ctx, &stale, at)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = lm.MarkTakeProfit(ctx, s, at.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.ResultProfit, s.Result)
	require.NotNil(t, s.ClosedAt)

	// terminal signals are archived and free the slot
	require.Len(t, archive.rows, 1)
	active, err := store.ActiveByAsset(ctx, "XAUUSD")
	require.NoError(t, err)
	assert.Nil(t, active)

	assert.Contains(t, events.transitions, "WAITING_FOR_ENTRY>ENTRY_HIT")
	assert.Contains(t, events.transitions, "ENTRY_HIT>TP_HIT")
}

func TestCancelAfterEntryHitIsNoOp(t *testing.T) {
	store := newMemSignalStore()
	lm := newTestLifecycle(store, &memArchive{}, &memEvents{}, newMemMetrics())
	ctx := context.Background()

	s, err := lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)

	ok, err := lm.MarkEntryHit(ctx, s, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	stale := *s
	stale.State = models.StateWaitingForEntry
	ok, err = lm.CancelExpired(ctx, &stale, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEntryHit, got.State)
}

func TestConcurrentCancelAppliesExactlyOnce(t *testing.T) {
	store := newMemSignalStore()
	archive := &memArchive{}
	lm := newTestLifecycle(store, archive, &memEvents{}, newMemMetrics())
	ctx := context.Background()

	s, err := lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cp := *s
			cp.State = models.StateWaitingForEntry
			ok, err := lm.CancelExpired(ctx, &cp, time.Now())
			if err == nil && ok {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Len(t, archive.rows, 1)
}

func TestIllegalTransitionIsRejected(t *testing.T) {
	store := newMemSignalStore()
	lm := newTestLifecycle(store, &memArchive{}, &memEvents{}, newMemMetrics())
	ctx := context.Background()

	s, err := lm.CreateFromApproval(ctx, testBatch("XAUUSD", models.Bullish), testConf(models.Bullish))
	require.NoError(t, err)

	// TP from WAITING_FOR_ENTRY skips ENTRY_HIT
	_, err = lm.transition(ctx, s, models.StateWaitingForEntry, models.StateTPHit, drepo.TransitionPatch{})
	assert.Error(t, err)
}
