package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

func newTestWatcher(store *memSignalStore, feed *stubPriceFeed, m *memMetrics, now time.Time) (*WatcherWorker, *SignalLifecycleManager, *memArchive) {
	archive := &memArchive{}
	lm := newTestLifecycle(store, archive, &memEvents{}, m)
	w := NewWatcherWorker(lm, feed, m, testLogger(), 10*time.Second).
		WithClock(func() time.Time { return now })
	return w, lm, archive
}

func publishTestSignal(t *testing.T, lm *SignalLifecycleManager, dir models.Direction) *models.Signal {
	t.Helper()
	s, err := lm.CreateFromApproval(context.Background(), testBatch("XAUUSD", dir), testConf(dir))
	require.NoError(t, err)
	return s
}

func TestWatcherMarksEntryHit(t *testing.T) {
	store := newMemSignalStore()
	feed := &stubPriceFeed{}
	m := newMemMetrics()
	w, lm, _ := newTestWatcher(store, feed, m, time.Now())
	s := publishTestSignal(t, lm, models.Bullish)

	// reference price 2000, entry band 2000 ± 1
	feed.set(&models.Quote{Asset: "XAUUSD", Price: 2000.5, Timestamp: time.Now()})
	w.Tick(context.Background())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateEntryHit, got.State)
	require.NotNil(t, got.EntryHitAt)
}

func TestWatcherIgnoresPriceOutsideEntryBand(t *testing.T) {
	store := newMemSignalStore()
	feed := &stubPriceFeed{}
	m := newMemMetrics()
	w, lm, _ := newTestWatcher(store, feed, m, time.Now())
	s := publishTestSignal(t, lm, models.Bullish)

	feed.set(&models.Quote{Asset: "XAUUSD", Price: 2005.0, Timestamp: time.Now()})
	w.Tick(context.Background())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateWaitingForEntry, got.State)
}

func TestWatcherResolvesTakeProfit(t *testing.T) {
	store := newMemSignalStore()
	feed := &stubPriceFeed{}
	m := newMemMetrics()
	w, lm, archive := newTestWatcher(store, feed, m, time.Now())
	s := publishTestSignal(t, lm, models.Bullish)

	ok, err := lm.MarkEntryHit(context.Background(), s, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	// TP is 2016 for the bullish test signal
	feed.set(&models.Quote{Asset: "XAUUSD", Price: 2016.2, Timestamp: time.Now()})
	w.Tick(context.Background())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateTPHit, got.State)
	assert.Equal(t, models.ResultProfit, got.Result)
	assert.Len(t, archive.rows, 1)
}

func TestWatcherResolvesStopLossOnSpan(t *testing.T) {
	store := newMemSignalStore()
	feed := &stubPriceFeed{}
	m := newMemMetrics()
	w, lm, _ := newTestWatcher(store, feed, m, time.Now())
	s := publishTestSignal(t, lm, models.Bullish)

	ok, err := lm.MarkEntryHit(context.Background(), s, time.Now())
	require.NoError(t, err)
	require.True(t, ok)

	// the instantaneous price recovered, but the span since the last tick
	// crossed the stop at 1992
	feed.set(&models.Quote{Asset: "XAUUSD", Price: 1995.0, High: 1996.0, Low: 1991.5, Timestamp: time.Now()})
	w.Tick(context.Background())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateSLHit, got.State)
	assert.Equal(t, models.ResultLoss, got.Result)
}

func TestWatcherCancelsExpiredBeforePriceCheck(t *testing.T) {
	store := newMemSignalStore()
	feed := &stubPriceFeed{err: errors.New("feed down")}
	m := newMemMetrics()
	now := time.Now()
	w, lm, _ := newTestWatcher(store, feed, m, now.Add(20*time.Minute))
	s := publishTestSignal(t, lm, models.Bullish)

	// feed is down, but expiry must still fire
	w.Tick(context.Background())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateCancelled, got.State)
	assert.Equal(t, models.ResultCancelled, got.Result)
}

func TestWatcherSkipsTickOnFeedError(t *testing.T) {
	store := newMemSignalStore()
	feed := &stubPriceFeed{err: errors.New("feed down")}
	m := newMemMetrics()
	w, lm, _ := newTestWatcher(store, feed, m, time.Now())
	s := publishTestSignal(t, lm, models.Bullish)

	w.Tick(context.Background())

	got, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateWaitingForEntry, got.State)
	assert.Equal(t, 1, m.count("feed_error:live"))
	assert.Equal(t, 0, m.count("error:watcher"))
}
