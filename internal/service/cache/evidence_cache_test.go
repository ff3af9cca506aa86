package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	pkgcache "SignalGate/pkg/cache"
)

func newMemBackedEvidenceCache(t *testing.T, ttl time.Duration) *EvidenceCache {
	t.Helper()
	mem := pkgcache.NewMemoryCache(
		pkgcache.WithMemoryMaxSize(64),
		pkgcache.WithMemoryCleanup(time.Minute),
	)
	t.Cleanup(func() { _ = mem.Close() })
	return NewEvidenceCache(mem, ttl)
}

func evidenceWindow(asset string, start time.Time) *models.EvidenceBatch {
	return &models.EvidenceBatch{
		Asset:          asset,
		WindowStart:    start,
		WindowEnd:      start.Add(15 * time.Minute),
		ReferencePrice: 2000.0,
		Items: []models.EvidenceItem{
			{Kind: models.EventBOS, Direction: models.Bullish, BaseScore: 2.0, BodyStrength: 0.8, CloseBonus: 0.2},
		},
	}
}

func TestEvidenceCacheRoundTrip(t *testing.T) {
	c := newMemBackedEvidenceCache(t, time.Minute)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, evidenceWindow("XAUUSD", start)))

	got, err := c.Latest(ctx, "XAUUSD")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "XAUUSD", got.Asset)
	assert.True(t, got.WindowStart.Equal(start))
	assert.Equal(t, 2000.0, got.ReferencePrice)
	require.Len(t, got.Items, 1)
	assert.Equal(t, models.EventBOS, got.Items[0].Kind)
	assert.Equal(t, models.Bullish, got.Items[0].Direction)
}

func TestEvidenceCacheMissIsNotAnError(t *testing.T) {
	c := newMemBackedEvidenceCache(t, time.Minute)

	got, err := c.Latest(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvidenceCachePutReplacesWindow(t *testing.T) {
	c := newMemBackedEvidenceCache(t, time.Minute)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, evidenceWindow("XAUUSD", start)))
	require.NoError(t, c.Put(ctx, evidenceWindow("XAUUSD", start.Add(15*time.Minute))))

	got, err := c.Latest(ctx, "XAUUSD")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.WindowStart.Equal(start.Add(15*time.Minute)))
}

func TestEvidenceCacheIsolatesAssets(t *testing.T) {
	c := newMemBackedEvidenceCache(t, time.Minute)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, evidenceWindow("XAUUSD", start)))

	got, err := c.Latest(ctx, "BTCUSD")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEvidenceCacheExpiresStaleWindow(t *testing.T) {
	c := newMemBackedEvidenceCache(t, 10*time.Millisecond)
	ctx := context.Background()
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, c.Put(ctx, evidenceWindow("XAUUSD", start)))

	assert.Eventually(t, func() bool {
		got, err := c.Latest(ctx, "XAUUSD")
		return err == nil && got == nil
	}, time.Second, 5*time.Millisecond)
}
