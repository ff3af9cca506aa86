package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

func tick(asset string, price float64, at time.Time) *models.Quote {
	return &models.Quote{Asset: asset, Price: price, Timestamp: at}
}

func TestQuoteCacheEmptyAsset(t *testing.T) {
	c := NewQuoteCache()

	q, err := c.Latest(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Nil(t, q)

	_, ok := c.Age("XAUUSD", time.Now())
	assert.False(t, ok)
}

func TestQuoteCacheAccumulatesSpanBetweenReads(t *testing.T) {
	c := NewQuoteCache()
	now := time.Now()

	c.Update(tick("XAUUSD", 2000, now))
	c.Update(tick("XAUUSD", 2004, now.Add(time.Second)))
	c.Update(tick("XAUUSD", 1997, now.Add(2*time.Second)))
	c.Update(tick("XAUUSD", 2001, now.Add(3*time.Second)))

	q, err := c.Latest(context.Background(), "XAUUSD")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, 2001.0, q.Price)
	assert.Equal(t, 2004.0, q.High)
	assert.Equal(t, 1997.0, q.Low)
}

func TestQuoteCacheResetsSpanAfterRead(t *testing.T) {
	c := NewQuoteCache()
	now := time.Now()

	c.Update(tick("XAUUSD", 2000, now))
	c.Update(tick("XAUUSD", 2010, now.Add(time.Second)))
	c.Update(tick("XAUUSD", 2005, now.Add(2*time.Second)))

	_, err := c.Latest(context.Background(), "XAUUSD")
	require.NoError(t, err)

	// span restarts from the last price, the 2010 spike is gone
	q, err := c.Latest(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 2005.0, q.Price)
	assert.Equal(t, 2005.0, q.High)
	assert.Equal(t, 2005.0, q.Low)
}

func TestQuoteCacheTracksAssetsIndependently(t *testing.T) {
	c := NewQuoteCache()
	now := time.Now()

	c.Update(tick("XAUUSD", 2000, now))
	c.Update(tick("EURUSD", 1.08, now))
	c.Update(tick("XAUUSD", 2002, now.Add(time.Second)))

	gold, err := c.Latest(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Equal(t, 2002.0, gold.Price)

	eur, err := c.Latest(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, 1.08, eur.Price)
	assert.Equal(t, 1.08, eur.High)
}

func TestQuoteCacheIgnoresMalformedUpdates(t *testing.T) {
	c := NewQuoteCache()

	c.Update(nil)
	c.Update(&models.Quote{Price: 2000})

	q, err := c.Latest(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, q)
}

func TestQuoteCacheAge(t *testing.T) {
	c := NewQuoteCache()
	now := time.Now()

	c.Update(tick("XAUUSD", 2000, now.Add(-45*time.Second)))

	age, ok := c.Age("XAUUSD", now)
	require.True(t, ok)
	assert.Equal(t, 45*time.Second, age)
}
