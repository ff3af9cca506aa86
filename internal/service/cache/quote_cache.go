package cache

import (
	"context"
	"sync"
	"time"

	"SignalGate/internal/domain/models"
)

type quoteEntry struct {
	last models.Quote
	high float64
	low  float64
}

// QuoteCache keeps the newest quote per asset and accumulates the high/low
// span between reads, so a watcher tick sees every level a fast market crossed
// since its previous poll, not just the instantaneous price.
type QuoteCache struct {
	mu sync.Mutex
	m  map[string]*quoteEntry
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{m: make(map[string]*quoteEntry)}
}

// Update folds a new quote into the asset's running span.
func (c *QuoteCache) Update(q *models.Quote) {
	if q == nil || q.Asset == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[q.Asset]
	if !ok {
		c.m[q.Asset] = &quoteEntry{last: *q, high: q.Price, low: q.Price}
		return
	}
	e.last = *q
	if q.Price > e.high {
		e.high = q.Price
	}
	if q.Price < e.low {
		e.low = q.Price
	}
}

// Latest returns the asset's current quote with the accumulated span, then
// resets the span to the current price. Returns nil when the asset has not
// ticked yet.
func (c *QuoteCache) Latest(_ context.Context, asset string) (*models.Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.m[asset]
	if !ok {
		return nil, nil
	}
	q := e.last
	q.High = e.high
	q.Low = e.low
	e.high = e.last.Price
	e.low = e.last.Price
	return &q, nil
}

// Age returns how stale the asset's newest quote is at now.
func (c *QuoteCache) Age(asset string, now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[asset]
	if !ok {
		return 0, false
	}
	return now.Sub(e.last.Timestamp), true
}
