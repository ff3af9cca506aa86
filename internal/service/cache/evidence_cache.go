package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	pkgcache "SignalGate/pkg/cache"
)

// EvidenceCache holds the latest evidence window per asset, written by the
// Kafka intake handler and read by the analyzer. Windows expire after the
// configured TTL so the analyzer never scores stale structure. Backed by the
// shared Redis cache in production; a window therefore survives a restart
// within its TTL.
type EvidenceCache struct {
	store pkgcache.Service
	ttl   time.Duration
}

func NewEvidenceCache(store pkgcache.Service, ttl time.Duration) *EvidenceCache {
	return &EvidenceCache{store: store, ttl: ttl}
}

func evidenceKey(asset string) string { return pkgcache.GenerateKey("evidence", asset) }

// Put replaces the asset's current window.
func (c *EvidenceCache) Put(ctx context.Context, b *models.EvidenceBatch) error {
	if err := c.store.Set(ctx, evidenceKey(b.Asset), b, c.ttl); err != nil {
		return fmt.Errorf("cache evidence window: %w", err)
	}
	return nil
}

// Latest returns the asset's current window, or nil when none is fresh.
// Repeated reads of the same window are harmless: signal creation dedupes by
// the window fingerprint.
func (c *EvidenceCache) Latest(ctx context.Context, asset string) (*models.EvidenceBatch, error) {
	var b models.EvidenceBatch
	err := c.store.Get(ctx, evidenceKey(asset), &b)
	if err != nil {
		if errors.Is(err, pkgcache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("read evidence window: %w", err)
	}
	return &b, nil
}
