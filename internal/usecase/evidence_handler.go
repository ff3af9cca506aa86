package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	icache "SignalGate/internal/service/cache"
)

// EvidenceHandler consumes structural-evidence batches from Kafka and keeps
// the per-asset latest-window cache the analyzer reads. One message carries
// one full evidence window for one asset.
type EvidenceHandler struct {
	topic   string
	cache   *icache.EvidenceCache
	metrics drepo.Metrics
}

// NewEvidenceHandler registers for the evidence topic.
func NewEvidenceHandler(topic string, cache *icache.EvidenceCache, metrics drepo.Metrics) *EvidenceHandler {
	return &EvidenceHandler{topic: topic, cache: cache, metrics: metrics}
}

// Topic returns the Kafka topic this handler consumes.
func (h *EvidenceHandler) Topic() string { return h.topic }

// Handle parses and caches one evidence batch. A malformed message is an
// error so the consumer's retry/DLQ path can deal with it.
func (h *EvidenceHandler) Handle(ctx context.Context, data []byte) error {
	var b models.EvidenceBatch
	if err := json.Unmarshal(data, &b); err != nil {
		h.metrics.RecordError("evidence_decode")
		return fmt.Errorf("decode evidence batch: %w", err)
	}
	if b.Asset == "" {
		h.metrics.RecordError("evidence_invalid")
		return fmt.Errorf("evidence batch missing asset")
	}
	if err := h.cache.Put(ctx, &b); err != nil {
		h.metrics.RecordError("evidence_cache")
		return fmt.Errorf("cache evidence batch: %w", err)
	}
	return nil
}
