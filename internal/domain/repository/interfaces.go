package repository

import (
	"context"
	"errors"
	"time"

	"SignalGate/internal/domain/models"
)

// ErrOverlap is returned by Create when another signal already holds the
// asset's active slot.
var ErrOverlap = errors.New("active signal exists for asset")

// ErrDuplicate is returned by Create when the evidence fingerprint was already
// published.
var ErrDuplicate = errors.New("signal fingerprint already published")

// TransitionPatch carries the mutable fields a lifecycle transition sets.
// Nil pointers leave the stored value untouched.
type TransitionPatch struct {
	EntryHitAt *time.Time
	Result     models.SignalResult
	ClosedAt   *time.Time
}

// SignalStore is the single shared mutable resource the workers coordinate
// through. Implementations must make Transition a conditional write scoped to
// one signal's state ("update to next iff current == expected"), so that each
// transition is linearizable per signal without any in-process lock.
type SignalStore interface {
	// Create persists a new signal in StateWaitingForEntry, claims the
	// asset's active slot, and records the fingerprint for dedupe.
	Create(ctx context.Context, s *models.Signal) error
	// Transition applies state expected → next. Returns (true, nil) when the
	// write was applied, (false, nil) when the persisted state no longer
	// matched expected.
	Transition(ctx context.Context, id string, expected, next models.SignalState, patch TransitionPatch) (bool, error)
	Get(ctx context.Context, id string) (*models.Signal, error)
	// ActiveByAsset returns the signal holding the asset's active slot, or
	// nil when the slot is free.
	ActiveByAsset(ctx context.Context, asset string) (*models.Signal, error)
	ListActive(ctx context.Context) ([]*models.Signal, error)
	// LastGeneratedAt returns the generated_at of the asset's most recent
	// signal regardless of its current state. Zero time when none exists.
	LastGeneratedAt(ctx context.Context, asset string) (time.Time, error)
	Health(ctx context.Context) error
	Close() error
}

// SignalArchive is the append-only audit store for terminal signals.
type SignalArchive interface {
	Archive(ctx context.Context, s *models.Signal) error
	History(ctx context.Context, asset string, limit int) ([]*models.Signal, error)
}

// ObservationStore is the append-only ground-truth store written by the
// reconciler. Records are written once and never mutated.
type ObservationStore interface {
	Append(ctx context.Context, o *models.ValidationObservation) error
	BySignal(ctx context.Context, signalID string) ([]*models.ValidationObservation, error)
	Discrepancies(ctx context.Context, from, to time.Time, limit int) ([]*models.ValidationObservation, error)
	Health(ctx context.Context) error
}

// EvidenceSource yields the latest unconsumed evidence window per asset.
type EvidenceSource interface {
	// Latest returns the current window for the asset, or nil when the tick
	// has no evidence (a normal outcome, not an error).
	Latest(ctx context.Context, asset string) (*models.EvidenceBatch, error)
}

// QuoteStream is a live streaming price connection feeding the quote cache.
type QuoteStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// PriceFeed serves the watcher's view of current price per asset.
type PriceFeed interface {
	Latest(ctx context.Context, asset string) (*models.Quote, error)
}

// AltPriceFeed is the independent feed the reconciler cross-checks against.
type AltPriceFeed interface {
	Source() string
	LatestCandle(ctx context.Context, asset string) (*models.Candle, error)
}

// EventPublisher notifies downstream consumers of signal creations and state
// changes. Delivery beyond the broker is out of scope.
type EventPublisher interface {
	SignalCreated(ctx context.Context, s *models.Signal) error
	SignalTransitioned(ctx context.Context, s *models.Signal, from models.SignalState) error
	Close() error
}

// Metrics abstracts the Prometheus recorder for the engine.
type Metrics interface {
	RecordApproval(asset string)
	RecordRejection(asset, reason string)
	RecordTransition(from, to string)
	RecordDiscrepancy(kind string)
	RecordFeedError(feed string)
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
}
