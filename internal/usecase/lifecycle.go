package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/services/engine"
	xlogger "SignalGate/pkg/logger"
)

// LifecycleConfig holds the creation-time policy of the lifecycle manager.
type LifecycleConfig struct {
	Strategy string
	// Expiry bounds the entry wait after generation (default 15 minutes).
	Expiry time.Duration
	Levels engine.LevelConfig
}

// SignalLifecycleManager owns the signal state machine and its persisted
// representation. Every transition is a single conditional write against the
// store; a conflict (persisted state already moved on) is a benign no-op so
// concurrent workers observing the same crossing apply it at most once.
type SignalLifecycleManager struct {
	cfg     LifecycleConfig
	store   drepo.SignalStore
	archive drepo.SignalArchive
	events  drepo.EventPublisher
	metrics drepo.Metrics
	logger  *xlogger.Logger
	now     func() time.Time
}

func NewSignalLifecycleManager(
	cfg LifecycleConfig,
	store drepo.SignalStore,
	archive drepo.SignalArchive,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
) *SignalLifecycleManager {
	if cfg.Expiry <= 0 {
		cfg.Expiry = 15 * time.Minute
	}
	return &SignalLifecycleManager{
		cfg:     cfg,
		store:   store,
		archive: archive,
		events:  events,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock overrides the wall clock for tests.
func (m *SignalLifecycleManager) WithClock(now func() time.Time) *SignalLifecycleManager {
	if now != nil {
		m.now = now
	}
	return m
}

// CreateFromApproval builds a signal from an approved evidence window and
// persists it. The signal is born CREATED and advances to WAITING_FOR_ENTRY on
// successful persistence, with expiry set. Creation is idempotent with respect
// to the window fingerprint and respects the store's per-asset active slot.
func (m *SignalLifecycleManager) CreateFromApproval(ctx context.Context, batch *models.EvidenceBatch, conf models.ConfidenceResult) (*models.Signal, error) {
	plan, err := engine.PlanLevels(m.cfg.Levels, conf.Direction, batch.ReferencePrice)
	if err != nil {
		return nil, fmt.Errorf("create signal: %w", err)
	}

	now := m.now()
	s := &models.Signal{
		ID:          uuid.NewString(),
		Asset:       batch.Asset,
		Strategy:    m.cfg.Strategy,
		Direction:   conf.Direction,
		EntryPrice:  plan.Entry,
		EntryLow:    plan.EntryLow,
		EntryHigh:   plan.EntryHigh,
		TakeProfit:  plan.TakeProfit,
		StopLoss:    plan.StopLoss,
		Strength:    conf.Release,
		RewardRisk:  plan.RewardRisk,
		Explanation: engine.Explain(conf.Direction, conf, batch),
		Fingerprint: batch.Fingerprint(),
		Confidence:  conf,
		GeneratedAt: now,
		ExpiryAt:    now.Add(m.cfg.Expiry),
		State:       models.StateCreated,
	}

	// CREATED is transient: the persisted record is already waiting for entry.
	s.State = models.StateWaitingForEntry
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	m.metrics.RecordApproval(s.Asset)
	m.logger.Info("signal published",
		xlogger.String("signal_id", s.ID),
		xlogger.String("asset", s.Asset),
		xlogger.String("direction", string(s.Direction)),
		xlogger.Float64("release_confidence", s.Strength),
	)
	if err := m.events.SignalCreated(ctx, s); err != nil {
		// The signal is persisted; a lost event only delays downstream
		// consumers until the next state change.
		m.metrics.RecordError("publish_created")
		m.logger.Warn("signal created event publish failed", xlogger.Error(err))
	}
	return s, nil
}

// MarkEntryHit applies WAITING_FOR_ENTRY → ENTRY_HIT and sets entry_hit_at.
func (m *SignalLifecycleManager) MarkEntryHit(ctx context.Context, s *models.Signal, at time.Time) (bool, error) {
	return m.transition(ctx, s, models.StateWaitingForEntry, models.StateEntryHit, drepo.TransitionPatch{
		EntryHitAt: &at,
	})
}

// MarkTakeProfit applies ENTRY_HIT → TP_HIT.
func (m *SignalLifecycleManager) MarkTakeProfit(ctx context.Context, s *models.Signal, at time.Time) (bool, error) {
	return m.transition(ctx, s, models.StateEntryHit, models.StateTPHit, drepo.TransitionPatch{
		Result:   models.ResultProfit,
		ClosedAt: &at,
	})
}

// MarkStopLoss applies ENTRY_HIT → SL_HIT.
func (m *SignalLifecycleManager) MarkStopLoss(ctx context.Context, s *models.Signal, at time.Time) (bool, error) {
	return m.transition(ctx, s, models.StateEntryHit, models.StateSLHit, drepo.TransitionPatch{
		Result:   models.ResultLoss,
		ClosedAt: &at,
	})
}

// CancelExpired applies WAITING_FOR_ENTRY → CANCELLED for a signal whose
// expiry passed without an entry fill.
func (m *SignalLifecycleManager) CancelExpired(ctx context.Context, s *models.Signal, at time.Time) (bool, error) {
	return m.transition(ctx, s, models.StateWaitingForEntry, models.StateCancelled, drepo.TransitionPatch{
		Result:   models.ResultCancelled,
		ClosedAt: &at,
	})
}

func (m *SignalLifecycleManager) transition(ctx context.Context, s *models.Signal, expected, next models.SignalState, patch drepo.TransitionPatch) (bool, error) {
	if !models.CanTransition(expected, next) {
		return false, fmt.Errorf("illegal transition %s -> %s", expected, next)
	}

	applied, err := m.store.Transition(ctx, s.ID, expected, next, patch)
	if err != nil {
		return false, fmt.Errorf("transition %s %s -> %s: %w", s.ID, expected, next, err)
	}
	if !applied {
		// Another worker won the race; current truth will be re-read next tick.
		return false, nil
	}

	s.State = next
	if patch.EntryHitAt != nil {
		s.EntryHitAt = patch.EntryHitAt
	}
	if patch.Result != "" {
		s.Result = patch.Result
	}
	if patch.ClosedAt != nil {
		s.ClosedAt = patch.ClosedAt
	}

	m.metrics.RecordTransition(string(expected), string(next))
	m.logger.Info("signal transition",
		xlogger.String("signal_id", s.ID),
		xlogger.String("asset", s.Asset),
		xlogger.String("from", string(expected)),
		xlogger.String("to", string(next)),
	)

	if err := m.events.SignalTransitioned(ctx, s, expected); err != nil {
		m.metrics.RecordError("publish_transition")
		m.logger.Warn("signal transition event publish failed", xlogger.Error(err))
	}

	if next.IsTerminal() && m.archive != nil {
		if err := m.archive.Archive(ctx, s); err != nil {
			m.metrics.RecordError("archive")
			m.logger.Warn("signal archive failed",
				xlogger.String("signal_id", s.ID), xlogger.Error(err))
		}
	}
	return true, nil
}

// ActiveSignals returns all signals in non-terminal states.
func (m *SignalLifecycleManager) ActiveSignals(ctx context.Context) ([]*models.Signal, error) {
	return m.store.ListActive(ctx)
}

// Get returns one signal by id.
func (m *SignalLifecycleManager) Get(ctx context.Context, id string) (*models.Signal, error) {
	return m.store.Get(ctx, id)
}

// History returns archived terminal signals for an asset.
func (m *SignalLifecycleManager) History(ctx context.Context, asset string, limit int) ([]*models.Signal, error) {
	if m.archive == nil {
		return nil, nil
	}
	return m.archive.History(ctx, asset, limit)
}
