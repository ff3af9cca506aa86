package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/services/engine"
	xlogger "SignalGate/pkg/logger"
)

// ValidationReconciler cross-checks an independent price feed against the main
// system's believed state for every in-flight signal and appends one
// ValidationObservation per check. It is strictly read-only towards the
// lifecycle: observations are ground truth for later learning, never feedback.
type ValidationReconciler struct {
	lifecycle *SignalLifecycleManager
	alt       drepo.AltPriceFeed
	obs       drepo.ObservationStore
	metrics   drepo.Metrics
	logger    *xlogger.Logger
	interval  time.Duration
	now       func() time.Time
}

func NewValidationReconciler(
	lifecycle *SignalLifecycleManager,
	alt drepo.AltPriceFeed,
	obs drepo.ObservationStore,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	interval time.Duration,
) *ValidationReconciler {
	return &ValidationReconciler{
		lifecycle: lifecycle,
		alt:       alt,
		obs:       obs,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
	}
}

// WithClock overrides the wall clock for tests.
func (r *ValidationReconciler) WithClock(now func() time.Time) *ValidationReconciler {
	if now != nil {
		r.now = now
	}
	return r
}

// Run blocks until ctx is done.
func (r *ValidationReconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started",
		xlogger.String("feed", r.alt.Source()),
		xlogger.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick checks every in-flight signal against the alternate feed.
func (r *ValidationReconciler) Tick(ctx context.Context) {
	active, err := r.lifecycle.ActiveSignals(ctx)
	if err != nil {
		r.metrics.RecordError("reconciler_load")
		r.logger.Warn("reconciler load active failed", xlogger.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, s := range active {
		wg.Add(1)
		go func(s *models.Signal) {
			defer wg.Done()
			if err := r.check(ctx, s); err != nil {
				r.metrics.RecordError("reconciler")
				r.logger.Warn("reconciler check failed",
					xlogger.String("signal_id", s.ID), xlogger.Error(err))
			}
		}(s)
	}
	wg.Wait()
}

func (r *ValidationReconciler) check(ctx context.Context, s *models.Signal) error {
	start := r.now()
	candle, err := r.alt.LatestCandle(ctx, s.Asset)
	if err != nil {
		// Unreachable feed means a skipped check, never a fatal error, and
		// never a ground-truth row.
		r.metrics.RecordFeedError("alt")
		r.logger.Debug("reconciler check skipped",
			xlogger.String("asset", s.Asset), xlogger.Error(err))
		return nil
	}
	latency := time.Since(start).Milliseconds()

	o := r.classify(s, candle)
	o.ID = uuid.NewString()
	o.FeedSource = r.alt.Source()
	o.LatencyMS = latency
	o.CheckedAt = r.now()

	if err := r.obs.Append(ctx, o); err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	if o.IsDiscrepancy {
		r.metrics.RecordDiscrepancy(string(o.Discrepancy))
	}
	return nil
}

// classify compares the alternate feed's candle against the level the main
// lifecycle is currently waiting on.
func (r *ValidationReconciler) classify(s *models.Signal, c *models.Candle) *models.ValidationObservation {
	o := &models.ValidationObservation{
		SignalID:      s.ID,
		Asset:         s.Asset,
		ObservedPrice: c.Close,
		ObservedHigh:  c.High,
		ObservedLow:   c.Low,
		MainState:     s.State,
	}

	q := &models.Quote{Asset: c.Asset, Price: c.Close, High: c.High, Low: c.Low, Timestamp: c.Bucket}

	switch s.State {
	case models.StateWaitingForEntry:
		o.CheckType = models.CheckEntry
		if engine.EntryTouched(s, q) {
			// The alternate feed already saw the entry band while the main
			// system still believes the entry is pending.
			o.IsDiscrepancy = true
			o.Discrepancy = models.DiscrepancyEntryTiming
			o.Context = fmt.Sprintf("alt feed low/high [%v,%v] inside entry band [%v,%v]",
				c.Low, c.High, s.EntryLow, s.EntryHigh)
		}
	case models.StateEntryHit:
		switch engine.EvaluateExit(s, q) {
		case engine.ExitTakeProfit:
			o.CheckType = models.CheckTP
			o.IsDiscrepancy = true
			o.Discrepancy = models.DiscrepancyMissedExit
			o.Context = fmt.Sprintf("alt feed crossed take-profit %v", s.TakeProfit)
		case engine.ExitStopLoss:
			o.CheckType = models.CheckSL
			o.IsDiscrepancy = true
			o.Discrepancy = models.DiscrepancyMissedExit
			o.Context = fmt.Sprintf("alt feed crossed stop-loss %v", s.StopLoss)
		default:
			o.CheckType = models.CheckTP
			if r.entrySlipped(s, c) {
				o.CheckType = models.CheckEntry
				o.IsDiscrepancy = true
				o.Discrepancy = models.DiscrepancySlippage
				o.Context = fmt.Sprintf("entry filled but alt feed span [%v,%v] outside entry band [%v,%v]",
					c.Low, c.High, s.EntryLow, s.EntryHigh)
			}
		}
	default:
		// Terminal states should not appear in the active set; record the
		// staleness instead of guessing a level check.
		o.CheckType = models.CheckEntry
		o.IsDiscrepancy = true
		o.Discrepancy = models.DiscrepancyStaleState
	}
	return o
}

// entrySlipped reports whether a fresh entry fill went uncorroborated: the
// alternate feed's candle stayed outside the entry band, widened by half its
// width as tolerance, shortly after the main feed reported the fill. An older
// fill is not checked; the price has legitimately moved on by then.
func (r *ValidationReconciler) entrySlipped(s *models.Signal, c *models.Candle) bool {
	if s.EntryHitAt == nil {
		return false
	}
	if r.now().Sub(*s.EntryHitAt) > 2*r.interval {
		return false
	}
	tol := (s.EntryHigh - s.EntryLow) / 2
	return c.High < s.EntryLow-tol || c.Low > s.EntryHigh+tol
}
