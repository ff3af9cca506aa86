package usecase

import (
	"context"
	"sync"
	"time"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/services/engine"
	xlogger "SignalGate/pkg/logger"
)

// WatcherWorker polls live price against every non-terminal signal and
// requests lifecycle transitions. It runs on a shorter interval than the
// analyzer. All writes go through the lifecycle manager's conditional
// transitions, so a signal disappearing or changing state between load and
// write degrades to a no-op.
type WatcherWorker struct {
	lifecycle *SignalLifecycleManager
	feed      drepo.PriceFeed
	metrics   drepo.Metrics
	logger    *xlogger.Logger
	interval  time.Duration
	now       func() time.Time
}

func NewWatcherWorker(
	lifecycle *SignalLifecycleManager,
	feed drepo.PriceFeed,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	interval time.Duration,
) *WatcherWorker {
	return &WatcherWorker{
		lifecycle: lifecycle,
		feed:      feed,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		now:       time.Now,
	}
}

// WithClock overrides the wall clock for tests.
func (w *WatcherWorker) WithClock(now func() time.Time) *WatcherWorker {
	if now != nil {
		w.now = now
	}
	return w
}

// Run blocks until ctx is done.
func (w *WatcherWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher started", xlogger.Duration("interval", w.interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick loads the active set once and evaluates each signal independently.
func (w *WatcherWorker) Tick(ctx context.Context) {
	start := time.Now()
	active, err := w.lifecycle.ActiveSignals(ctx)
	if err != nil {
		w.metrics.RecordError("watcher_load")
		w.logger.Warn("watcher load active failed", xlogger.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, s := range active {
		wg.Add(1)
		go func(s *models.Signal) {
			defer wg.Done()
			if err := w.evaluate(ctx, s); err != nil {
				w.metrics.RecordError("watcher")
				w.logger.Warn("watcher evaluate failed",
					xlogger.String("signal_id", s.ID),
					xlogger.String("asset", s.Asset),
					xlogger.Error(err))
			}
		}(s)
	}
	wg.Wait()
	w.metrics.RecordLatency("watcher_tick", time.Since(start).Seconds())
}

func (w *WatcherWorker) evaluate(ctx context.Context, s *models.Signal) error {
	now := w.now()

	// Expiry sweep runs before the price check so a stale feed cannot keep a
	// dead signal occupying its asset's slot.
	if s.State == models.StateWaitingForEntry && s.Expired(now) {
		_, err := w.lifecycle.CancelExpired(ctx, s, now)
		return err
	}

	q, err := w.feed.Latest(ctx, s.Asset)
	if err != nil {
		// Feed trouble for one asset is a skipped tick, retried next round.
		w.metrics.RecordFeedError("live")
		return nil
	}
	if q == nil {
		return nil
	}
	w.metrics.RecordLastPrice(s.Asset, q.Price)

	switch s.State {
	case models.StateWaitingForEntry:
		if engine.EntryTouched(s, q) {
			_, err := w.lifecycle.MarkEntryHit(ctx, s, now)
			return err
		}
	case models.StateEntryHit:
		switch engine.EvaluateExit(s, q) {
		case engine.ExitTakeProfit:
			_, err := w.lifecycle.MarkTakeProfit(ctx, s, now)
			return err
		case engine.ExitStopLoss:
			_, err := w.lifecycle.MarkStopLoss(ctx, s, now)
			return err
		}
	}
	return nil
}
