package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/services/engine"
	xlogger "SignalGate/pkg/logger"
)

// AnalyzerWorker runs on a fixed interval, pulls the latest evidence window
// per tracked asset, scores it, and requests signal creation when the
// gatekeeper approves. Each tick is a pure function of current persisted
// truth; a failed tick for one asset never blocks the others and simply
// retries on the next schedule.
type AnalyzerWorker struct {
	assets    []string
	evidence  drepo.EvidenceSource
	scorer    *engine.EvidenceScorer
	gate      *engine.ReleaseGatekeeper
	lifecycle *SignalLifecycleManager
	metrics   drepo.Metrics
	logger    *xlogger.Logger
	interval  time.Duration
}

func NewAnalyzerWorker(
	assets []string,
	evidence drepo.EvidenceSource,
	scorer *engine.EvidenceScorer,
	gate *engine.ReleaseGatekeeper,
	lifecycle *SignalLifecycleManager,
	metrics drepo.Metrics,
	logger *xlogger.Logger,
	interval time.Duration,
) *AnalyzerWorker {
	return &AnalyzerWorker{
		assets:    assets,
		evidence:  evidence,
		scorer:    scorer,
		gate:      gate,
		lifecycle: lifecycle,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
	}
}

// Run blocks until ctx is done, evaluating every asset once per interval.
func (w *AnalyzerWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("analyzer started",
		xlogger.Strings("assets", w.assets),
		xlogger.Duration("interval", w.interval),
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick evaluates all assets concurrently; per-asset isolation keeps a slow or
// failing asset from stalling the rest of the tick.
func (w *AnalyzerWorker) Tick(ctx context.Context) {
	var wg sync.WaitGroup
	for _, asset := range w.assets {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			if err := w.evaluate(ctx, asset); err != nil {
				w.metrics.RecordError("analyzer")
				w.logger.Warn("analyzer tick failed",
					xlogger.String("asset", asset), xlogger.Error(err))
			}
		}(asset)
	}
	wg.Wait()
}

func (w *AnalyzerWorker) evaluate(ctx context.Context, asset string) error {
	start := time.Now()
	defer func() {
		w.metrics.RecordLatency("analyzer_evaluate", time.Since(start).Seconds())
	}()

	batch, err := w.evidence.Latest(ctx, asset)
	if err != nil {
		return err
	}
	if batch == nil || len(batch.Items) == 0 {
		// No evidence this tick: no candidate, nothing to log.
		return nil
	}

	conf, ok := w.scorer.Score(batch.Items)
	if !ok {
		return nil
	}

	verdict, err := w.gate.Evaluate(ctx, asset, conf)
	if err != nil {
		return err
	}
	if !verdict.Approved {
		w.metrics.RecordRejection(asset, string(verdict.Reason))
		return nil
	}

	_, err = w.lifecycle.CreateFromApproval(ctx, batch, verdict.Confidence)
	switch {
	case errors.Is(err, drepo.ErrDuplicate):
		// A retry described the same underlying event; already published.
		w.logger.Debug("duplicate evidence window skipped",
			xlogger.String("asset", asset),
			xlogger.String("fingerprint", batch.Fingerprint()))
		return nil
	case errors.Is(err, drepo.ErrOverlap):
		// Lost the approval race to a concurrent tick; the winner holds the
		// asset's slot and later reads will observe it.
		w.metrics.RecordRejection(asset, string(engine.RejectOverlap))
		return nil
	case err != nil:
		return err
	}
	return nil
}
