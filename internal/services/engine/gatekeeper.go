package engine

import (
	"context"
	"fmt"
	"time"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	xlogger "SignalGate/pkg/logger"
)

// RejectReason identifies which gating rule failed. A rejection is a normal,
// expected outcome: it produces no signal and no error.
type RejectReason string

const (
	RejectThreshold RejectReason = "threshold"
	RejectOverlap   RejectReason = "overlap"
	RejectCooldown  RejectReason = "cooldown"
)

// VolatilityAdjuster is the pluggable volatility refinement hook. The baseline
// implementation returns 1.0; core correctness does not depend on it.
type VolatilityAdjuster interface {
	Factor(ctx context.Context, asset string, at time.Time) float64
}

type unitVolatility struct{}

func (unitVolatility) Factor(context.Context, string, time.Time) float64 { return 1.0 }

// GateConfig holds the publication rules with documented units.
type GateConfig struct {
	// MinReleaseConfidence is the publish threshold as a fraction in (0,1].
	MinReleaseConfidence float64 `yaml:"min_release_confidence" default:"0.65" validate:"gt=0,lte=1"`
	// Cooldown is the minimum gap since the asset's last generated signal.
	Cooldown time.Duration `yaml:"cooldown" default:"30m" validate:"gt=0"`
	Sessions SessionConfig `yaml:"sessions"`
}

// Verdict is the gatekeeper's decision for one candidate.
type Verdict struct {
	Approved   bool
	Reason     RejectReason
	Confidence models.ConfidenceResult
}

// ReleaseGatekeeper refines raw confidence with market-context multipliers and
// enforces the publication rules (threshold, anti-overlap, cooldown) against
// the persisted signal store. It never mutates the store.
type ReleaseGatekeeper struct {
	cfg    GateConfig
	store  drepo.SignalStore
	vol    VolatilityAdjuster
	logger *xlogger.Logger
	now    func() time.Time
}

func NewReleaseGatekeeper(cfg GateConfig, store drepo.SignalStore, logger *xlogger.Logger) *ReleaseGatekeeper {
	return &ReleaseGatekeeper{
		cfg:    cfg,
		store:  store,
		vol:    unitVolatility{},
		logger: logger,
		now:    time.Now,
	}
}

// WithVolatilityAdjuster replaces the baseline volatility hook.
func (g *ReleaseGatekeeper) WithVolatilityAdjuster(v VolatilityAdjuster) *ReleaseGatekeeper {
	if v != nil {
		g.vol = v
	}
	return g
}

// WithClock overrides the wall clock, used by tests and delayed evaluation.
func (g *ReleaseGatekeeper) WithClock(now func() time.Time) *ReleaseGatekeeper {
	if now != nil {
		g.now = now
	}
	return g
}

// Refine applies the context multipliers to a raw result at the given check
// time. The release confidence is capped at 1.0 regardless of the product.
func (g *ReleaseGatekeeper) Refine(ctx context.Context, asset string, raw models.ConfidenceResult, at time.Time) models.ConfidenceResult {
	factors := models.RefinementFactors{
		SessionWeight:    g.cfg.Sessions.SessionWeight(at),
		SpreadFactor:     g.cfg.Sessions.SpreadFactor(at),
		VolatilityFactor: g.vol.Factor(ctx, asset, at),
	}
	release := raw.Raw * factors.SessionWeight * factors.SpreadFactor * factors.VolatilityFactor
	if release > 1.0 {
		release = 1.0
	}
	raw.Release = release
	raw.Factors = factors
	return raw
}

// Evaluate refines the candidate and checks the three publication rules. All
// rules must hold to approve. The failing rule is logged for observability;
// the caller only sees the verdict.
func (g *ReleaseGatekeeper) Evaluate(ctx context.Context, asset string, raw models.ConfidenceResult) (Verdict, error) {
	at := g.now()
	conf := g.Refine(ctx, asset, raw, at)

	if conf.Release < g.cfg.MinReleaseConfidence {
		g.reject(asset, RejectThreshold, conf)
		return Verdict{Reason: RejectThreshold, Confidence: conf}, nil
	}

	active, err := g.store.ActiveByAsset(ctx, asset)
	if err != nil {
		return Verdict{}, fmt.Errorf("gatekeeper read active: %w", err)
	}
	if active != nil && active.State.IsActive() {
		g.reject(asset, RejectOverlap, conf)
		return Verdict{Reason: RejectOverlap, Confidence: conf}, nil
	}

	last, err := g.store.LastGeneratedAt(ctx, asset)
	if err != nil {
		return Verdict{}, fmt.Errorf("gatekeeper read last: %w", err)
	}
	if !last.IsZero() && at.Sub(last) < g.cfg.Cooldown {
		g.reject(asset, RejectCooldown, conf)
		return Verdict{Reason: RejectCooldown, Confidence: conf}, nil
	}

	return Verdict{Approved: true, Confidence: conf}, nil
}

func (g *ReleaseGatekeeper) reject(asset string, reason RejectReason, conf models.ConfidenceResult) {
	if g.logger == nil {
		return
	}
	g.logger.Debug("candidate rejected",
		xlogger.String("asset", asset),
		xlogger.String("reason", string(reason)),
		xlogger.Any("release_confidence", conf.Release),
	)
}
