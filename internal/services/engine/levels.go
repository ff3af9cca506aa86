package engine

import (
	"fmt"

	"SignalGate/internal/domain/models"
)

// LevelConfig controls how entry/TP/SL levels are planned from the evidence
// window's reference price. Fractions are of the reference price.
type LevelConfig struct {
	// EntryBand is the half-width of the entry zone, e.g. 0.0005 = ±0.05%.
	EntryBand float64 `yaml:"entry_band" default:"0.0005" validate:"gt=0"`
	// RiskFraction is the stop distance from entry, e.g. 0.004 = 0.4%.
	RiskFraction float64 `yaml:"risk_fraction" default:"0.004" validate:"gt=0"`
	// RewardRisk is the TP distance as a multiple of the stop distance.
	RewardRisk float64 `yaml:"reward_risk" default:"2.0" validate:"gt=0"`
}

// LevelPlan is the immutable price geometry of a signal at creation.
type LevelPlan struct {
	Entry      float64
	EntryLow   float64
	EntryHigh  float64
	TakeProfit float64
	StopLoss   float64
	RewardRisk float64
}

// PlanLevels derives the signal's price levels from the window reference
// price. The stop sits RiskFraction away against the direction, the target
// RewardRisk times that distance with it.
func PlanLevels(cfg LevelConfig, dir models.Direction, refPrice float64) (LevelPlan, error) {
	if refPrice <= 0 {
		return LevelPlan{}, fmt.Errorf("plan levels: reference price %v not positive", refPrice)
	}

	band := refPrice * cfg.EntryBand
	risk := refPrice * cfg.RiskFraction
	reward := risk * cfg.RewardRisk

	p := LevelPlan{
		Entry:      refPrice,
		EntryLow:   refPrice - band,
		EntryHigh:  refPrice + band,
		RewardRisk: cfg.RewardRisk,
	}
	switch dir {
	case models.Bullish:
		p.StopLoss = refPrice - risk
		p.TakeProfit = refPrice + reward
	case models.Bearish:
		p.StopLoss = refPrice + risk
		p.TakeProfit = refPrice - reward
	default:
		return LevelPlan{}, fmt.Errorf("plan levels: unknown direction %q", dir)
	}
	return p, nil
}

// Explain renders the human-readable rationale stored on the signal.
func Explain(dir models.Direction, conf models.ConfidenceResult, batch *models.EvidenceBatch) string {
	kinds := map[models.EventKind]int{}
	for _, it := range batch.Items {
		if it.Direction == dir {
			kinds[it.Kind]++
		}
	}
	return fmt.Sprintf("%s bias from %d BOS, %d CHoCH, %d swing-break events; raw %.2f, release %.2f (session %.2f, spread %.2f)",
		dir, kinds[models.EventBOS], kinds[models.EventCHoCH], kinds[models.EventSwingBreak],
		conf.Raw, conf.Release, conf.Factors.SessionWeight, conf.Factors.SpreadFactor)
}
