package engine

import (
	"SignalGate/internal/domain/models"
)

// EvidenceScorer folds a window of structural evidence into one directional
// raw-confidence value. Stateless; safe for concurrent use.
type EvidenceScorer struct{}

func NewEvidenceScorer() *EvidenceScorer { return &EvidenceScorer{} }

// effectiveScore weighs one item: base × strength × quality, where strength
// rewards candle body conviction and quality folds in the detector's
// body-boost adjustment.
func effectiveScore(it models.EvidenceItem) float64 {
	strength := 0.5 + it.BodyStrength*0.3 + it.CloseBonus
	quality := 0.7 + it.BodyBoost
	return it.BaseScore * strength * quality
}

// Score produces the window's ConfidenceResult. The second return is false
// when the window carries no scoring weight on either side: no evidence means
// no candidate, which is a normal tick outcome rather than an error.
//
// Raw confidence is |bull − bear| / (bull + bear): a zero-sum-normalized
// disagreement measure, bounded to [0,1] by construction. It is not a
// probability.
func (sc *EvidenceScorer) Score(items []models.EvidenceItem) (models.ConfidenceResult, bool) {
	var bull, bear float64
	for _, it := range items {
		s := effectiveScore(it)
		switch it.Direction {
		case models.Bullish:
			bull += s
		case models.Bearish:
			bear += s
		}
	}

	total := bull + bear
	if total == 0 {
		return models.ConfidenceResult{}, false
	}

	dir := models.Bullish
	if bear > bull {
		dir = models.Bearish
	}
	diff := bull - bear
	if diff < 0 {
		diff = -diff
	}

	return models.ConfidenceResult{
		Direction: dir,
		Raw:       diff / total,
	}, true
}
