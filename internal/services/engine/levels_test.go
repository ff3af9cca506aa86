package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

func levelFixture() LevelConfig {
	return LevelConfig{EntryBand: 0.0005, RiskFraction: 0.004, RewardRisk: 2.0}
}

func TestPlanLevelsBullish(t *testing.T) {
	p, err := PlanLevels(levelFixture(), models.Bullish, 2000)
	require.NoError(t, err)

	assert.InDelta(t, 2000, p.Entry, 1e-9)
	assert.InDelta(t, 1999, p.EntryLow, 1e-9)
	assert.InDelta(t, 2001, p.EntryHigh, 1e-9)
	assert.InDelta(t, 1992, p.StopLoss, 1e-9)
	assert.InDelta(t, 2016, p.TakeProfit, 1e-9)
	assert.Equal(t, 2.0, p.RewardRisk)
}

func TestPlanLevelsBearish(t *testing.T) {
	p, err := PlanLevels(levelFixture(), models.Bearish, 2000)
	require.NoError(t, err)

	assert.InDelta(t, 2008, p.StopLoss, 1e-9)
	assert.InDelta(t, 1984, p.TakeProfit, 1e-9)
	// band is symmetric regardless of direction
	assert.InDelta(t, 1999, p.EntryLow, 1e-9)
	assert.InDelta(t, 2001, p.EntryHigh, 1e-9)
}

func TestPlanLevelsRejectsBadInput(t *testing.T) {
	_, err := PlanLevels(levelFixture(), models.Bullish, 0)
	assert.Error(t, err)

	_, err = PlanLevels(levelFixture(), models.Bullish, -10)
	assert.Error(t, err)

	_, err = PlanLevels(levelFixture(), models.Direction("SIDEWAYS"), 2000)
	assert.Error(t, err)
}

func TestExplainSummarizesWindow(t *testing.T) {
	batch := &models.EvidenceBatch{Items: []models.EvidenceItem{
		{Kind: models.EventBOS, Direction: models.Bullish},
		{Kind: models.EventBOS, Direction: models.Bullish},
		{Kind: models.EventCHoCH, Direction: models.Bullish},
		{Kind: models.EventSwingBreak, Direction: models.Bearish},
	}}
	conf := models.ConfidenceResult{
		Direction: models.Bullish,
		Raw:       0.72,
		Release:   0.86,
		Factors:   models.RefinementFactors{SessionWeight: 1.2, SpreadFactor: 1.0},
	}

	got := Explain(models.Bullish, conf, batch)
	assert.Contains(t, got, "2 BOS")
	assert.Contains(t, got, "1 CHoCH")
	assert.Contains(t, got, "raw 0.72")
	assert.Contains(t, got, "release 0.86")
	// the bearish swing break does not count toward the bullish rationale
	assert.Contains(t, got, "0 swing-break")
}
