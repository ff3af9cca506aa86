package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	xlogger "SignalGate/pkg/logger"
)

// gateStore feeds the gatekeeper's two reads.
type gateStore struct {
	active *models.Signal
	last   time.Time
}

func (s *gateStore) Create(context.Context, *models.Signal) error { return nil }
func (s *gateStore) Transition(context.Context, string, models.SignalState, models.SignalState, drepo.TransitionPatch) (bool, error) {
	return false, nil
}
func (s *gateStore) Get(context.Context, string) (*models.Signal, error) { return nil, nil }
func (s *gateStore) ActiveByAsset(context.Context, string) (*models.Signal, error) {
	return s.active, nil
}
func (s *gateStore) ListActive(context.Context) ([]*models.Signal, error) { return nil, nil }
func (s *gateStore) LastGeneratedAt(context.Context, string) (time.Time, error) {
	return s.last, nil
}
func (s *gateStore) Health(context.Context) error { return nil }
func (s *gateStore) Close() error                 { return nil }

func gateConfig() GateConfig {
	return GateConfig{
		MinReleaseConfidence: 0.65,
		Cooldown:             30 * time.Minute,
		Sessions: SessionConfig{
			Overlap:        HourWindow{Start: 12, End: 16},
			Standard:       HourWindow{Start: 7, End: 21},
			Rollover:       HourWindow{Start: 21, End: 22},
			OverlapWeight:  1.2,
			StandardWeight: 1.0,
			OffWeight:      0.8,
			RolloverSpread: 0.5,
		},
	}
}

func gateLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)
	return l
}

func newGate(t *testing.T, store *gateStore, at time.Time) *ReleaseGatekeeper {
	t.Helper()
	return NewReleaseGatekeeper(gateConfig(), store, gateLogger(t)).
		WithClock(func() time.Time { return at })
}

func raw(v float64) models.ConfidenceResult {
	return models.ConfidenceResult{Direction: models.Bullish, Raw: v}
}

func TestEvaluateApprovesStrongOffSessionCandidate(t *testing.T) {
	// 02:00 UTC is outside every window: weight 0.8, spread 1.0
	at := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	g := newGate(t, &gateStore{}, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.85))
	require.NoError(t, err)
	assert.True(t, v.Approved)
	assert.InDelta(t, 0.68, v.Confidence.Release, 1e-9)
	assert.InDelta(t, 0.8, v.Confidence.Factors.SessionWeight, 1e-9)
}

func TestEvaluateApprovesOverlapBoostedCandidate(t *testing.T) {
	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	g := newGate(t, &gateStore{}, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.70))
	require.NoError(t, err)
	assert.True(t, v.Approved)
	assert.InDelta(t, 0.84, v.Confidence.Release, 1e-9)
	assert.InDelta(t, 1.2, v.Confidence.Factors.SessionWeight, 1e-9)
}

func TestEvaluateRejectsBelowThreshold(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) // standard session, ×1.0
	g := newGate(t, &gateStore{}, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.60))
	require.NoError(t, err)
	assert.False(t, v.Approved)
	assert.Equal(t, RejectThreshold, v.Reason)
}

func TestEvaluateRolloverSpreadSuppressesCandidate(t *testing.T) {
	at := time.Date(2025, 3, 10, 21, 30, 0, 0, time.UTC)
	g := newGate(t, &gateStore{}, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.90))
	require.NoError(t, err)
	assert.False(t, v.Approved)
	assert.Equal(t, RejectThreshold, v.Reason)
	// off-session 0.8 × rollover spread 0.5
	assert.InDelta(t, 0.36, v.Confidence.Release, 1e-9)
	assert.InDelta(t, 0.5, v.Confidence.Factors.SpreadFactor, 1e-9)
}

func TestEvaluateRejectsWhileSignalActive(t *testing.T) {
	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	store := &gateStore{active: &models.Signal{ID: "s1", Asset: "XAUUSD", State: models.StateEntryHit}}
	g := newGate(t, store, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.95))
	require.NoError(t, err)
	assert.False(t, v.Approved)
	assert.Equal(t, RejectOverlap, v.Reason)
}

func TestEvaluateRejectsInsideCooldown(t *testing.T) {
	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	store := &gateStore{last: at.Add(-10 * time.Minute)}
	g := newGate(t, store, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.95))
	require.NoError(t, err)
	assert.False(t, v.Approved)
	assert.Equal(t, RejectCooldown, v.Reason)
}

func TestEvaluateApprovesAfterCooldownElapsed(t *testing.T) {
	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	store := &gateStore{last: at.Add(-31 * time.Minute)}
	g := newGate(t, store, at)

	v, err := g.Evaluate(context.Background(), "XAUUSD", raw(0.95))
	require.NoError(t, err)
	assert.True(t, v.Approved)
}

func TestRefineCapsReleaseAtOne(t *testing.T) {
	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	g := newGate(t, &gateStore{}, at)

	conf := g.Refine(context.Background(), "XAUUSD", raw(0.95), at)
	assert.InDelta(t, 1.0, conf.Release, 1e-9)
}
