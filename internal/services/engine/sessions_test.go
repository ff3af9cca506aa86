package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func atHour(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

func TestHourWindowContains(t *testing.T) {
	w := HourWindow{Start: 12, End: 16}
	assert.True(t, w.Contains(atHour(12, 0)))
	assert.True(t, w.Contains(atHour(15, 59)))
	assert.False(t, w.Contains(atHour(16, 0)))
	assert.False(t, w.Contains(atHour(11, 59)))
}

func TestHourWindowWrapsMidnight(t *testing.T) {
	w := HourWindow{Start: 21, End: 2}
	assert.True(t, w.Contains(atHour(21, 0)))
	assert.True(t, w.Contains(atHour(23, 30)))
	assert.True(t, w.Contains(atHour(1, 59)))
	assert.False(t, w.Contains(atHour(2, 0)))
	assert.False(t, w.Contains(atHour(12, 0)))
}

func TestHourWindowEmpty(t *testing.T) {
	w := HourWindow{Start: 5, End: 5}
	assert.False(t, w.Contains(atHour(5, 0)))
}

func TestHourWindowEvaluatesInUTC(t *testing.T) {
	w := HourWindow{Start: 12, End: 16}
	loc := time.FixedZone("UTC+3", 3*3600)
	// 15:00 local is 12:00 UTC
	assert.True(t, w.Contains(time.Date(2025, 3, 10, 15, 0, 0, 0, loc)))
}

func sessionFixture() SessionConfig {
	return SessionConfig{
		Overlap:        HourWindow{Start: 12, End: 16},
		Standard:       HourWindow{Start: 7, End: 21},
		Rollover:       HourWindow{Start: 21, End: 22},
		OverlapWeight:  1.2,
		StandardWeight: 1.0,
		OffWeight:      0.8,
		RolloverSpread: 0.5,
	}
}

func TestSessionWeightPrecedence(t *testing.T) {
	c := sessionFixture()
	// overlap hours sit inside the standard window but win
	assert.Equal(t, 1.2, c.SessionWeight(atHour(13, 0)))
	assert.Equal(t, 1.0, c.SessionWeight(atHour(8, 0)))
	assert.Equal(t, 0.8, c.SessionWeight(atHour(3, 0)))
}

func TestSpreadFactorOnlyInRollover(t *testing.T) {
	c := sessionFixture()
	assert.Equal(t, 0.5, c.SpreadFactor(atHour(21, 30)))
	assert.Equal(t, 1.0, c.SpreadFactor(atHour(13, 0)))
}
