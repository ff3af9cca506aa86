package engine

import "time"

// HourWindow is a [Start,End) window of UTC hours. Windows may wrap past
// midnight (Start > End), e.g. {21, 2} covers 21:00–02:00 UTC.
type HourWindow struct {
	Start int `yaml:"start" validate:"gte=0,lte=23"`
	End   int `yaml:"end" validate:"gte=0,lte=24"`
}

// Contains reports whether t (evaluated in UTC) falls inside the window.
func (w HourWindow) Contains(t time.Time) bool {
	h := t.UTC().Hour()
	if w.Start == w.End {
		return false
	}
	if w.Start < w.End {
		return h >= w.Start && h < w.End
	}
	return h >= w.Start || h < w.End
}

// SessionConfig defines the market-context windows and their weights. Hours
// are UTC; weights are multipliers applied to raw confidence. Windows are
// always evaluated against the check time, not signal-generation time, so a
// delayed evaluation still sees the session it actually runs in.
type SessionConfig struct {
	// Overlap is the high-liquidity window (London/New York overlap).
	Overlap HourWindow `yaml:"overlap"`
	// Standard is the regular-liquidity session window.
	Standard HourWindow `yaml:"standard"`
	// Rollover is the elevated-spread window around the daily rollover.
	Rollover HourWindow `yaml:"rollover"`

	OverlapWeight  float64 `yaml:"overlap_weight" default:"1.2" validate:"gt=0"`
	StandardWeight float64 `yaml:"standard_weight" default:"1.0" validate:"gt=0"`
	OffWeight      float64 `yaml:"off_weight" default:"0.8" validate:"gt=0"`
	RolloverSpread float64 `yaml:"rollover_spread" default:"0.5" validate:"gt=0,lte=1"`
}

// SessionWeight returns the time-of-day liquidity multiplier at t.
func (c SessionConfig) SessionWeight(t time.Time) float64 {
	switch {
	case c.Overlap.Contains(t):
		return c.OverlapWeight
	case c.Standard.Contains(t):
		return c.StandardWeight
	default:
		return c.OffWeight
	}
}

// SpreadFactor returns the transaction-cost multiplier at t.
func (c SessionConfig) SpreadFactor(t time.Time) float64 {
	if c.Rollover.Contains(t) {
		return c.RolloverSpread
	}
	return 1.0
}
