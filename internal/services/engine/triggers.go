package engine

import (
	"math"

	"SignalGate/internal/domain/models"
)

// ExitSide is the outcome of evaluating TP/SL crossings for one observation.
type ExitSide int

const (
	ExitNone ExitSide = iota
	ExitTakeProfit
	ExitStopLoss
)

// EntryTouched reports whether the observed price span crossed into the
// signal's entry band [entry_low, entry_high].
func EntryTouched(s *models.Signal, q *models.Quote) bool {
	high, low := q.Span()
	return low <= s.EntryHigh && high >= s.EntryLow
}

// EvaluateExit checks whether the observed span crossed the signal's TP or SL
// level. When both levels are inside the same span, the side whose level is
// closer to the entry price along the signal's direction wins, since a
// monotonic path from entry reaches it first. Indistinguishable distances
// resolve to the stop (conservative tie-break).
func EvaluateExit(s *models.Signal, q *models.Quote) ExitSide {
	high, low := q.Span()

	var tpHit, slHit bool
	switch s.Direction {
	case models.Bullish:
		tpHit = high >= s.TakeProfit
		slHit = low <= s.StopLoss
	case models.Bearish:
		tpHit = low <= s.TakeProfit
		slHit = high >= s.StopLoss
	}

	switch {
	case tpHit && slHit:
		tpDist := math.Abs(s.TakeProfit - s.EntryPrice)
		slDist := math.Abs(s.StopLoss - s.EntryPrice)
		if tpDist < slDist {
			return ExitTakeProfit
		}
		return ExitStopLoss
	case tpHit:
		return ExitTakeProfit
	case slHit:
		return ExitStopLoss
	}
	return ExitNone
}
