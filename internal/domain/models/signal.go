package models

import "time"

// SignalState is the lifecycle state of a published signal.
type SignalState string

const (
	StateCreated         SignalState = "CREATED"
	StateWaitingForEntry SignalState = "WAITING_FOR_ENTRY"
	StateEntryHit        SignalState = "ENTRY_HIT"
	StateTPHit           SignalState = "TP_HIT"
	StateSLHit           SignalState = "SL_HIT"
	StateCancelled       SignalState = "CANCELLED"
)

// SignalResult is the terminal outcome. Set iff the state is terminal.
type SignalResult string

const (
	ResultProfit    SignalResult = "PROFIT"
	ResultLoss      SignalResult = "LOSS"
	ResultCancelled SignalResult = "CANCELLED"
)

// IsTerminal reports whether no transition may leave the state.
func (s SignalState) IsTerminal() bool {
	switch s {
	case StateTPHit, StateSLHit, StateCancelled:
		return true
	}
	return false
}

// IsActive reports whether the signal still occupies its asset's anti-overlap
// slot (entry pending or filled).
func (s SignalState) IsActive() bool {
	return s == StateWaitingForEntry || s == StateEntryHit
}

// CanTransition reports whether from → to is a legal edge of the lifecycle
// state machine. No skipped states, no edges out of terminal states.
func CanTransition(from, to SignalState) bool {
	switch from {
	case StateCreated:
		return to == StateWaitingForEntry
	case StateWaitingForEntry:
		return to == StateEntryHit || to == StateCancelled
	case StateEntryHit:
		return to == StateTPHit || to == StateSLHit
	}
	return false
}

// ResultFor returns the result a terminal state implies, or "" for
// non-terminal states.
func ResultFor(state SignalState) SignalResult {
	switch state {
	case StateTPHit:
		return ResultProfit
	case StateSLHit:
		return ResultLoss
	case StateCancelled:
		return ResultCancelled
	}
	return ""
}

// Signal is the central entity tracked by the lifecycle engine.
//
// Everything except State, EntryHitAt, Result and ClosedAt is immutable after
// creation. Signals are never deleted; terminal ones are archived for audit.
type Signal struct {
	ID       string `json:"id"`
	Asset    string `json:"asset"`
	Strategy string `json:"strategy"`

	Direction   Direction        `json:"direction"`
	EntryPrice  float64          `json:"entry_price"`
	EntryLow    float64          `json:"entry_low"`
	EntryHigh   float64          `json:"entry_high"`
	TakeProfit  float64          `json:"take_profit"`
	StopLoss    float64          `json:"stop_loss"`
	Strength    float64          `json:"strength"` // release confidence at approval
	RewardRisk  float64          `json:"reward_risk_ratio"`
	Explanation string           `json:"explanation"`
	Fingerprint string           `json:"fingerprint"`
	Confidence  ConfidenceResult `json:"confidence"`
	GeneratedAt time.Time        `json:"generated_at"`
	ExpiryAt    time.Time        `json:"expiry_at"`

	State      SignalState  `json:"state"`
	EntryHitAt *time.Time   `json:"entry_hit_at,omitempty"`
	Result     SignalResult `json:"result,omitempty"`
	ClosedAt   *time.Time   `json:"closed_at,omitempty"`
}

// Expired reports whether the entry window has passed at now.
func (s *Signal) Expired(now time.Time) bool {
	return now.After(s.ExpiryAt)
}
