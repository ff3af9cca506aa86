package models

import "time"

// CheckType is the lifecycle level the reconciler compared against.
type CheckType string

const (
	CheckEntry CheckType = "ENTRY"
	CheckTP    CheckType = "TP"
	CheckSL    CheckType = "SL"
)

// DiscrepancyType classifies a mismatch between the alternate feed and the
// main system's believed state.
type DiscrepancyType string

const (
	DiscrepancyNone        DiscrepancyType = ""
	DiscrepancyEntryTiming DiscrepancyType = "ENTRY_TIMING_DELAY"
	DiscrepancyMissedExit  DiscrepancyType = "MISSED_EXIT"
	DiscrepancySlippage    DiscrepancyType = "PRICE_SLIPPAGE"
	DiscrepancyStaleState  DiscrepancyType = "STALE_STATE"
)

// ValidationObservation is one append-only ground-truth record produced by the
// reconciler. It references a Signal but never influences its lifecycle.
type ValidationObservation struct {
	ID            string          `json:"id"`
	SignalID      string          `json:"signal_id"`
	Asset         string          `json:"asset"`
	FeedSource    string          `json:"feed_source"`
	ObservedPrice float64         `json:"observed_price"`
	ObservedHigh  float64         `json:"observed_high"`
	ObservedLow   float64         `json:"observed_low"`
	CheckType     CheckType       `json:"check_type"`
	MainState     SignalState     `json:"main_system_state"`
	IsDiscrepancy bool            `json:"is_discrepancy"`
	Discrepancy   DiscrepancyType `json:"discrepancy_type,omitempty"`
	LatencyMS     int64           `json:"latency_ms"`
	Context       string          `json:"extra_context,omitempty"`
	CheckedAt     time.Time       `json:"checked_at"`
}
