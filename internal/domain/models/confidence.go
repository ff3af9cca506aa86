package models

// RefinementFactors are the market-context multipliers the gatekeeper applied
// on top of raw confidence. Kept on the result for explainability.
type RefinementFactors struct {
	SessionWeight    float64 `json:"session_weight"`
	SpreadFactor     float64 `json:"spread_factor"`
	VolatilityFactor float64 `json:"volatility_factor"`
}

// ConfidenceResult is the scorer output for one evidence window, optionally
// refined by the gatekeeper. Derived data, embedded into a Signal at creation.
type ConfidenceResult struct {
	Direction Direction         `json:"direction"`
	Raw       float64           `json:"raw_confidence"`     // [0,1] by construction
	Release   float64           `json:"release_confidence"` // [0,1], capped at 1.0
	Factors   RefinementFactors `json:"refinement_factors"`
}
