package models

// Requests for the read-only signal API. Defined in domain for consistency and
// reuse.

type ActiveSignalsRequest struct {
	Asset string `query:"asset" json:"asset"`
}

type SignalHistoryRequest struct {
	Asset string `query:"asset" json:"asset" validate:"required"`
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type ObservationsRequest struct {
	SignalID string `query:"signal_id" json:"signal_id" validate:"required"`
}

type DiscrepanciesRequest struct {
	// From and To bound the checked_at window, RFC3339. Defaults to the last
	// 24 hours when omitted.
	From  string `query:"from" json:"from"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=2000"`
}
