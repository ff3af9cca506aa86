package models

import "time"

// Quote is the latest observed price for an asset. High/Low cover the span
// since the previous observation so single-tick range crossings are visible;
// for a bare tick they equal Price.
type Quote struct {
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Timestamp time.Time `json:"timestamp"`
}

// Span returns high/low, falling back to the tick price when the feed did not
// supply a range.
func (q *Quote) Span() (high, low float64) {
	high, low = q.High, q.Low
	if high == 0 {
		high = q.Price
	}
	if low == 0 {
		low = q.Price
	}
	return high, low
}

// Candle is one OHLC bar from the alternate feed, used by the reconciler.
type Candle struct {
	Asset  string    `json:"asset"`
	Bucket time.Time `json:"bucket"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}
