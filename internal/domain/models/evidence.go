package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// EventKind identifies the structural pattern the detector emitted.
type EventKind string

const (
	EventBOS        EventKind = "BOS"
	EventCHoCH      EventKind = "CHOCH"
	EventSwingBreak EventKind = "SWING_BREAK"
)

// Direction is the bias of a structural event or a signal.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == Bullish {
		return Bearish
	}
	return Bullish
}

// EvidenceItem is one scored structural event from the upstream detector.
// Items are immutable once produced and consumed exactly once per window.
type EvidenceItem struct {
	Kind         EventKind `json:"kind"`
	Direction    Direction `json:"direction"`
	BaseScore    float64   `json:"base_score"`
	BodyStrength float64   `json:"body_strength"` // [0,1]
	CloseBonus   float64   `json:"close_bonus"`   // 0 or 0.2
	BodyBoost    float64   `json:"body_boost"`    // [-0.2,0.2]
}

// EvidenceBatch is the full evidence window for one asset and one analysis tick.
type EvidenceBatch struct {
	Asset          string         `json:"asset"`
	WindowStart    time.Time      `json:"window_start"`
	WindowEnd      time.Time      `json:"window_end"`
	ReferencePrice float64        `json:"reference_price"` // close of the window, used for level planning
	Items          []EvidenceItem `json:"items"`
}

// Fingerprint returns a stable content hash of the window. Two ticks that
// describe the same underlying structural event produce the same fingerprint,
// which is what makes signal creation idempotent across analyzer retries.
func (b *EvidenceBatch) Fingerprint() string {
	parts := make([]string, 0, len(b.Items)+2)
	parts = append(parts, b.Asset, b.WindowStart.UTC().Format(time.RFC3339))
	for _, it := range b.Items {
		parts = append(parts, fmt.Sprintf("%s|%s|%.4f|%.4f|%.4f|%.4f",
			it.Kind, it.Direction, it.BaseScore, it.BodyStrength, it.CloseBonus, it.BodyBoost))
	}
	sort.Strings(parts[2:])
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(sum[:16])
}
