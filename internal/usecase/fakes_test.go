package usecase

import (
	"context"
	"sync"
	"time"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	xlogger "SignalGate/pkg/logger"
)

func testLogger() *xlogger.Logger {
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		panic(err)
	}
	return l
}

// memSignalStore is an in-memory SignalStore with the same conditional-write
// contract as the Redis implementation.
type memSignalStore struct {
	mu      sync.Mutex
	signals map[string]*models.Signal
	active  map[string]string // asset -> id
	fps     map[string]string // fingerprint -> id
	last    map[string]time.Time
}

func newMemSignalStore() *memSignalStore {
	return &memSignalStore{
		signals: make(map[string]*models.Signal),
		active:  make(map[string]string),
		fps:     make(map[string]string),
		last:    make(map[string]time.Time),
	}
}

func (s *memSignalStore) Create(_ context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fps[sig.Fingerprint]; ok {
		return drepo.ErrDuplicate
	}
	if _, ok := s.active[sig.Asset]; ok {
		return drepo.ErrOverlap
	}
	cp := *sig
	s.signals[sig.ID] = &cp
	s.active[sig.Asset] = sig.ID
	s.fps[sig.Fingerprint] = sig.ID
	s.last[sig.Asset] = sig.GeneratedAt
	return nil
}

func (s *memSignalStore) Transition(_ context.Context, id string, expected, next models.SignalState, patch drepo.TransitionPatch) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[id]
	if !ok {
		return false, nil
	}
	if sig.State != expected {
		return false, nil
	}
	sig.State = next
	if patch.EntryHitAt != nil {
		sig.EntryHitAt = patch.EntryHitAt
	}
	if patch.Result != "" {
		sig.Result = patch.Result
	}
	if patch.ClosedAt != nil {
		sig.ClosedAt = patch.ClosedAt
	}
	if next.IsTerminal() {
		if s.active[sig.Asset] == id {
			delete(s.active, sig.Asset)
		}
	}
	return true, nil
}

func (s *memSignalStore) Get(_ context.Context, id string) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sig, ok := s.signals[id]
	if !ok {
		return nil, nil
	}
	cp := *sig
	return &cp, nil
}

func (s *memSignalStore) ActiveByAsset(_ context.Context, asset string) (*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.active[asset]
	if !ok {
		return nil, nil
	}
	cp := *s.signals[id]
	return &cp, nil
}

func (s *memSignalStore) ListActive(_ context.Context) ([]*models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Signal, 0, len(s.active))
	for _, id := range s.active {
		cp := *s.signals[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memSignalStore) LastGeneratedAt(_ context.Context, asset string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[asset], nil
}

func (s *memSignalStore) Health(context.Context) error { return nil }
func (s *memSignalStore) Close() error                 { return nil }

// memArchive records archived signals.
type memArchive struct {
	mu   sync.Mutex
	rows []*models.Signal
}

func (a *memArchive) Archive(_ context.Context, s *models.Signal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := *s
	a.rows = append(a.rows, &cp)
	return nil
}

func (a *memArchive) History(_ context.Context, asset string, limit int) ([]*models.Signal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.Signal, 0, limit)
	for i := len(a.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if a.rows[i].Asset == asset {
			out = append(out, a.rows[i])
		}
	}
	return out, nil
}

// memEvents records published lifecycle events.
type memEvents struct {
	mu          sync.Mutex
	created     []string
	transitions []string
}

func (e *memEvents) SignalCreated(_ context.Context, s *models.Signal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.created = append(e.created, s.ID)
	return nil
}

func (e *memEvents) SignalTransitioned(_ context.Context, s *models.Signal, from models.SignalState) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitions = append(e.transitions, string(from)+">"+string(s.State))
	return nil
}

func (e *memEvents) Close() error { return nil }

// memMetrics counts recorder calls by label.
type memMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemMetrics() *memMetrics { return &memMetrics{counts: make(map[string]int)} }

func (m *memMetrics) inc(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[k]++
}

func (m *memMetrics) count(k string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[k]
}

func (m *memMetrics) RecordApproval(asset string)          { m.inc("approval:" + asset) }
func (m *memMetrics) RecordRejection(asset, reason string) { m.inc("reject:" + asset + ":" + reason) }
func (m *memMetrics) RecordTransition(from, to string)     { m.inc("transition:" + from + ">" + to) }
func (m *memMetrics) RecordDiscrepancy(kind string)        { m.inc("discrepancy:" + kind) }
func (m *memMetrics) RecordFeedError(feed string)          { m.inc("feed_error:" + feed) }
func (m *memMetrics) RecordError(kind string)              { m.inc("error:" + kind) }
func (m *memMetrics) RecordLastPrice(string, float64)      {}
func (m *memMetrics) RecordLatency(string, float64)        {}

// memObservations records appended observations.
type memObservations struct {
	mu   sync.Mutex
	rows []*models.ValidationObservation
}

func (o *memObservations) Append(_ context.Context, row *models.ValidationObservation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	cp := *row
	o.rows = append(o.rows, &cp)
	return nil
}

func (o *memObservations) BySignal(_ context.Context, signalID string) ([]*models.ValidationObservation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*models.ValidationObservation
	for _, r := range o.rows {
		if r.SignalID == signalID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (o *memObservations) Discrepancies(_ context.Context, from, to time.Time, limit int) ([]*models.ValidationObservation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*models.ValidationObservation
	for _, r := range o.rows {
		if r.IsDiscrepancy && !r.CheckedAt.Before(from) && !r.CheckedAt.After(to) && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (o *memObservations) Health(context.Context) error { return nil }

// stubEvidence serves a fixed batch per asset.
type stubEvidence struct {
	mu      sync.Mutex
	batches map[string]*models.EvidenceBatch
}

func (e *stubEvidence) set(b *models.EvidenceBatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.batches == nil {
		e.batches = make(map[string]*models.EvidenceBatch)
	}
	e.batches[b.Asset] = b
}

func (e *stubEvidence) Latest(_ context.Context, asset string) (*models.EvidenceBatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.batches[asset], nil
}

// stubPriceFeed serves one quote per asset, or an error.
type stubPriceFeed struct {
	mu     sync.Mutex
	quotes map[string]*models.Quote
	err    error
}

func (f *stubPriceFeed) set(q *models.Quote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.quotes == nil {
		f.quotes = make(map[string]*models.Quote)
	}
	f.quotes[q.Asset] = q
}

func (f *stubPriceFeed) Latest(_ context.Context, asset string) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes[asset], nil
}

// stubAltFeed serves one candle per asset, or an error.
type stubAltFeed struct {
	mu      sync.Mutex
	candles map[string]*models.Candle
	err     error
}

func (f *stubAltFeed) Source() string { return "alt-test" }

func (f *stubAltFeed) set(c *models.Candle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.candles == nil {
		f.candles = make(map[string]*models.Candle)
	}
	f.candles[c.Asset] = c
}

func (f *stubAltFeed) LatestCandle(_ context.Context, asset string) (*models.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.candles[asset], nil
}
