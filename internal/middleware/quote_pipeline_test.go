package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalGate/internal/domain/models"
)

type recordSink struct {
	mu       sync.Mutex
	accepted []*models.Quote
	err      error
}

func (s *recordSink) Accept(_ context.Context, q *models.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.accepted = append(s.accepted, q)
	return nil
}

func (s *recordSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accepted)
}

type countMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newCountMetrics() *countMetrics { return &countMetrics{errors: map[string]int{}} }

func (m *countMetrics) RecordApproval(string)           {}
func (m *countMetrics) RecordRejection(string, string)  {}
func (m *countMetrics) RecordTransition(string, string) {}
func (m *countMetrics) RecordDiscrepancy(string)        {}
func (m *countMetrics) RecordFeedError(string)          {}
func (m *countMetrics) RecordLastPrice(string, float64) {}
func (m *countMetrics) RecordLatency(string, float64)   {}
func (m *countMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *countMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func validTick(asset string, price float64) *models.Quote {
	return &models.Quote{Asset: asset, Price: price, Timestamp: time.Now()}
}

func TestProcessForwardsValidQuote(t *testing.T) {
	sink := &recordSink{}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m)

	err := p.Process(context.Background(), validTick("XAUUSD", 2000))
	require.NoError(t, err)
	assert.Equal(t, 1, sink.len())
}

func TestProcessRejectsMalformedQuotes(t *testing.T) {
	sink := &recordSink{}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m)

	cases := []*models.Quote{
		nil,
		{Price: 2000, Timestamp: time.Now()},
		{Asset: "XAUUSD", Price: 2000},
		{Asset: "XAUUSD", Price: 0, Timestamp: time.Now()},
		{Asset: "XAUUSD", Price: -5, Timestamp: time.Now()},
	}
	for _, q := range cases {
		assert.Error(t, p.Process(context.Background(), q))
	}
	assert.Equal(t, 0, sink.len())
	assert.Equal(t, len(cases), m.errCount("pipeline_validate"))
}

func TestProcessThrottlesPerSymbolBursts(t *testing.T) {
	sink := &recordSink{}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m, WithMaxRPS(1))

	require.NoError(t, p.Process(context.Background(), validTick("XAUUSD", 2000)))
	// second tick inside the same second is dropped without error
	require.NoError(t, p.Process(context.Background(), validTick("XAUUSD", 2001)))
	// other symbols keep their own budget
	require.NoError(t, p.Process(context.Background(), validTick("EURUSD", 1.08)))

	assert.Equal(t, 2, sink.len())
	assert.Equal(t, 1, m.errCount("pipeline_throttle"))
}

func TestProcessBuffersOnSinkFailure(t *testing.T) {
	sink := &recordSink{err: errors.New("cache down")}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m, WithBufferSize(4))

	err := p.Process(context.Background(), validTick("XAUUSD", 2000))
	require.Error(t, err)
	assert.Equal(t, 1, m.errCount("pipeline_process"))
	assert.Len(t, p.bufCh, 1)
}

func TestStartFlushesBufferedQuotes(t *testing.T) {
	sink := &recordSink{err: errors.New("cache down")}
	m := newCountMetrics()
	p := NewQuotePipeline(sink, m, WithBufferSize(4))

	_ = p.Process(context.Background(), validTick("XAUUSD", 2000))

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool { return sink.len() == 1 }, time.Second, 10*time.Millisecond)
}
