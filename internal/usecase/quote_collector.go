package usecase

import (
	"context"

	"SignalGate/internal/domain/models"
	drepo "SignalGate/internal/domain/repository"
	mid "SignalGate/internal/middleware"
	icache "SignalGate/internal/service/cache"
)

// cacheSink adapts the quote cache to the pipeline's sink interface.
type cacheSink struct {
	cache   *icache.QuoteCache
	metrics drepo.Metrics
}

func (s *cacheSink) Accept(_ context.Context, q *models.Quote) error {
	s.cache.Update(q)
	s.metrics.RecordLastPrice(q.Asset, q.Price)
	return nil
}

// QuoteCollector consumes the live WebSocket stream and keeps the quote cache
// current for the watcher. Stream errors trigger a reconnect; the collector
// never crashes the process.
type QuoteCollector struct {
	stream  drepo.QuoteStream
	cache   *icache.QuoteCache
	metrics drepo.Metrics
	pipe    *mid.QuotePipeline
}

// NewQuoteCollector creates a new QuoteCollector instance.
func NewQuoteCollector(stream drepo.QuoteStream, cache *icache.QuoteCache, metrics drepo.Metrics) *QuoteCollector {
	sink := &cacheSink{cache: cache, metrics: metrics}
	pipe := mid.NewQuotePipeline(sink, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return &QuoteCollector{stream: stream, cache: cache, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the live stream is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	c.pipe.Start(ctx)
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, qCh <-chan *models.Quote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok || err != nil {
				c.metrics.RecordFeedError("live")
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					select {
					case <-ctx.Done():
						return
					default:
					}
				}
				// the old read loop is gone after an error; pick up fresh channels
				qCh, errCh = c.stream.Read(ctx)
			}
		case q, ok := <-qCh:
			if !ok {
				qCh = nil
				continue
			}
			if q == nil {
				continue
			}
			_ = c.pipe.Process(ctx, q)
		}
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	c.pipe.Stop()
	return c.stream.Close()
}
