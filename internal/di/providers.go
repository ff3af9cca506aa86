package di

import (
	"context"
	"fmt"
	"time"

	drepo "SignalGate/internal/domain/repository"
	"SignalGate/internal/handler/api"
	internalrepo "SignalGate/internal/repository"
	icache "SignalGate/internal/service/cache"
	"SignalGate/internal/service/feed"
	"SignalGate/internal/services/engine"
	"SignalGate/internal/usecase"
	pkgcache "SignalGate/pkg/cache"
	pkgch "SignalGate/pkg/clickhouse"
	"SignalGate/pkg/config"
	xhttp "SignalGate/pkg/http"
	pkgkafka "SignalGate/pkg/kafka"
	applogger "SignalGate/pkg/logger"
	"SignalGate/pkg/metrics"
	"SignalGate/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideRedisCache creates the shared Redis client.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, error) {
	c, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return c, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database}
	stmts = append(stmts, internalrepo.ObservationSchema...)
	stmts = append(stmts, internalrepo.ArchiveSchema...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer keyed by asset.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the evidence-intake consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideSignalStore creates the Redis-backed signal store.
func ProvideSignalStore(redis *pkgcache.RedisCache, cfg *config.Config) drepo.SignalStore {
	return internalrepo.NewRedisSignalStore(redis, cfg.Redis.Prefix)
}

// ProvideSignalArchive creates the ClickHouse terminal-signal archive.
func ProvideSignalArchive(ch *pkgch.Client, l *applogger.Logger) drepo.SignalArchive {
	a := internalrepo.NewCHSignalArchive(ch)
	a.SetLogger(l)
	return a
}

// ProvideObservationStore creates the ClickHouse validation log.
func ProvideObservationStore(ch *pkgch.Client, l *applogger.Logger) drepo.ObservationStore {
	s := internalrepo.NewCHObservationStore(ch)
	s.SetLogger(l)
	return s
}

// ProvideEventPublisher creates the signal-events Kafka publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) drepo.EventPublisher {
	p := internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.EventsTopic)
	p.SetLogger(l)
	return p
}

// ProvideEvidenceCache creates the evidence window cache on the shared Redis
// client.
func ProvideEvidenceCache(cfg *config.Config, redis *pkgcache.RedisCache) *icache.EvidenceCache {
	return icache.NewEvidenceCache(redis, cfg.Engine.EvidenceTTL)
}

// ProvideEvidenceSource exposes the evidence cache to the analyzer.
func ProvideEvidenceSource(c *icache.EvidenceCache) drepo.EvidenceSource {
	return c
}

// ProvideQuoteCache creates the per-asset quote span cache.
func ProvideQuoteCache() *icache.QuoteCache {
	return icache.NewQuoteCache()
}

// ProvidePriceFeed exposes the quote cache as the watcher's price view.
func ProvidePriceFeed(c *icache.QuoteCache) drepo.PriceFeed {
	return c
}

// ProvideLiveStream creates the live WebSocket feed.
func ProvideLiveStream(cfg *config.Config) drepo.QuoteStream {
	return feed.NewLiveClient(
		cfg.Feeds.Live.APIKey,
		cfg.Feeds.Live.WebSocketURL,
		cfg.Engine.Assets,
		cfg.Feeds.Live.ReconnectDelay,
		cfg.Feeds.Live.PingInterval,
	)
}

// ProvideAltFeed creates the alternate REST feed for the reconciler.
func ProvideAltFeed(cfg *config.Config) drepo.AltPriceFeed {
	return feed.NewAltClient(
		cfg.Feeds.Alt.BaseURL,
		cfg.Feeds.Alt.APIKey,
		cfg.Feeds.Alt.Timeout,
		cfg.Feeds.Alt.MaxCallsPerSec,
	)
}

// ProvideQuoteCollector creates the live-stream collector.
func ProvideQuoteCollector(stream drepo.QuoteStream, cache *icache.QuoteCache, m drepo.Metrics) *usecase.QuoteCollector {
	return usecase.NewQuoteCollector(stream, cache, m)
}

// ProvideEvidenceHandler registers the evidence-topic message handler.
func ProvideEvidenceHandler(cfg *config.Config, cache *icache.EvidenceCache, m drepo.Metrics) *usecase.EvidenceHandler {
	return usecase.NewEvidenceHandler(cfg.Kafka.EvidenceTopic, cache, m)
}

// ProvideScorer creates the evidence scorer.
func ProvideScorer() *engine.EvidenceScorer {
	return engine.NewEvidenceScorer()
}

// ProvideGatekeeper creates the release gatekeeper from config.
func ProvideGatekeeper(cfg *config.Config, store drepo.SignalStore, l *applogger.Logger) *engine.ReleaseGatekeeper {
	return engine.NewReleaseGatekeeper(engine.GateConfig{
		MinReleaseConfidence: cfg.Engine.MinReleaseConfidence,
		Cooldown:             time.Duration(cfg.Engine.CooldownMinutes) * time.Minute,
		Sessions: engine.SessionConfig{
			Overlap:        engine.HourWindow(cfg.Engine.Sessions.Overlap),
			Standard:       engine.HourWindow(cfg.Engine.Sessions.Standard),
			Rollover:       engine.HourWindow(cfg.Engine.Sessions.Rollover),
			OverlapWeight:  cfg.Engine.Sessions.OverlapWeight,
			StandardWeight: cfg.Engine.Sessions.StandardWeight,
			OffWeight:      cfg.Engine.Sessions.OffWeight,
			RolloverSpread: cfg.Engine.Sessions.RolloverSpread,
		},
	}, store, l)
}

// ProvideLifecycleManager creates the signal state machine owner.
func ProvideLifecycleManager(
	cfg *config.Config,
	store drepo.SignalStore,
	archive drepo.SignalArchive,
	events drepo.EventPublisher,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.SignalLifecycleManager {
	return usecase.NewSignalLifecycleManager(usecase.LifecycleConfig{
		Strategy: cfg.Engine.Strategy,
		Expiry:   time.Duration(cfg.Engine.ExpiryMinutes) * time.Minute,
		Levels: engine.LevelConfig{
			EntryBand:    cfg.Engine.Levels.EntryBand,
			RiskFraction: cfg.Engine.Levels.RiskFraction,
			RewardRisk:   cfg.Engine.Levels.RewardRisk,
		},
	}, store, archive, events, m, l)
}

// ProvideAnalyzer creates the evidence-scoring worker.
func ProvideAnalyzer(
	cfg *config.Config,
	evidence drepo.EvidenceSource,
	scorer *engine.EvidenceScorer,
	gate *engine.ReleaseGatekeeper,
	lifecycle *usecase.SignalLifecycleManager,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.AnalyzerWorker {
	return usecase.NewAnalyzerWorker(cfg.Engine.Assets, evidence, scorer, gate, lifecycle, m, l, cfg.Engine.Intervals.Analyzer)
}

// ProvideWatcher creates the price-watching worker.
func ProvideWatcher(
	cfg *config.Config,
	lifecycle *usecase.SignalLifecycleManager,
	pf drepo.PriceFeed,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.WatcherWorker {
	return usecase.NewWatcherWorker(lifecycle, pf, m, l, cfg.Engine.Intervals.Watcher)
}

// ProvideReconciler creates the validation reconciler.
func ProvideReconciler(
	cfg *config.Config,
	lifecycle *usecase.SignalLifecycleManager,
	alt drepo.AltPriceFeed,
	obs drepo.ObservationStore,
	m drepo.Metrics,
	l *applogger.Logger,
) *usecase.ValidationReconciler {
	return usecase.NewValidationReconciler(lifecycle, alt, obs, m, l, cfg.Engine.Intervals.Reconciler)
}

// ProvideHTTPHandler creates the read-only API surface.
func ProvideHTTPHandler(l *applogger.Logger, lifecycle *usecase.SignalLifecycleManager, obs drepo.ObservationStore) xhttp.Handler {
	return api.NewSignalsEchoHandler(l, lifecycle, obs)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	eh *usecase.EvidenceHandler,
	analyzer *usecase.AnalyzerWorker,
	watcher *usecase.WatcherWorker,
	reconciler *usecase.ValidationReconciler,
	handler xhttp.Handler,
	store drepo.SignalStore,
	events drepo.EventPublisher,
	chClient *pkgch.Client,
	redis *pkgcache.RedisCache,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, server.Components{
		Collector:  collector,
		Consumer:   consumer,
		Evidence:   eh,
		Analyzer:   analyzer,
		Watcher:    watcher,
		Reconciler: reconciler,
		Handler:    handler,
		Store:      store,
		Events:     events,
		ClickHouse: chClient,
		Redis:      redis,
	})
}
