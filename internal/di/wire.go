//go:build wireinject
// +build wireinject

package di

import (
	"SignalGate/pkg/config"
	"SignalGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideSignalStore,
		ProvideSignalArchive,
		ProvideObservationStore,
		ProvideEventPublisher,

		// Caches and feeds
		ProvideEvidenceCache,
		ProvideEvidenceSource,
		ProvideQuoteCache,
		ProvidePriceFeed,
		ProvideLiveStream,
		ProvideAltFeed,

		// Engine
		ProvideScorer,
		ProvideGatekeeper,

		// Use cases
		ProvideLifecycleManager,
		ProvideQuoteCollector,
		ProvideEvidenceHandler,
		ProvideAnalyzer,
		ProvideWatcher,
		ProvideReconciler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
