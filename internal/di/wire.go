//go:build wireinject
// +build wireinject

package di

import (
	"ForecastBench/pkg/config"
	"ForecastBench/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Metrics and logging
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories (with business logic)
		ProvideOutcomeStorage,
		ProvideOutcomePublisher,
		ProvideHistoryStore,
		ProvideResolverStream,
		ProvideModelGateways,

		// Scoring configuration
		ProvideThresholds,

		// Use cases
		ProvideOutcomeProcessor,
		ProvideBenchmark,
		ProvideQueue,
		ProvideRoundCollector,
		ProvideResolutionCollector,
		ProvideReportsUseCase,
		ProvideKafkaOutcomesHandler,

		// Handlers
		ProvideReportsEchoHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
