//go:build wireinject
// +build wireinject

package di

import (
	"LoserLab/pkg/config"
	"LoserLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideCache,

		// Repositories
		ProvidePriceStore,
		ProvideUniverse,
		ProvideMetadata,
		ProvideRunStore,
		ProvidePublisher,

		// Use cases
		ProvideResultSink,
		ProvideSuggester,
		ProvideBacktester,
		ProvideJobManager,
		ProvideModelsUseCase,
		ProvideDataUseCase,

		// HTTP
		ProvideRateLimiter,
		ProvideHandlers,

		ProvideApp,
	)
	return &server.App{}, nil
}
