//go:build wireinject
// +build wireinject

package di

import (
	"HeartForm/pkg/config"
	"HeartForm/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideAttemptPublisher,
		ProvideAttemptStorage,
		ProvideSnapshotStore,

		// Use cases
		ProvidePredictor,
		ProvideAttemptRecorder,
		ProvideSessionRegistry,
		ProvideRateLimiter,

		// HTTP
		ProvideFormHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil, nil
}
