//go:build wireinject
// +build wireinject

package di

import (
	"TemaScan/pkg/config"
	"TemaScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideBinanceClient,
		ProvideMarketStream,
		ProvideCache,
		ProvideSignalPublisher,

		// Domain services
		ProvideUniverse,
		ProvideResultStore,

		// Use cases
		ProvideOrchestrator,
		ProvideMarketSnapshot,

		// HTTP boundary
		ProvideScanHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
