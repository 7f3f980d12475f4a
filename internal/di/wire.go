//go:build wireinject
// +build wireinject

package di

import (
	"BiasGuard/pkg/config"
	"BiasGuard/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStore,
		ProvideKeyLock,
		ProvidePublisher,
		ProvideArchiver,

		// Configuration mapping
		ProvideLimits,
		ProvideRulesConfig,

		// Repositories
		ProvideBiasRepo,
		ProvideLedger,
		ProvideWiper,

		// Use cases
		ProvideBiasQuery,
		ProvideDecisionRecorder,
		ProvideConsistencyChecker,
		ProvideResetCoordinator,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
