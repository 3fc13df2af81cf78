//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/honeycarbs/job-discovery/internal/config"
	"github.com/honeycarbs/job-discovery/pkg/logging"
)

// Initialize builds the App with all components wired up. The returned
// cleanup closes the browser and any mirror or lock connections.
func Initialize(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, func(), error) {
	wire.Build(
		// State
		provideStore,
		provideLocker,

		// Fetching
		provideHTTPClient,
		provideRenderer,
		provideCoordinator,
		provideRegistry,
		provideOrchestrator,

		// Mirrors
		provideViewer,
		provideSheets,
		provideGraph,
		provideMirrors,

		provideRunner,
		provideDispatcher,
		newApp,
	)

	return &App{}, nil, nil
}
