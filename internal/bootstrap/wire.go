//go:build wireinject

package bootstrap

import (
	"context"

	"marketdata-ingest/internal/application"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideConfig,
	ProvideLogger,
	ProvideStorage,
	ProvideMetrics,
	ProvideQuoteProvider,
	ProvideService,
	ProvideRunner,
)

// API injector: builds *APIApp + Cleanup
func InitAPI(ctx context.Context) (*APIApp, func(), error) {
	wire.Build(
		infraSet,
		ProvideIdempotency,
		ProvideRunService,
		ProvideServer,
		ProvideWorker,
		ProvideAPIApp,
	)
	return nil, nil, nil
}

// Worker injector: builds WorkerApp + Cleanup
func InitWorker(ctx context.Context) (WorkerApp, func(), error) {
	wire.Build(
		infraSet,
		ProvideWorker,
		ProvideWorkerApp,
	)
	return nil, nil, nil
}

// CLI injector: builds the synchronous *application.Runner + Cleanup
func InitRunner(ctx context.Context) (*application.Runner, func(), error) {
	wire.Build(infraSet)
	return nil, nil, nil
}
