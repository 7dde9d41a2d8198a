package bootstrap

import (
	"context"
	"errors"

	"marketdata-ingest/internal/application"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg")

// Storage is one backend's set of repositories plus its unit of work.
type Storage struct {
	Snapshots application.SnapshotRepo
	Stocks    application.StockRepo
	History   application.HistoryRepo
	Runs      application.RunRepo
	UoW       application.UnitOfWork
	Ping      func(ctx context.Context) error
}
