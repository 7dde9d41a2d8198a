package application

import (
	"context"
	"time"

	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/normalize"
)

// QuoteProvider returns raw provider payloads; interpretation happens here
// through the normalizer.
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (normalize.Payload, error)
	Chart(ctx context.Context, symbol string, from, to time.Time) (normalize.Payload, error)
}

type SnapshotRepo interface {
	Upsert(ctx context.Context, s domain.MarketSnapshot) error
	Get(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
}

type StockRepo interface {
	Upsert(ctx context.Context, s domain.Stock) error
}

type HistoryRepo interface {
	// LockSymbol serializes writers of one symbol until the surrounding unit of work ends.
	LockSymbol(ctx context.Context, symbol string) error
	// DeleteFrom removes rows with DateTime >= from, or every row when from is nil.
	DeleteFrom(ctx context.Context, symbol string, from *time.Time) (int64, error)
	InsertBulk(ctx context.Context, recs []domain.HistoricalRecord) (int64, error)
	Count(ctx context.Context, symbol string) (int, error)
	Latest(ctx context.Context, symbol string) (domain.HistoricalRecord, error)
	Range(ctx context.Context, symbol string, from, to time.Time) ([]domain.HistoricalRecord, error)
}

type RunRepo interface {
	CreateQueued(ctx context.Context, kind domain.RunKind, symbols []string, idem *string) (string, error)
	GetByID(ctx context.Context, id string) (domain.IngestRun, error)
	ClaimQueued(ctx context.Context, limit int) ([]domain.IngestRun, error)
	Complete(ctx context.Context, id string, status domain.RunStatus, summary *domain.RunSummary, errMsg *string) error
}
