package application

import (
	"context"
	"fmt"

	"marketdata-ingest/internal/domain"

	"go.uber.org/zap"
)

// UpdateSnapshot fetches the current quote for symbol and upserts its
// MarketSnapshot row. Nothing is written unless the quote carries a price
// and a non-zero previous close.
func (s *Service) UpdateSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	log := s.log.With(zap.String("op", "snapshot"), zap.String("symbol", symbol))

	q, found, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		log.Warn("snapshot.fetch_failed", zap.Error(err))
		return domain.MarketSnapshot{}, err
	}
	if !found {
		log.Warn("snapshot.no_quote")
		return domain.MarketSnapshot{}, fmt.Errorf("%w: %s: empty quote payload", domain.ErrIncompleteQuoteData, symbol)
	}
	snap, ok := domain.NewSnapshot(symbol, q, s.clock.Now())
	if !ok {
		log.Warn("snapshot.incomplete_quote",
			zap.Bool("has_price", q.Price != nil),
			zap.Bool("has_previous_close", q.PreviousClose != nil),
		)
		return domain.MarketSnapshot{}, fmt.Errorf("%w: %s: price or previous close missing", domain.ErrIncompleteQuoteData, symbol)
	}

	err = s.withSymbolLock(ctx, symbol, func(ctx context.Context) error {
		return s.snapshots.Upsert(ctx, snap)
	})
	if err != nil {
		log.Error("snapshot.upsert_failed", zap.Error(err))
		return domain.MarketSnapshot{}, fmt.Errorf("%w: upsert snapshot %s: %w", domain.ErrStore, symbol, err)
	}
	log.Info("snapshot.updated",
		zap.Float64("price", snap.CurrentPrice),
		zap.Float64("change_pct", snap.PriceChangePercent),
	)
	return snap, nil
}
