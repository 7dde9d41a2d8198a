package pg

import (
	"context"

	"marketdata-ingest/internal/domain"
)

type StockRepo struct{ db *DB }

func NewStockRepo(db *DB) *StockRepo { return &StockRepo{db: db} }

func (r *StockRepo) Upsert(ctx context.Context, s domain.Stock) error {
	const up = `
        INSERT INTO stocks(symbol, name, exchange, currency, last_updated)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (symbol) DO UPDATE
          SET name=EXCLUDED.name, exchange=EXCLUDED.exchange,
              currency=EXCLUDED.currency, last_updated=EXCLUDED.last_updated`
	_, err := r.db.q(ctx).Exec(ctx, up, s.Symbol, s.Name, s.Exchange, s.Currency, s.LastUpdated)
	return err
}
