package pg

import (
	"context"
	"errors"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"

	"github.com/jackc/pgx/v5"
)

type SnapshotRepo struct{ db *DB }

func NewSnapshotRepo(db *DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Upsert overwrites provider-derived columns. Localized name and sector are
// curated elsewhere, so a nil value keeps what is stored.
func (r *SnapshotRepo) Upsert(ctx context.Context, s domain.MarketSnapshot) error {
	const up = `
        INSERT INTO market_snapshots(symbol, company_name, company_name_localized,
            current_price, previous_close, price_change, price_change_percent,
            volume, sector, sector_localized, last_updated, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (symbol) DO UPDATE SET
            company_name=EXCLUDED.company_name,
            company_name_localized=COALESCE(EXCLUDED.company_name_localized, market_snapshots.company_name_localized),
            current_price=EXCLUDED.current_price,
            previous_close=EXCLUDED.previous_close,
            price_change=EXCLUDED.price_change,
            price_change_percent=EXCLUDED.price_change_percent,
            volume=EXCLUDED.volume,
            sector=COALESCE(EXCLUDED.sector, market_snapshots.sector),
            sector_localized=COALESCE(EXCLUDED.sector_localized, market_snapshots.sector_localized),
            last_updated=EXCLUDED.last_updated,
            is_active=EXCLUDED.is_active`
	_, err := r.db.q(ctx).Exec(ctx, up,
		s.Symbol, s.CompanyName, s.CompanyNameLocalized,
		s.CurrentPrice, s.PreviousClose, s.PriceChange, s.PriceChangePercent,
		s.Volume, s.Sector, s.SectorLocalized, s.LastUpdated, s.IsActive,
	)
	return err
}

func (r *SnapshotRepo) Get(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	const q = `
        SELECT symbol, company_name, company_name_localized,
            current_price::float8, previous_close::float8, price_change::float8, price_change_percent::float8,
            volume, sector, sector_localized, last_updated, is_active
        FROM market_snapshots WHERE symbol=$1`
	var s domain.MarketSnapshot
	err := r.db.q(ctx).QueryRow(ctx, q, symbol).Scan(
		&s.Symbol, &s.CompanyName, &s.CompanyNameLocalized,
		&s.CurrentPrice, &s.PreviousClose, &s.PriceChange, &s.PriceChangePercent,
		&s.Volume, &s.Sector, &s.SectorLocalized, &s.LastUpdated, &s.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MarketSnapshot{}, application.ErrNotFound
	}
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	s.LastUpdated = s.LastUpdated.UTC()
	return s, nil
}
