package memory

import (
	"context"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
)

type SnapshotRepo struct{ s *Store }

func (s *Store) Snapshots() *SnapshotRepo { return &SnapshotRepo{s: s} }

// Upsert keeps stored localized fields and sector when the new row has none.
func (r *SnapshotRepo) Upsert(_ context.Context, snap domain.MarketSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if old, ok := r.s.snapshots[snap.Symbol]; ok {
		if snap.CompanyNameLocalized == nil {
			snap.CompanyNameLocalized = old.CompanyNameLocalized
		}
		if snap.Sector == nil {
			snap.Sector = old.Sector
		}
		if snap.SectorLocalized == nil {
			snap.SectorLocalized = old.SectorLocalized
		}
	}
	r.s.snapshots[snap.Symbol] = snap
	return nil
}

func (r *SnapshotRepo) Get(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	snap, ok := r.s.snapshots[symbol]
	if !ok {
		return domain.MarketSnapshot{}, application.ErrNotFound
	}
	return snap, nil
}

// SetLocalized stands in for the external curation of localized fields.
func (r *SnapshotRepo) SetLocalized(symbol string, name, sector *string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snap, ok := r.s.snapshots[symbol]
	if !ok {
		return
	}
	snap.CompanyNameLocalized, snap.SectorLocalized = name, sector
	r.s.snapshots[symbol] = snap
}

type StockRepo struct{ s *Store }

func (s *Store) Stocks() *StockRepo { return &StockRepo{s: s} }

func (r *StockRepo) Upsert(_ context.Context, st domain.Stock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.stocks[st.Symbol] = st
	return nil
}

func (r *StockRepo) Get(_ context.Context, symbol string) (domain.Stock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.stocks[symbol]
	if !ok {
		return domain.Stock{}, application.ErrNotFound
	}
	return st, nil
}
