package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
)

type HistoryRepo struct{ s *Store }

func (s *Store) History() *HistoryRepo { return &HistoryRepo{s: s} }

// LockSymbol holds the symbol's lock until the unit of work in ctx ends.
func (r *HistoryRepo) LockSymbol(ctx context.Context, symbol string) error {
	t := txFromCtx(ctx)
	if t == nil {
		return fmt.Errorf("lock %s: %w", symbol, errNoTx)
	}
	m := r.s.symbolLock(symbol)
	for _, h := range t.held {
		if h == m {
			return nil
		}
	}
	m.Lock()
	t.held = append(t.held, m)
	return nil
}

// rows returns the rows a write through ctx should modify: the unit of
// work's working copy, created on first touch, or the shared rows when ctx
// carries no unit of work. Caller holds mu for writing.
func (r *HistoryRepo) rows(ctx context.Context, symbol string) map[int64]domain.HistoricalRecord {
	if t := txFromCtx(ctx); t != nil {
		if rows, ok := t.staged[symbol]; ok {
			return rows
		}
		cp := make(map[int64]domain.HistoricalRecord, len(r.s.history[symbol]))
		for k, v := range r.s.history[symbol] {
			cp[k] = v
		}
		t.staged[symbol] = cp
		return cp
	}
	rows, ok := r.s.history[symbol]
	if !ok {
		rows = make(map[int64]domain.HistoricalRecord)
		r.s.history[symbol] = rows
	}
	return rows
}

// visible returns what ctx can read: its own uncommitted rows first.
// Caller holds mu for reading.
func (r *HistoryRepo) visible(ctx context.Context, symbol string) map[int64]domain.HistoricalRecord {
	if t := txFromCtx(ctx); t != nil {
		if rows, ok := t.staged[symbol]; ok {
			return rows
		}
	}
	return r.s.history[symbol]
}

func (r *HistoryRepo) DeleteFrom(ctx context.Context, symbol string, from *time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rows := r.rows(ctx, symbol)
	var n int64
	for k, rec := range rows {
		if from == nil || !rec.DateTime.Before(*from) {
			delete(rows, k)
			n++
		}
	}
	return n, nil
}

// InsertBulk overwrites records with the same (symbol, date_time).
func (r *HistoryRepo) InsertBulk(ctx context.Context, recs []domain.HistoricalRecord) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range recs {
		if rec.Symbol == "" {
			return 0, fmt.Errorf("insert history: empty symbol")
		}
	}
	for _, rec := range recs {
		rec.DateTime = rec.DateTime.UTC()
		r.rows(ctx, rec.Symbol)[rec.DateTime.UnixNano()] = rec
	}
	return int64(len(recs)), nil
}

func (r *HistoryRepo) Count(ctx context.Context, symbol string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.visible(ctx, symbol)), nil
}

func (r *HistoryRepo) Latest(ctx context.Context, symbol string) (domain.HistoricalRecord, error) {
	all := r.sorted(ctx, symbol)
	if len(all) == 0 {
		return domain.HistoricalRecord{}, application.ErrNotFound
	}
	return all[len(all)-1], nil
}

func (r *HistoryRepo) Range(ctx context.Context, symbol string, from, to time.Time) ([]domain.HistoricalRecord, error) {
	var out []domain.HistoricalRecord
	for _, rec := range r.sorted(ctx, symbol) {
		if rec.DateTime.Before(from) || rec.DateTime.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *HistoryRepo) sorted(ctx context.Context, symbol string) []domain.HistoricalRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rows := r.visible(ctx, symbol)
	out := make([]domain.HistoricalRecord, 0, len(rows))
	for _, rec := range rows {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}
