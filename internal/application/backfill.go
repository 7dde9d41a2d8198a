package application

import (
	"context"
	"fmt"
	"time"

	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/normalize"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BackfillResult struct {
	Symbol string
	Mode   domain.BackfillMode
	Window domain.LookbackWindow
	Count  int
	Err    error
}

// Backfill replaces stored history from the start of the first window that
// yields data. Rows older than that window are left alone.
func (s *Service) Backfill(ctx context.Context, symbol string) (BackfillResult, error) {
	return s.BackfillWith(ctx, symbol, domain.BackfillRange, s.windows)
}

// BackfillFull is Backfill for a symbol's first load: every stored row of
// the symbol is replaced.
func (s *Service) BackfillFull(ctx context.Context, symbol string) (BackfillResult, error) {
	return s.BackfillWith(ctx, symbol, domain.BackfillFull, s.windows)
}

type windowState struct {
	res      BackfillResult
	storeErr error
	done     bool
}

// BackfillWith tries windows shortest first and stops at the first one that
// produces at least one close-priced record.
func (s *Service) BackfillWith(ctx context.Context, symbol string, mode domain.BackfillMode, windows []domain.LookbackWindow) (BackfillResult, error) {
	log := s.log.With(zap.String("op", "backfill"), zap.String("symbol", symbol), zap.String("mode", string(mode)))
	windows = domain.SortWindows(windows)

	st, err := Fold(ctx, windows, windowState{}, func(ctx context.Context, st windowState, w domain.LookbackWindow) (windowState, Control) {
		wlog := log.With(zap.Int("window_days", int(w)))
		now := s.clock.Now()
		from := w.Start(now)

		recs, err := s.fetchWindow(ctx, symbol, mode, from, now)
		if err != nil {
			s.obs.WindowAttempt(mode, w, "error")
			wlog.Warn("backfill.window_failed", zap.Error(err))
			return st, Continue
		}
		if len(recs) == 0 {
			s.obs.WindowAttempt(mode, w, "empty")
			wlog.Warn("backfill.window_empty")
			return st, Continue
		}

		n, err := s.replaceHistory(ctx, symbol, mode, from, recs)
		if err != nil {
			s.obs.WindowAttempt(mode, w, "store_error")
			wlog.Error("backfill.store_failed", zap.Error(err))
			st.storeErr = err
			return st, Stop
		}
		s.obs.WindowAttempt(mode, w, "ok")
		wlog.Info("backfill.window_stored", zap.Int("records", n))
		st.res = BackfillResult{Symbol: symbol, Mode: mode, Window: w, Count: n}
		st.done = true
		return st, Stop
	})
	res := BackfillResult{Symbol: symbol, Mode: mode}
	switch {
	case err != nil:
		log.Info("backfill.canceled", zap.Error(err))
		return res, err
	case st.storeErr != nil:
		return res, fmt.Errorf("%w: backfill %s: %w", domain.ErrStore, symbol, st.storeErr)
	case !st.done:
		log.Warn("backfill.exhausted", zap.Int("windows", len(windows)))
		return res, fmt.Errorf("%w: %s after %d windows", domain.ErrNoUsableHistoricalData, symbol, len(windows))
	}
	return st.res, nil
}

// fetchWindow requests [from, to] and maps the points to records, dropping
// points without a close or a parseable date. In range mode points before
// from are dropped too so the replaced span matches the deleted one.
func (s *Service) fetchWindow(ctx context.Context, symbol string, mode domain.BackfillMode, from, to time.Time) ([]domain.HistoricalRecord, error) {
	p, err := s.call(ctx, "chart", func(ctx context.Context) (normalize.Payload, error) {
		return s.provider.Chart(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, err
	}
	pts := s.norm.Points(p)
	recs := make([]domain.HistoricalRecord, 0, len(pts))
	for _, pt := range pts {
		rec, ok := toRecord(symbol, pt)
		if !ok {
			continue
		}
		if mode == domain.BackfillRange && rec.DateTime.Before(from) {
			continue
		}
		recs = append(recs, rec)
	}
	return domain.DedupeRecords(recs), nil
}

func toRecord(symbol string, pt normalize.RawPoint) (domain.HistoricalRecord, bool) {
	closePrice, ok := pt.Float("close")
	if !ok {
		return domain.HistoricalRecord{}, false
	}
	ts, ok := pt.Time("date")
	if !ok {
		if ts, ok = pt.Time("timestamp"); !ok {
			return domain.HistoricalRecord{}, false
		}
	}
	adj := pt.FloatPtr("adjclose")
	if adj == nil {
		adj = pt.FloatPtr("adjClose")
	}
	return domain.HistoricalRecord{
		Symbol:        symbol,
		DateTime:      ts,
		Open:          pt.FloatPtr("open"),
		High:          pt.FloatPtr("high"),
		Low:           pt.FloatPtr("low"),
		Close:         closePrice,
		Volume:        pt.IntPtr("volume"),
		AdjustedClose: adj,
	}, true
}

// replaceHistory deletes and inserts in one unit of work.
func (s *Service) replaceHistory(ctx context.Context, symbol string, mode domain.BackfillMode, from time.Time, recs []domain.HistoricalRecord) (int, error) {
	var threshold *time.Time
	if mode == domain.BackfillRange {
		threshold = &from
	}
	var inserted int64
	err := s.withSymbolLock(ctx, symbol, func(ctx context.Context) error {
		if _, err := s.history.DeleteFrom(ctx, symbol, threshold); err != nil {
			return fmt.Errorf("delete: %w", err)
		}
		n, err := s.history.InsertBulk(ctx, recs)
		if err != nil {
			return fmt.Errorf("insert: %w", err)
		}
		inserted = n
		return nil
	})
	return int(inserted), err
}

// BackfillMany runs one backfill per symbol with bounded concurrency. A
// failing symbol does not stop its siblings; results keep input order.
func (s *Service) BackfillMany(ctx context.Context, symbols []string, mode domain.BackfillMode) []BackfillResult {
	out := make([]BackfillResult, len(symbols))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			res, err := s.BackfillWith(ctx, sym, mode, s.windows)
			res.Err = err
			out[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}
