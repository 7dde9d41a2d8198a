package application

import (
	"context"
	"fmt"
	"strings"

	"marketdata-ingest/internal/domain"

	"go.uber.org/zap"
)

// Probe looks up each candidate in order, one provider call at a time with
// the configured delay between calls. Every resolved candidate is written
// as a Stock immediately, so an interrupted sweep still leaves its results.
// A failed Stock write stops the sweep with ErrStore; the failing candidate
// is not reported as resolved.
func (s *Service) Probe(ctx context.Context, candidates []domain.CandidateSymbol) (domain.ProbeResult, error) {
	log := s.log.With(zap.String("op", "probe"), zap.Int("candidates", len(candidates)))
	pacer := &Pacer{Interval: s.probeDelay}

	st, err := Fold(ctx, candidates, probeState{}, func(ctx context.Context, acc probeState, c domain.CandidateSymbol) (probeState, Control) {
		clog := log.With(zap.String("candidate", c.Ticker))
		if err := pacer.Wait(ctx); err != nil {
			return acc, Stop
		}
		q, found, err := s.fetchQuote(ctx, c.Ticker)
		pacer.Mark()
		if err != nil {
			clog.Info("probe.candidate_failed", zap.Error(err))
			return acc, Continue
		}
		now := s.clock.Now()
		rq, ok := q.Resolve(c, now)
		if !found || !ok {
			clog.Info("probe.candidate_unresolved")
			return acc, Continue
		}
		if err := s.stocks.Upsert(ctx, rq.Stock(now)); err != nil {
			clog.Error("probe.stock_upsert_failed", zap.Error(err))
			acc.res.Failed = rq.Symbol
			acc.storeErr = fmt.Errorf("%w: upsert stock %s: %w", domain.ErrStore, rq.Symbol, err)
			return acc, Stop
		}
		clog.Info("probe.candidate_resolved", zap.Float64("price", rq.Price), zap.String("exchange", rq.Exchange))
		acc.res.Resolved = append(acc.res.Resolved, rq)
		return acc, Continue
	})
	res := st.res
	if err == nil {
		err = st.storeErr
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return res, err
	}
	if len(res.Resolved) == 0 {
		log.Warn("probe.none_resolved")
		return res, domain.ErrNoSymbolResolved
	}
	res.Selected = SelectSymbol(res.Resolved, s.indexMarkers)
	log.Info("probe.selected", zap.String("symbol", res.Selected), zap.Int("resolved", len(res.Resolved)))
	return res, nil
}

type probeState struct {
	res      domain.ProbeResult
	storeErr error
}

// SelectSymbol prefers the first resolved symbol containing any marker
// (case-insensitive) and falls back to the first resolved one.
func SelectSymbol(resolved []domain.ResolvedQuote, markers []string) string {
	if len(resolved) == 0 {
		return ""
	}
	for _, r := range resolved {
		sym := strings.ToUpper(r.Symbol)
		for _, m := range markers {
			m = strings.ToUpper(strings.TrimSpace(m))
			if m != "" && strings.Contains(sym, m) {
				return r.Symbol
			}
		}
	}
	return resolved[0].Symbol
}
