package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"marketdata-ingest/internal/domain"

	"go.uber.org/zap"
)

// Runner exposes the entry points. Each returns a summary even when some or
// all symbols failed; the error is non-nil only for store failures,
// cancellation or bad input.
type Runner struct {
	svc           *Service
	defaultSymbol string
}

func NewRunner(svc *Service, defaultSymbol string) *Runner {
	return &Runner{svc: svc, defaultSymbol: defaultSymbol}
}

func (r *Runner) Run(ctx context.Context, kind domain.RunKind, symbols []string) (domain.RunSummary, error) {
	sum := domain.RunSummary{Kind: kind, StartedAt: r.svc.clock.Now()}
	var err error
	switch kind {
	case domain.RunProbe:
		err = r.probe(ctx, symbols, &sum)
	case domain.RunSnapshot:
		err = r.snapshot(ctx, symbols, &sum)
	case domain.RunBackfill:
		err = r.backfill(ctx, symbols, domain.BackfillRange, &sum)
	case domain.RunBackfillFull:
		err = r.backfill(ctx, symbols, domain.BackfillFull, &sum)
	default:
		err = fmt.Errorf("%w: unknown run kind %q", ErrBadRequest, kind)
	}
	sum.FinishedAt = r.svc.clock.Now()
	r.svc.obs.RunFinished(kind, sum.Affected, err)
	r.svc.log.Info("run.finished",
		zap.String("kind", string(kind)),
		zap.Int("affected", sum.Affected),
		zap.String("message", sum.Message),
		zap.Error(err),
	)
	return sum, err
}

func (r *Runner) probe(ctx context.Context, candidates []string, sum *domain.RunSummary) error {
	cs := domain.ParseCandidates(candidates)
	if len(cs) == 0 {
		return fmt.Errorf("%w: no valid candidates", ErrBadRequest)
	}
	res, err := r.svc.Probe(ctx, cs)
	for _, q := range res.Resolved {
		sum.Resolved = append(sum.Resolved, q.Symbol)
	}
	sum.Affected = len(res.Resolved)
	switch {
	case errors.Is(err, domain.ErrNoSymbolResolved):
		sum.Selected = r.defaultSymbol
		sum.UsedDefault = true
		sum.Message = fmt.Sprintf("no candidate of %d resolved; using default %s", len(cs), r.defaultSymbol)
		return nil
	case err != nil:
		if res.Failed != "" {
			sum.Outcomes = append(sum.Outcomes, domain.SymbolOutcome{Symbol: res.Failed, Error: err.Error()})
		}
		sum.Message = fmt.Sprintf("probe interrupted after %d resolved", len(res.Resolved))
		return err
	}
	sum.Selected = res.Selected
	sum.Message = fmt.Sprintf("resolved %d of %d candidates; selected %s", len(res.Resolved), len(cs), res.Selected)
	return nil
}

func (r *Runner) snapshot(ctx context.Context, symbols []string, sum *domain.RunSummary) error {
	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		return fmt.Errorf("%w: no valid symbols", ErrBadRequest)
	}
	var fatal error
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			fatal = err
			break
		}
		o := domain.SymbolOutcome{Symbol: sym}
		if _, err := r.svc.UpdateSnapshot(ctx, sym); err != nil {
			o.Error = err.Error()
			if errors.Is(err, domain.ErrStore) && fatal == nil {
				fatal = err
			}
		} else {
			o.Affected = 1
			sum.Affected++
		}
		sum.Outcomes = append(sum.Outcomes, o)
	}
	sum.Message = fmt.Sprintf("updated %d of %d snapshots", sum.Affected, len(symbols))
	return fatal
}

func (r *Runner) backfill(ctx context.Context, symbols []string, mode domain.BackfillMode, sum *domain.RunSummary) error {
	symbols = uniqueSymbols(symbols)
	if len(symbols) == 0 {
		return fmt.Errorf("%w: no valid symbols", ErrBadRequest)
	}
	var fatal error
	ok := 0
	for _, res := range r.svc.BackfillMany(ctx, symbols, mode) {
		o := domain.SymbolOutcome{Symbol: res.Symbol, Affected: res.Count, Window: int(res.Window)}
		if res.Err != nil {
			o.Error = res.Err.Error()
			if fatal == nil && (errors.Is(res.Err, domain.ErrStore) || errors.Is(res.Err, context.Canceled)) {
				fatal = res.Err
			}
		} else {
			ok++
		}
		sum.Affected += res.Count
		sum.Outcomes = append(sum.Outcomes, o)
	}
	sum.Message = fmt.Sprintf("%s backfill stored %d records for %d of %d symbols", mode, sum.Affected, ok, len(symbols))
	return fatal
}

func uniqueSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if !domain.ValidateSymbol(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
