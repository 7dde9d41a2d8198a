package application

import (
	"context"
	"fmt"
	"strings"

	"marketdata-ingest/internal/domain"
)

// RunService queues entry-point invocations for the worker and serves the
// read-only verification queries.
type RunService struct {
	runs      RunRepo
	snapshots SnapshotRepo
	history   HistoryRepo
	idem      IdempotencyStore
	clock     Clock
}

func NewRunService(runs RunRepo, snapshots SnapshotRepo, history HistoryRepo, idem IdempotencyStore) *RunService {
	if idem == nil {
		idem = NoopIdempotency{}
	}
	return &RunService{runs: runs, snapshots: snapshots, history: history, idem: idem, clock: realClock{}}
}

func (s *RunService) RequestRun(ctx context.Context, kind string, symbols []string, idem *string) (string, error) {
	k, ok := domain.ParseRunKind(kind)
	if !ok {
		return "", fmt.Errorf("%w: unknown kind %q", ErrBadRequest, kind)
	}
	clean := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if k == domain.RunProbe {
			if _, ok := domain.ParseCandidate(sym); !ok {
				return "", fmt.Errorf("%w: invalid candidate %q", ErrBadRequest, sym)
			}
		} else if !domain.ValidateSymbol(strings.TrimSpace(sym)) {
			return "", fmt.Errorf("%w: invalid symbol %q", ErrBadRequest, sym)
		}
		clean = append(clean, strings.TrimSpace(sym))
	}
	if len(clean) == 0 {
		return "", fmt.Errorf("%w: symbols required", ErrBadRequest)
	}
	if idem == nil || strings.TrimSpace(*idem) == "" {
		return s.runs.CreateQueued(ctx, k, clean, nil)
	}
	key := runKey(k, *idem)
	fresh, err := s.idem.TryReserve(ctx, key)
	if err != nil {
		return "", err
	}
	if !fresh {
		return "", ErrConflict
	}
	id, err := s.runs.CreateQueued(ctx, k, clean, idem)
	if err != nil {
		// let the client retry with the same key
		_ = s.idem.Release(ctx, key)
		return "", err
	}
	return id, nil
}

func (s *RunService) GetRun(ctx context.Context, id string) (domain.IngestRun, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *RunService) GetSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	return s.snapshots.Get(ctx, symbol)
}

// LatestHistory returns the newest stored record and the row count.
func (s *RunService) LatestHistory(ctx context.Context, symbol string) (domain.HistoricalRecord, int, error) {
	n, err := s.history.Count(ctx, symbol)
	if err != nil {
		return domain.HistoricalRecord{}, 0, err
	}
	if n == 0 {
		return domain.HistoricalRecord{}, 0, ErrNotFound
	}
	rec, err := s.history.Latest(ctx, symbol)
	if err != nil {
		return domain.HistoricalRecord{}, 0, err
	}
	return rec, n, nil
}

// History lists stored records of the last days days, oldest first.
func (s *RunService) History(ctx context.Context, symbol string, days int) ([]domain.HistoricalRecord, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrBadRequest)
	}
	now := s.clock.Now()
	return s.history.Range(ctx, symbol, domain.LookbackWindow(days).Start(now), now)
}
