package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/infrastructure/memory"
	"marketdata-ingest/internal/infrastructure/provider"

	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }

func str(s string) *string { return &s }

func replace(ctx context.Context, s *memory.Store, symbol string, from *time.Time, recs []domain.HistoricalRecord, fail error) error {
	h := s.History()
	return s.Do(ctx, func(ctx context.Context) error {
		if err := h.LockSymbol(ctx, symbol); err != nil {
			return err
		}
		if _, err := h.DeleteFrom(ctx, symbol, from); err != nil {
			return err
		}
		if _, err := h.InsertBulk(ctx, recs); err != nil {
			return err
		}
		return fail
	})
}

func TestHistory_ReplaceAndRollback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewStore()
	h := s.History()

	base := []domain.HistoricalRecord{
		{Symbol: "ACME", DateTime: day(1), Close: 1},
		{Symbol: "ACME", DateTime: day(2), Close: 2},
		{Symbol: "ACME", DateTime: day(3), Close: 3},
	}
	require.NoError(t, replace(ctx, s, "ACME", nil, base, nil))
	require.NoError(t, replace(ctx, s, "ACME", nil, base, nil))
	n, _ := h.Count(ctx, "ACME")
	require.Equal(t, 3, n)

	boom := errors.New("boom")
	from := day(2)
	err := replace(ctx, s, "ACME", &from, []domain.HistoricalRecord{{Symbol: "ACME", DateTime: day(2), Close: 20}}, boom)
	require.ErrorIs(t, err, boom)
	got, _ := h.Range(ctx, "ACME", day(1), day(31))
	require.Len(t, got, 3)
	require.Equal(t, 2.0, got[1].Close)

	require.NoError(t, replace(ctx, s, "ACME", &from, []domain.HistoricalRecord{{Symbol: "ACME", DateTime: day(2), Close: 20}}, nil))
	got, _ = h.Range(ctx, "ACME", day(1), day(31))
	require.Len(t, got, 2)
	latest, err := h.Latest(ctx, "ACME")
	require.NoError(t, err)
	require.Equal(t, 20.0, latest.Close)

	// rollback of a symbol that had no rows removes it again
	require.Error(t, replace(ctx, s, "NEW", nil, []domain.HistoricalRecord{{Symbol: "NEW", DateTime: day(1), Close: 1}}, boom))
	_, err = h.Latest(ctx, "NEW")
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestHistory_ReadersSeeOnlyCommittedReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewStore()
	h := s.History()
	base := []domain.HistoricalRecord{
		{Symbol: "ACME", DateTime: day(1), Close: 1},
		{Symbol: "ACME", DateTime: day(2), Close: 2},
	}
	require.NoError(t, replace(ctx, s, "ACME", nil, base, nil))

	err := s.Do(ctx, func(txCtx context.Context) error {
		require.NoError(t, h.LockSymbol(txCtx, "ACME"))
		_, err := h.DeleteFrom(txCtx, "ACME", nil)
		require.NoError(t, err)

		n, _ := h.Count(txCtx, "ACME")
		require.Zero(t, n)
		n, _ = h.Count(ctx, "ACME")
		require.Equal(t, 2, n)

		_, err = h.InsertBulk(txCtx, []domain.HistoricalRecord{{Symbol: "ACME", DateTime: day(3), Close: 3}})
		require.NoError(t, err)
		got, _ := h.Range(ctx, "ACME", day(1), day(31))
		require.Len(t, got, 2)
		latest, err := h.Latest(txCtx, "ACME")
		require.NoError(t, err)
		require.Equal(t, day(3), latest.DateTime)
		return nil
	})
	require.NoError(t, err)

	got, _ := h.Range(ctx, "ACME", day(1), day(31))
	require.Len(t, got, 1)
	require.Equal(t, 3.0, got[0].Close)
}

func TestHistory_ConcurrentReaderNeverSeesEmptyHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewStore()
	h := s.History()
	recs := []domain.HistoricalRecord{
		{Symbol: "ACME", DateTime: day(1), Close: 1},
		{Symbol: "ACME", DateTime: day(2), Close: 2},
	}
	require.NoError(t, replace(ctx, s, "ACME", nil, recs, nil))

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 200; i++ {
			if err := replace(ctx, s, "ACME", nil, recs, nil); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		default:
			n, err := h.Count(ctx, "ACME")
			require.NoError(t, err)
			require.Equal(t, 2, n)
		}
	}
}

func TestHistory_LockNeedsUnitOfWork(t *testing.T) {
	t.Parallel()
	require.Error(t, memory.NewStore().History().LockSymbol(context.Background(), "ACME"))
}

func TestHistory_SymbolLockSerializesWriters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewStore()
	h := s.History()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(ctx, func(ctx context.Context) error {
				if err := h.LockSymbol(ctx, "ACME"); err != nil {
					return err
				}
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	require.Equal(t, 1, maxSeen)
}

func TestSnapshots_KeepLocalized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := memory.NewStore().Snapshots()
	snap := domain.MarketSnapshot{Symbol: "ACME", CompanyName: "Acme", CurrentPrice: 1, PreviousClose: 1, Sector: str("Tech")}
	require.NoError(t, repo.Upsert(ctx, snap))
	repo.SetLocalized("ACME", str("Akme"), str("Teknologi"))

	snap.Sector = nil
	snap.CurrentPrice = 2
	require.NoError(t, repo.Upsert(ctx, snap))
	got, err := repo.Get(ctx, "ACME")
	require.NoError(t, err)
	require.Equal(t, 2.0, got.CurrentPrice)
	require.Equal(t, "Akme", *got.CompanyNameLocalized)
	require.Equal(t, "Teknologi", *got.SectorLocalized)
	require.Equal(t, "Tech", *got.Sector)
}

func TestRuns_ClaimOldestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	runs := memory.NewStore().Runs()
	a, _ := runs.CreateQueued(ctx, domain.RunProbe, []string{"^IDX"}, nil)
	b, _ := runs.CreateQueued(ctx, domain.RunSnapshot, []string{"AAA"}, nil)
	c, _ := runs.CreateQueued(ctx, domain.RunBackfill, []string{"AAA"}, nil)

	got, err := runs.ClaimQueued(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, a, got[0].ID)
	require.Equal(t, b, got[1].ID)

	got, _ = runs.ClaimQueued(ctx, 10)
	require.Len(t, got, 1)
	require.Equal(t, c, got[0].ID)

	require.NoError(t, runs.Complete(ctx, c, domain.RunStatusDone, &domain.RunSummary{Affected: 5}, nil))
	run, err := runs.GetByID(ctx, c)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusDone, run.Status)
	require.Equal(t, 5, run.Summary.Affected)
	require.ErrorIs(t, runs.Complete(ctx, "nope", domain.RunStatusDone, nil, nil), application.ErrNotFound)
}

// The whole pipeline against the in-process store and the fake provider.
func TestPipeline_WithFakeProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := memory.NewStore()
	fake := provider.NewFake("^IDX")
	svc := application.NewService(fake, s.Snapshots(), s.Stocks(), s.History(),
		application.WithUnitOfWork(s),
		application.WithProbeDelay(0),
		application.WithIndexMarkers([]string{"^"}),
		application.WithWindows([]domain.LookbackWindow{30}),
	)
	runner := application.NewRunner(svc, "^GSPC")

	sum, err := runner.Run(ctx, domain.RunProbe, []string{"^IDX", "IDX=Composite"})
	require.NoError(t, err)
	require.Equal(t, "IDX", sum.Selected)
	st, err := s.Stocks().Get(ctx, "IDX")
	require.NoError(t, err)
	require.Equal(t, "FAKE", st.Exchange)

	sum, err = runner.Run(ctx, domain.RunBackfillFull, []string{"IDX"})
	require.NoError(t, err)
	require.Positive(t, sum.Affected)
	n, _ := s.History().Count(ctx, "IDX")
	require.Equal(t, sum.Affected, n)

	again, err := runner.Run(ctx, domain.RunBackfill, []string{"IDX"})
	require.NoError(t, err)
	n2, _ := s.History().Count(ctx, "IDX")
	require.Equal(t, n, n2)
	require.Equal(t, sum.Affected, again.Affected)

	_, err = runner.Run(ctx, domain.RunSnapshot, []string{"IDX"})
	require.NoError(t, err)
	snap, err := s.Snapshots().Get(ctx, "IDX")
	require.NoError(t, err)
	require.InDelta(t, 1.0, snap.PriceChangePercent, 0.011)
}
