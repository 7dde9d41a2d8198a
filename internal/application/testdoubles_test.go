package application

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/normalize"
)

var (
	ErrRepo = errors.New("repo error")
)

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

// scripted answers keyed by symbol; chart answers keyed by "symbol/windowDays"
type fakeProvider struct {
	mu      sync.Mutex
	quotes  map[string]string
	qErrs   map[string]error
	charts  map[string]string
	cErrs   map[string]error
	calls   []string
	callAt  []time.Time
	now     time.Time
	blockOn string
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.callAt = append(f.callAt, time.Now())
}

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (normalize.Payload, error) {
	f.record("quote:" + symbol)
	if symbol == f.blockOn {
		<-ctx.Done()
		return normalize.Payload{}, ctx.Err()
	}
	if err := f.qErrs[symbol]; err != nil {
		return normalize.Payload{}, err
	}
	body, ok := f.quotes[symbol]
	if !ok {
		return normalize.Decode([]byte(`{"regularMarketPrice": null}`)), nil
	}
	return normalize.Decode([]byte(body)), nil
}

func (f *fakeProvider) Chart(_ context.Context, symbol string, from, to time.Time) (normalize.Payload, error) {
	days := int(to.UTC().Truncate(24*time.Hour).Sub(from).Hours() / 24)
	key := symbol + "/" + strconv.Itoa(days)
	f.record("chart:" + key)
	if err := f.cErrs[key]; err != nil {
		return normalize.Payload{}, err
	}
	body, ok := f.charts[key]
	if !ok {
		return normalize.Decode([]byte(`{"data":[]}`)), nil
	}
	return normalize.Decode([]byte(body)), nil
}

type fakeSnapshotRepo struct {
	mu     sync.Mutex
	store  map[string]domain.MarketSnapshot
	writes int
	err    error
}

func (f *fakeSnapshotRepo) Upsert(_ context.Context, s domain.MarketSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.store == nil {
		f.store = map[string]domain.MarketSnapshot{}
	}
	f.store[s.Symbol] = s
	f.writes++
	return nil
}

func (f *fakeSnapshotRepo) Get(_ context.Context, symbol string) (domain.MarketSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.store[symbol]
	if !ok {
		return domain.MarketSnapshot{}, ErrNotFound
	}
	return s, nil
}

type fakeStockRepo struct {
	mu     sync.Mutex
	stocks map[string]domain.Stock
	order  []string
	failOn string
}

func (f *fakeStockRepo) Upsert(_ context.Context, s domain.Stock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.Symbol == f.failOn {
		return ErrRepo
	}
	if f.stocks == nil {
		f.stocks = map[string]domain.Stock{}
	}
	f.stocks[s.Symbol] = s
	f.order = append(f.order, s.Symbol)
	return nil
}

// fakeHistoryRepo stages writes per unit of work and applies them on commit.
type fakeHistoryRepo struct {
	mu        sync.Mutex
	rows      map[string]map[int64]domain.HistoricalRecord
	insertErr error
	locks     int
}

func (f *fakeHistoryRepo) LockSymbol(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locks++
	return nil
}

func (f *fakeHistoryRepo) DeleteFrom(_ context.Context, symbol string, from *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, r := range f.rows[symbol] {
		if from == nil || !r.DateTime.Before(*from) {
			delete(f.rows[symbol], k)
			n++
		}
	}
	return n, nil
}

func (f *fakeHistoryRepo) InsertBulk(_ context.Context, recs []domain.HistoricalRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	if f.rows == nil {
		f.rows = map[string]map[int64]domain.HistoricalRecord{}
	}
	for _, r := range recs {
		if f.rows[r.Symbol] == nil {
			f.rows[r.Symbol] = map[int64]domain.HistoricalRecord{}
		}
		f.rows[r.Symbol][r.DateTime.UnixNano()] = r
	}
	return int64(len(recs)), nil
}

func (f *fakeHistoryRepo) Count(_ context.Context, symbol string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[symbol]), nil
}

func (f *fakeHistoryRepo) Latest(_ context.Context, symbol string) (domain.HistoricalRecord, error) {
	all := f.all(symbol)
	if len(all) == 0 {
		return domain.HistoricalRecord{}, ErrNotFound
	}
	return all[len(all)-1], nil
}

func (f *fakeHistoryRepo) Range(_ context.Context, symbol string, from, to time.Time) ([]domain.HistoricalRecord, error) {
	var out []domain.HistoricalRecord
	for _, r := range f.all(symbol) {
		if !r.DateTime.Before(from) && !r.DateTime.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeHistoryRepo) all(symbol string) []domain.HistoricalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.HistoricalRecord, 0, len(f.rows[symbol]))
	for _, r := range f.rows[symbol] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}

// snapshotUoW restores history rows when fn fails.
type snapshotUoW struct{ h *fakeHistoryRepo }

func (u snapshotUoW) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	u.h.mu.Lock()
	saved := map[string]map[int64]domain.HistoricalRecord{}
	for sym, rows := range u.h.rows {
		saved[sym] = map[int64]domain.HistoricalRecord{}
		for k, v := range rows {
			saved[sym][k] = v
		}
	}
	u.h.mu.Unlock()
	if err := fn(ctx); err != nil {
		u.h.mu.Lock()
		u.h.rows = saved
		u.h.mu.Unlock()
		return err
	}
	return nil
}

type fakeRunRepo struct {
	mu        sync.Mutex
	runs      map[string]domain.IngestRun
	seq       int
	createErr error
}

func (f *fakeRunRepo) CreateQueued(_ context.Context, kind domain.RunKind, symbols []string, _ *string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if f.runs == nil {
		f.runs = map[string]domain.IngestRun{}
	}
	f.seq++
	id := "run-" + strconv.Itoa(f.seq)
	f.runs[id] = domain.IngestRun{ID: id, Kind: kind, Symbols: symbols, Status: domain.RunStatusQueued}
	return id, nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, id string) (domain.IngestRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return domain.IngestRun{}, ErrNotFound
	}
	return r, nil
}

func (f *fakeRunRepo) ClaimQueued(context.Context, int) ([]domain.IngestRun, error) {
	return nil, nil
}

func (f *fakeRunRepo) Complete(_ context.Context, id string, st domain.RunStatus, sum *domain.RunSummary, errMsg *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status, r.Summary, r.Error = st, sum, errMsg
	f.runs[id] = r
	return nil
}

type fakeIdem struct{ seen map[string]bool }

func (f *fakeIdem) TryReserve(_ context.Context, k string) (bool, error) {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[k] {
		return false, nil
	}
	f.seen[k] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, k string) error {
	delete(f.seen, k)
	return nil
}
