// Package memory is an in-process store for dry runs and tests. It mirrors
// the Postgres repositories: per-symbol write locks, history changes visible
// to other readers only once the unit of work commits, and the same upsert
// rules.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketdata-ingest/internal/domain"
)

var errNoTx = errors.New("no transaction in context")

type Store struct {
	mu        sync.RWMutex
	snapshots map[string]domain.MarketSnapshot
	stocks    map[string]domain.Stock
	history   map[string]map[int64]domain.HistoricalRecord // symbol -> unix nanos
	runs      map[string]*runRow
	runSeq    int64

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]domain.MarketSnapshot),
		stocks:    make(map[string]domain.Stock),
		history:   make(map[string]map[int64]domain.HistoricalRecord),
		runs:      make(map[string]*runRow),
		locks:     make(map[string]*sync.Mutex),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type txKey struct{}

// tx records symbol locks held and a working copy of each touched symbol's
// history. Copies replace the shared rows on commit.
type tx struct {
	held   []*sync.Mutex
	staged map[string]map[int64]domain.HistoricalRecord
}

func txFromCtx(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// Do runs fn as a unit of work. History changes made through ctx are
// published in one step when fn succeeds and dropped when it fails; symbol
// locks are released when Do returns.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromCtx(ctx) != nil {
		return fn(ctx)
	}
	t := &tx{staged: make(map[string]map[int64]domain.HistoricalRecord)}
	defer func() {
		for i := len(t.held) - 1; i >= 0; i-- {
			t.held[i].Unlock()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	s.mu.Lock()
	for sym, rows := range t.staged {
		if len(rows) == 0 {
			delete(s.history, sym)
			continue
		}
		s.history[sym] = rows
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) symbolLock(symbol string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[symbol]
	if !ok {
		m = &sync.Mutex{}
		s.locks[symbol] = m
	}
	return m
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
