package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/normalize"

	"go.uber.org/zap"
)

// Service hosts the ingestion pipeline: probing, snapshot updates and
// historical backfill.
type Service struct {
	provider  QuoteProvider
	snapshots SnapshotRepo
	stocks    StockRepo
	history   HistoryRepo
	uow       UnitOfWork
	clock     Clock
	log       *zap.Logger
	obs       Observer
	norm      normalize.Normalizer

	callTimeout  time.Duration
	probeDelay   time.Duration
	indexMarkers []string
	windows      []domain.LookbackWindow
	concurrency  int
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }
func WithObserver(o Observer) Option { return func(s *Service) { s.obs = o } }
func WithUnitOfWork(u UnitOfWork) Option { return func(s *Service) { s.uow = u } }
func WithCallTimeout(d time.Duration) Option { return func(s *Service) { s.callTimeout = d } }
func WithProbeDelay(d time.Duration) Option { return func(s *Service) { s.probeDelay = d } }
func WithIndexMarkers(m []string) Option { return func(s *Service) { s.indexMarkers = m } }
func WithBackfillConcurrency(n int) Option { return func(s *Service) { s.concurrency = n } }
func WithWindows(w []domain.LookbackWindow) Option {
	return func(s *Service) { s.windows = domain.SortWindows(w) }
}

const (
	defaultCallTimeout = 10 * time.Second
	defaultProbeDelay  = time.Second
)

func NewService(provider QuoteProvider, snapshots SnapshotRepo, stocks StockRepo, history HistoryRepo, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		snapshots:   snapshots,
		stocks:      stocks,
		history:     history,
		callTimeout: defaultCallTimeout,
		probeDelay:  defaultProbeDelay,
		windows:     domain.DefaultLookbackWindows,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.obs == nil {
		s.obs = NoopObserver{}
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.callTimeout <= 0 {
		s.callTimeout = defaultCallTimeout
	}
	if len(s.windows) == 0 {
		s.windows = domain.DefaultLookbackWindows
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	s.norm = normalize.Normalizer{Log: s.log}
	return s
}

// call bounds one provider request by the configured timeout and tags any
// failure as a transport error.
func (s *Service) call(ctx context.Context, op string, fn func(ctx context.Context) (normalize.Payload, error)) (normalize.Payload, error) {
	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	start := time.Now()
	p, err := fn(cctx)
	s.obs.ProviderCall(op, time.Since(start), err)
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			return normalize.Payload{}, err
		}
		return normalize.Payload{}, fmt.Errorf("%w: %s: %w", domain.ErrTransport, op, err)
	}
	return p, nil
}

func (s *Service) fetchQuote(ctx context.Context, symbol string) (domain.ProviderQuote, bool, error) {
	p, err := s.call(ctx, "quote", func(ctx context.Context) (normalize.Payload, error) {
		return s.provider.Quote(ctx, symbol)
	})
	if err != nil {
		return domain.ProviderQuote{}, false, err
	}
	q, ok := quoteFromPayload(s.norm, p)
	return q, ok, nil
}

// withSymbolLock runs fn inside one unit of work holding the symbol's write lock.
func (s *Service) withSymbolLock(ctx context.Context, symbol string, fn func(ctx context.Context) error) error {
	return s.uow.Do(ctx, func(ctx context.Context) error {
		if err := s.history.LockSymbol(ctx, symbol); err != nil {
			return fmt.Errorf("lock %s: %w", symbol, err)
		}
		return fn(ctx)
	})
}
