package bootstrap

import (
	"context"
	"fmt"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/config"
	"marketdata-ingest/internal/domain"
	httpserver "marketdata-ingest/internal/infrastructure/http"
	"marketdata-ingest/internal/infrastructure/logx"
	"marketdata-ingest/internal/infrastructure/memory"
	"marketdata-ingest/internal/infrastructure/pg"
	"marketdata-ingest/internal/infrastructure/provider"
	redisstore "marketdata-ingest/internal/infrastructure/redis"
	"marketdata-ingest/internal/infrastructure/worker"
	"marketdata-ingest/internal/observability"

	"go.uber.org/zap"
)

func ProvideConfig() config.Config { return config.Load() }

func ProvideLogger(cfg config.Config) *zap.Logger {
	logx.SetLevel(cfg.LogLevel)
	return logx.L()
}

func ProvideMetrics() *observability.Metrics { return observability.NewMetrics("") }

// ProvideStorage opens the backend selected by STORAGE.
func ProvideStorage(ctx context.Context, log *zap.Logger, cfg config.Config) (Storage, func(), error) {
	switch cfg.Storage {
	case "memory":
		s := memory.NewStore()
		log.Warn("storage.memory", zap.String("note", "data is lost on exit"))
		return Storage{
			Snapshots: s.Snapshots(),
			Stocks:    s.Stocks(),
			History:   s.History(),
			Runs:      s.Runs(),
			UoW:       s,
			Ping:      s.Ping,
		}, func() {}, nil
	case "", "pg":
		if cfg.DatabaseURL == "" {
			return Storage{}, func() {}, ErrMissingDBURL
		}
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return Storage{}, func() {}, err
		}
		if err := pg.RunMigrations(ctx, db); err != nil {
			db.Close()
			return Storage{}, func() {}, err
		}
		cleanup := func() {
			log.Info("closing pg")
			db.Close()
		}
		return Storage{
			Snapshots: pg.NewSnapshotRepo(db),
			Stocks:    pg.NewStockRepo(db),
			History:   pg.NewHistoryRepo(db),
			Runs:      pg.NewRunRepo(db),
			UoW:       pg.NewUnitOfWork(db),
			Ping:      db.Ping,
		}, cleanup, nil
	default:
		return Storage{}, func() {}, fmt.Errorf("unsupported STORAGE=%q", cfg.Storage)
	}
}

// ProvideIdempotency uses redis when REDIS_ADDR is set.
func ProvideIdempotency(ctx context.Context, log *zap.Logger, cfg config.Config) (application.IdempotencyStore, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("idempotency.disabled")
		return application.NoopIdempotency{}, func() {}, nil
	}
	store, err := redisstore.Open(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	if err != nil {
		return nil, func() {}, err
	}
	return store, func() { _ = store.Close() }, nil
}

func ProvideQuoteProvider(log *zap.Logger, cfg config.Config) (application.QuoteProvider, error) {
	switch cfg.Provider {
	case "fake":
		return provider.NewFake(), nil
	case "", "http":
		return provider.NewHTTPProvider(cfg.ProviderBaseURL, cfg.ProviderAPIKey,
			provider.WithLogger(log.With(zap.String("component", "provider"))),
			provider.WithRetryBudget(cfg.CallTimeout/2),
		)
	default:
		return nil, fmt.Errorf("unsupported PROVIDER=%q", cfg.Provider)
	}
}

func ProvideService(st Storage, qp application.QuoteProvider, m *observability.Metrics, log *zap.Logger, cfg config.Config) *application.Service {
	windows := make([]domain.LookbackWindow, 0, len(cfg.BackfillWindows))
	for _, d := range cfg.BackfillWindows {
		windows = append(windows, domain.LookbackWindow(d))
	}
	opts := []application.Option{
		application.WithLogger(log),
		application.WithObserver(m),
		application.WithUnitOfWork(st.UoW),
		application.WithCallTimeout(cfg.CallTimeout),
		application.WithProbeDelay(cfg.ProbeDelay),
		application.WithIndexMarkers(cfg.ProbeIndexMarkers),
		application.WithBackfillConcurrency(cfg.BackfillConcurrency),
	}
	if len(windows) > 0 {
		opts = append(opts, application.WithWindows(windows))
	}
	return application.NewService(qp, st.Snapshots, st.Stocks, st.History, opts...)
}

func ProvideRunner(svc *application.Service, cfg config.Config) *application.Runner {
	return application.NewRunner(svc, cfg.ProbeDefaultSymbol)
}

func ProvideRunService(st Storage, idem application.IdempotencyStore) *application.RunService {
	return application.NewRunService(st.Runs, st.Snapshots, st.History, idem)
}

type pinger interface{ Ping(context.Context) error }

func ProvideServer(rs *application.RunService, st Storage, idem application.IdempotencyStore, m *observability.Metrics) *httpserver.Server {
	opts := []httpserver.ServerOption{
		httpserver.WithMetrics(m),
		httpserver.WithReadiness("storage", st.Ping),
	}
	if p, ok := idem.(pinger); ok {
		opts = append(opts, httpserver.WithReadiness("redis", p.Ping))
	}
	return httpserver.NewServer(rs, opts...)
}

func ProvideWorker(st Storage, runner *application.Runner, m *observability.Metrics, log *zap.Logger, cfg config.Config) application.Worker {
	return &worker.DbWorker{
		Runs:        st.Runs,
		Executor:    runner,
		Metrics:     m,
		PollEvery:   cfg.WorkerPoll,
		BatchLimit:  cfg.WorkerBatchSize,
		Concurrency: cfg.WorkerConcurrency,
		Log:         log.With(zap.String("component", "worker")),
	}
}
