package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/config"
	infraconfig "marketdata-ingest/internal/infrastructure/config"
	httpserver "marketdata-ingest/internal/infrastructure/http"
	"marketdata-ingest/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// APIApp is the HTTP surface. With STORAGE=memory the queue lives in this
// process, so Worker is started alongside the server.
type APIApp struct {
	Handler http.Handler
	Worker  application.Worker
	Config  config.Config
}

func ProvideAPIApp(srv *httpserver.Server, w application.Worker, cfg config.Config) *APIApp {
	return &APIApp{Handler: httpserver.NewRouter(srv), Worker: w, Config: cfg}
}

// WorkerApp drains the run queue and serves /metrics and /healthz on
// METRICS_ADDR.
type WorkerApp func(ctx context.Context) error

func ProvideWorkerApp(w application.Worker, m *observability.Metrics, st Storage, log *zap.Logger, cfg config.Config) WorkerApp {
	return func(ctx context.Context) error {
		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			w.Start(ctx)
			return nil
		})
		if cfg.MetricsAddr == "" {
			return g.Wait()
		}

		r := chi.NewRouter()
		r.Handle("/metrics", m.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := st.Ping(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("worker.metrics_listening", zap.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), infraconfig.DefaultShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shCtx)
		})
		return g.Wait()
	}
}
