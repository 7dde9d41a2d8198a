package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"marketdata-ingest/internal/bootstrap"
	infraconfig "marketdata-ingest/internal/infrastructure/config"
	"marketdata-ingest/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	logger := logx.L()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.InitAPI(ctx)
	if err != nil {
		logger.Fatal("init api", zap.Error(err))
	}
	defer cleanup()

	// The memory queue is not shared with cmd/worker.
	if app.Config.Storage == "memory" {
		go app.Worker.Start(ctx)
	}

	addr := ":" + app.Config.Port
	server := &http.Server{
		Addr:    addr,
		Handler: app.Handler,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
