package worker

import (
	"context"
	"fmt"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
	infraconfig "marketdata-ingest/internal/infrastructure/config"
	"marketdata-ingest/internal/infrastructure/logx"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var _ application.Worker = (*DbWorker)(nil)

// Executor runs one entry point. *application.Runner satisfies it.
type Executor interface {
	Run(ctx context.Context, kind domain.RunKind, symbols []string) (domain.RunSummary, error)
}

type claimRecorder interface{ RecordClaimed(n int) }

// DbWorker polls the run queue, executes claimed runs and stores their
// summaries.
type DbWorker struct {
	Runs     application.RunRepo
	Executor Executor
	Metrics  claimRecorder

	PollEvery   time.Duration
	BatchLimit  int
	Concurrency int
	RunTimeout  time.Duration
	Log         *zap.Logger
}

func (w *DbWorker) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	if w.PollEvery <= 0 {
		w.PollEvery = infraconfig.DefaultWorkerPoll
	}
	if w.BatchLimit <= 0 {
		w.BatchLimit = infraconfig.DefaultWorkerBatch
	}
	if w.Concurrency <= 0 {
		w.Concurrency = 1
	}
	if w.RunTimeout <= 0 {
		w.RunTimeout = infraconfig.DefaultRunTimeout
	}

	t := time.NewTicker(w.PollEvery)
	defer t.Stop()

	log.Info("db_worker_started", zap.Duration("poll_every", w.PollEvery), zap.Int("concurrency", w.Concurrency))
	for {
		select {
		case <-ctx.Done():
			log.Info("db_worker_stopped")
			return
		case <-t.C:
			w.tick(ctx, log)
		}
	}
}

func (w *DbWorker) tick(ctx context.Context, log *zap.Logger) {
	runs, err := w.Runs.ClaimQueued(ctx, w.BatchLimit)
	if err != nil {
		log.Warn("claim_failed", zap.Error(err))
		return
	}
	if len(runs) == 0 {
		return
	}
	if w.Metrics != nil {
		w.Metrics.RecordClaimed(len(runs))
	}
	g := new(errgroup.Group)
	g.SetLimit(w.Concurrency)
	for _, r := range runs {
		r := r
		g.Go(func() error {
			w.processOne(ctx, log, r)
			return nil
		})
	}
	_ = g.Wait()
}

func (w *DbWorker) processOne(ctx context.Context, log *zap.Logger, r domain.IngestRun) {
	log = log.With(zap.String("run_id", r.ID), zap.String("kind", string(r.Kind)))
	rctx, cancel := context.WithTimeout(logx.WithRunID(ctx, r.ID), w.RunTimeout)
	defer cancel()

	sum, err := w.execute(rctx, r)
	// completion must be recorded even when the run hit its deadline
	cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer ccancel()
	if err != nil {
		msg := err.Error()
		if cerr := w.Runs.Complete(cctx, r.ID, domain.RunStatusFailed, &sum, &msg); cerr != nil {
			log.Error("complete_failed", zap.Error(cerr))
		}
		log.Warn("run_failed", zap.Error(err))
		return
	}
	if cerr := w.Runs.Complete(cctx, r.ID, domain.RunStatusDone, &sum, nil); cerr != nil {
		log.Error("complete_failed", zap.Error(cerr))
		return
	}
	log.Info("run_done", zap.Int("affected", sum.Affected), zap.String("message", sum.Message))
}

func (w *DbWorker) execute(ctx context.Context, r domain.IngestRun) (sum domain.RunSummary, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.L().Warn("db_worker.panic", zap.String("run_id", r.ID), zap.Any("r", rec))
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return w.Executor.Run(ctx, r.Kind, r.Symbols)
}
