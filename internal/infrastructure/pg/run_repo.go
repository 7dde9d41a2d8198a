package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/infrastructure/logx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RunRepo struct{ db *DB }

func NewRunRepo(db *DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) CreateQueued(ctx context.Context, kind domain.RunKind, symbols []string, idem *string) (string, error) {
	id := uuid.NewString()
	const ins = `
        INSERT INTO ingest_runs(id, kind, symbols, status, idempotency_key)
        VALUES ($1, $2, $3, 'queued', $4)`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "ingest_run"),
		zap.String("operation", "CreateQueued"),
		zap.String("id", id),
		zap.String("kind", string(kind)),
		zap.Strings("symbols", symbols),
	)
	log.Info("sql.exec_start")
	tag, err := r.db.q(ctx).Exec(ctx, ins, id, string(kind), symbols, idem)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return "", err
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return id, nil
}

const runCols = `id::text, kind, symbols, status, summary, error, COALESCE(completed_at, requested_at)`

func scanRun(row scannable) (domain.IngestRun, error) {
	var (
		out     domain.IngestRun
		kind    string
		status  string
		summary []byte
	)
	if err := row.Scan(&out.ID, &kind, &out.Symbols, &status, &summary, &out.Error, &out.UpdatedAt); err != nil {
		return domain.IngestRun{}, err
	}
	out.Kind = domain.RunKind(kind)
	switch domain.RunStatus(status) {
	case domain.RunStatusQueued, domain.RunStatusProcessing, domain.RunStatusDone:
		out.Status = domain.RunStatus(status)
	default:
		out.Status = domain.RunStatusFailed
	}
	if len(summary) > 0 {
		var s domain.RunSummary
		if err := json.Unmarshal(summary, &s); err != nil {
			return domain.IngestRun{}, fmt.Errorf("decode summary: %w", err)
		}
		out.Summary = &s
	}
	out.UpdatedAt = out.UpdatedAt.UTC()
	return out, nil
}

func (r *RunRepo) GetByID(ctx context.Context, id string) (domain.IngestRun, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.IngestRun{}, application.ErrNotFound
	}
	log := logx.WithFields(ctx).With(
		zap.String("repo", "ingest_run"),
		zap.String("operation", "GetByID"),
		zap.String("id", id),
	)
	run, err := scanRun(r.db.q(ctx).QueryRow(ctx, `SELECT `+runCols+` FROM ingest_runs WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		log.Info("sql.query_no_rows")
		return domain.IngestRun{}, application.ErrNotFound
	}
	if err != nil {
		log.Error("sql.query_failed", zap.Error(err))
		return domain.IngestRun{}, err
	}
	log.Debug("sql.query_success", zap.String("status", string(run.Status)))
	return run, nil
}

// ClaimQueued moves up to limit queued runs to processing. Concurrent
// workers never claim the same run.
func (r *RunRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.IngestRun, error) {
	const q = `
      WITH cte AS (
        SELECT id
        FROM ingest_runs
        WHERE status = 'queued'
        ORDER BY requested_at
        LIMIT $1
        FOR UPDATE SKIP LOCKED
      )
      UPDATE ingest_runs r
      SET status = 'processing'
      FROM cte
      WHERE r.id = cte.id
      RETURNING r.id::text, r.kind, r.symbols, r.status, r.summary, r.error, r.requested_at;
    `
	rows, err := r.db.q(ctx).Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.IngestRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *RunRepo) Complete(ctx context.Context, id string, st domain.RunStatus, sum *domain.RunSummary, errMsg *string) error {
	var summary []byte
	if sum != nil {
		b, err := json.Marshal(sum)
		if err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}
		summary = b
	}
	const up = `
        UPDATE ingest_runs
        SET status=$2,
            summary=$3,
            error=$4,
            completed_at = CASE WHEN $2 IN ('done','failed') THEN NOW() ELSE completed_at END
        WHERE id=$1`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "ingest_run"),
		zap.String("operation", "Complete"),
		zap.String("id", id),
		zap.String("status", string(st)),
	)
	if errMsg != nil {
		log = log.With(zap.String("error", *errMsg))
	}
	log.Info("sql.exec_start")
	tag, err := r.db.q(ctx).Exec(ctx, up, id, string(st), summary, errMsg)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return application.ErrNotFound
	}
	log.Info("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return nil
}
