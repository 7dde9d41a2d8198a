package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
	infraconfig "marketdata-ingest/internal/infrastructure/config"
	"marketdata-ingest/internal/infrastructure/logx"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var errNoTx = errors.New("no transaction in context")

type HistoryRepo struct {
	db        *DB
	batchSize int
}

func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db, batchSize: infraconfig.DefaultHistoryBatch}
}

// LockSymbol takes a transaction-scoped advisory lock, so it must run inside
// a unit of work.
func (r *HistoryRepo) LockSymbol(ctx context.Context, symbol string) error {
	tx := txFromCtx(ctx)
	if tx == nil {
		return fmt.Errorf("lock %s: %w", symbol, errNoTx)
	}
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, symbol)
	return err
}

func (r *HistoryRepo) DeleteFrom(ctx context.Context, symbol string, from *time.Time) (int64, error) {
	const del = `DELETE FROM historical_records WHERE symbol=$1 AND ($2::timestamptz IS NULL OR date_time >= $2)`
	log := logx.WithFields(ctx).With(
		zap.String("repo", "history"),
		zap.String("operation", "DeleteFrom"),
		zap.String("symbol", symbol),
	)
	if from != nil {
		log = log.With(zap.Time("from", *from))
	}
	tag, err := r.db.q(ctx).Exec(ctx, del, symbol, from)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return 0, err
	}
	log.Debug("sql.exec_success", zap.Int64("rows_affected", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

// InsertBulk sends records in batches. A record that collides with a stored
// (symbol, date_time) overwrites it.
func (r *HistoryRepo) InsertBulk(ctx context.Context, recs []domain.HistoricalRecord) (int64, error) {
	const ins = `
        INSERT INTO historical_records(symbol, date_time, open, high, low, close, volume, adjusted_close)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (symbol, date_time) DO UPDATE SET
            open=EXCLUDED.open, high=EXCLUDED.high, low=EXCLUDED.low, close=EXCLUDED.close,
            volume=EXCLUDED.volume, adjusted_close=EXCLUDED.adjusted_close`
	q := r.db.q(ctx)
	var total int64
	for start := 0; start < len(recs); start += r.batchSize {
		end := min(start+r.batchSize, len(recs))
		b := &pgx.Batch{}
		for _, rec := range recs[start:end] {
			b.Queue(ins, rec.Symbol, rec.DateTime.UTC(), rec.Open, rec.High, rec.Low, rec.Close, rec.Volume, rec.AdjustedClose)
		}
		n, err := execBatch(ctx, q, b)
		total += n
		if err != nil {
			logx.WithFields(ctx).Error("sql.batch_failed",
				zap.String("repo", "history"),
				zap.Int("offset", start),
				zap.Error(err),
			)
			return total, err
		}
	}
	return total, nil
}

func execBatch(ctx context.Context, q querier, b *pgx.Batch) (int64, error) {
	br := q.SendBatch(ctx, b)
	var n int64
	for i := 0; i < b.Len(); i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return n, err
		}
		n += tag.RowsAffected()
	}
	return n, br.Close()
}

func (r *HistoryRepo) Count(ctx context.Context, symbol string) (int, error) {
	var n int
	err := r.db.q(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM historical_records WHERE symbol=$1`, symbol).Scan(&n)
	return n, err
}

func (r *HistoryRepo) Latest(ctx context.Context, symbol string) (domain.HistoricalRecord, error) {
	row := r.db.q(ctx).QueryRow(ctx, `SELECT `+historyCols+` FROM historical_records
        WHERE symbol=$1 ORDER BY date_time DESC LIMIT 1`, symbol)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.HistoricalRecord{}, application.ErrNotFound
	}
	return rec, err
}

// Range lists records in [from, to] ordered by time.
func (r *HistoryRepo) Range(ctx context.Context, symbol string, from, to time.Time) ([]domain.HistoricalRecord, error) {
	rows, err := r.db.q(ctx).Query(ctx, `SELECT `+historyCols+` FROM historical_records
        WHERE symbol=$1 AND date_time BETWEEN $2 AND $3 ORDER BY date_time`, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

const historyCols = `symbol, date_time, open::float8, high::float8, low::float8, close::float8, volume, adjusted_close::float8`

func scanRecord(row scannable) (domain.HistoricalRecord, error) {
	var rec domain.HistoricalRecord
	err := row.Scan(&rec.Symbol, &rec.DateTime, &rec.Open, &rec.High, &rec.Low, &rec.Close, &rec.Volume, &rec.AdjustedClose)
	rec.DateTime = rec.DateTime.UTC()
	return rec, err
}

func collectRecords(rows rowsIter) ([]domain.HistoricalRecord, error) {
	var out []domain.HistoricalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
