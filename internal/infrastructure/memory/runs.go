package memory

import (
	"context"
	"sort"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"

	"github.com/google/uuid"
)

type runRow struct {
	run domain.IngestRun
	seq int64
}

type RunRepo struct{ s *Store }

func (s *Store) Runs() *RunRepo { return &RunRepo{s: s} }

func (r *RunRepo) CreateQueued(_ context.Context, kind domain.RunKind, symbols []string, _ *string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := uuid.NewString()
	r.s.runSeq++
	r.s.runs[id] = &runRow{
		seq: r.s.runSeq,
		run: domain.IngestRun{
			ID:        id,
			Kind:      kind,
			Symbols:   append([]string(nil), symbols...),
			Status:    domain.RunStatusQueued,
			UpdatedAt: r.s.now(),
		},
	}
	return id, nil
}

func (r *RunRepo) GetByID(_ context.Context, id string) (domain.IngestRun, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.runs[id]
	if !ok {
		return domain.IngestRun{}, application.ErrNotFound
	}
	return row.run, nil
}

// ClaimQueued hands out the oldest queued runs first.
func (r *RunRepo) ClaimQueued(_ context.Context, limit int) ([]domain.IngestRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var queued []*runRow
	for _, row := range r.s.runs {
		if row.run.Status == domain.RunStatusQueued {
			queued = append(queued, row)
		}
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].seq < queued[j].seq })
	if limit > 0 && len(queued) > limit {
		queued = queued[:limit]
	}
	out := make([]domain.IngestRun, 0, len(queued))
	for _, row := range queued {
		row.run.Status = domain.RunStatusProcessing
		out = append(out, row.run)
	}
	return out, nil
}

func (r *RunRepo) Complete(_ context.Context, id string, st domain.RunStatus, sum *domain.RunSummary, errMsg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.runs[id]
	if !ok {
		return application.ErrNotFound
	}
	row.run.Status, row.run.Summary, row.run.Error = st, sum, errMsg
	row.run.UpdatedAt = r.s.now()
	return nil
}
