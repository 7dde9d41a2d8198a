package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/infrastructure/memory"
	"marketdata-ingest/internal/observability"

	"github.com/stretchr/testify/require"
)

type idemSet map[string]bool

func (s idemSet) TryReserve(_ context.Context, k string) (bool, error) {
	if s[k] {
		return false, nil
	}
	s[k] = true
	return true, nil
}

func (s idemSet) Release(_ context.Context, k string) error {
	delete(s, k)
	return nil
}

func setup(t *testing.T, opts ...ServerOption) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	runs := application.NewRunService(store.Runs(), store.Snapshots(), store.History(), idemSet{})
	return NewRouter(NewServer(runs, opts...)), store
}

func do(h http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h, _ := setup(t)
	rec := do(h, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	h, _ := setup(t, WithReadiness("db", func(context.Context) error { return errors.New("down") }))
	rec := do(h, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "db not ready")

	h, _ = setup(t, WithReadiness("db", func(context.Context) error { return nil }))
	require.Equal(t, http.StatusOK, do(h, http.MethodGet, "/readyz", nil).Code)
}

func TestRequestRun_QueuesAndReports(t *testing.T) {
	h, store := setup(t)
	rec := do(h, http.MethodPost, "/runs", map[string]any{"kind": "backfill-full", "symbols": []string{"AAA"}}, "X-Idempotency-Key", "k1")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted struct {
		RunID  string `json:"run_id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.Equal(t, "queued", accepted.Status)

	dup := do(h, http.MethodPost, "/runs", map[string]any{"kind": "backfill-full", "symbols": []string{"AAA"}}, "X-Idempotency-Key", "k1")
	require.Equal(t, http.StatusConflict, dup.Code)

	ctx := context.Background()
	claimed, err := store.Runs().ClaimQueued(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, domain.RunBackfillFull, claimed[0].Kind)
	require.NoError(t, store.Runs().Complete(ctx, accepted.RunID, domain.RunStatusDone,
		&domain.RunSummary{Kind: domain.RunBackfillFull, Affected: 12, Message: "ok"}, nil))

	rec = do(h, http.MethodGet, "/runs/"+accepted.RunID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var details struct {
		Status  string            `json:"status"`
		Kind    string            `json:"kind"`
		Summary domain.RunSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &details))
	require.Equal(t, "done", details.Status)
	require.Equal(t, "backfill_full", details.Kind)
	require.Equal(t, 12, details.Summary.Affected)
}

func TestRequestRun_BadInput(t *testing.T) {
	h, _ := setup(t)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/runs", map[string]any{"kind": "nope", "symbols": []string{"A"}}).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/runs", map[string]any{"kind": "snapshot"}).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/runs", map[string]any{"kind": "snapshot", "extra": 1}).Code)
}

func TestGetRun_NotFound(t *testing.T) {
	h, _ := setup(t)
	rec := do(h, http.MethodGet, "/runs/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Not Found"}`, rec.Body.String())
}

func TestSnapshotAndHistoryReads(t *testing.T) {
	h, store := setup(t)
	ctx := context.Background()
	require.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/snapshots/ACME", nil).Code)
	require.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/history/ACME/latest", nil).Code)

	require.NoError(t, store.Snapshots().Upsert(ctx, domain.MarketSnapshot{
		Symbol: "ACME", CompanyName: "Acme", CurrentPrice: 120, PreviousClose: 100,
		PriceChange: 20, PriceChangePercent: 20, IsActive: true,
	}))
	now := time.Now().UTC().Truncate(24 * time.Hour)
	_, err := store.History().InsertBulk(ctx, []domain.HistoricalRecord{
		{Symbol: "ACME", DateTime: now.AddDate(0, 0, -60), Close: 1},
		{Symbol: "ACME", DateTime: now.AddDate(0, 0, -2), Close: 2},
		{Symbol: "ACME", DateTime: now.AddDate(0, 0, -1), Close: 3},
	})
	require.NoError(t, err)

	rec := do(h, http.MethodGet, "/snapshots/ACME", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, 20.0, snap["price_change_percent"])
	require.NotContains(t, snap, "company_name_localized")

	rec = do(h, http.MethodGet, "/history/ACME/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var latest struct {
		Count  int `json:"count"`
		Latest struct {
			Close float64 `json:"close"`
		} `json:"latest"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	require.Equal(t, 3, latest.Count)
	require.Equal(t, 3.0, latest.Latest.Close)

	rec = do(h, http.MethodGet, "/history/ACME?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		Records []struct {
			Close float64 `json:"close"`
		} `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Records, 2)

	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/history/ACME?days=x", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/history/ACME?days=0", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	m := observability.NewMetrics("test")
	h, _ := setup(t, WithMetrics(m))
	do(h, http.MethodGet, "/runs/nope", nil)
	rec := do(h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/runs/{id}",status="404"} 1`)
}
