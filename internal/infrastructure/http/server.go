package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/infrastructure/logx"
	"marketdata-ingest/internal/observability"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxRequestBody = 1 << 20

// Server serves run requests and the read-only verification queries.
type Server struct {
	runs    *application.RunService
	metrics *observability.Metrics
	checks  map[string]func(context.Context) error
}

type ServerOption func(*Server)

func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithReadiness adds a named check to /readyz.
func WithReadiness(name string, ping func(context.Context) error) ServerOption {
	return func(s *Server) { s.checks[name] = ping }
}

func NewServer(runs *application.RunService, opts ...ServerOption) *Server {
	s := &Server{runs: runs, checks: map[string]func(context.Context) error{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

type runRequest struct {
	Kind    string   `json:"kind"`
	Symbols []string `json:"symbols"`
}

type runAccepted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

type runDetails struct {
	RunID     string             `json:"run_id"`
	Kind      string             `json:"kind"`
	Symbols   []string           `json:"symbols"`
	Status    string             `json:"status"`
	Summary   *domain.RunSummary `json:"summary,omitempty"`
	Error     *string            `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type snapshotView struct {
	Symbol               string    `json:"symbol"`
	CompanyName          string    `json:"company_name"`
	CompanyNameLocalized *string   `json:"company_name_localized,omitempty"`
	CurrentPrice         float64   `json:"current_price"`
	PreviousClose        float64   `json:"previous_close"`
	PriceChange          float64   `json:"price_change"`
	PriceChangePercent   float64   `json:"price_change_percent"`
	Volume               *int64    `json:"volume,omitempty"`
	Sector               *string   `json:"sector,omitempty"`
	SectorLocalized      *string   `json:"sector_localized,omitempty"`
	LastUpdated          time.Time `json:"last_updated"`
	IsActive             bool      `json:"is_active"`
}

type recordView struct {
	DateTime      time.Time `json:"date_time"`
	Open          *float64  `json:"open,omitempty"`
	High          *float64  `json:"high,omitempty"`
	Low           *float64  `json:"low,omitempty"`
	Close         float64   `json:"close"`
	Volume        *int64    `json:"volume,omitempty"`
	AdjustedClose *float64  `json:"adjusted_close,omitempty"`
}

func toRecordView(r domain.HistoricalRecord) recordView {
	return recordView{
		DateTime: r.DateTime, Open: r.Open, High: r.High, Low: r.Low,
		Close: r.Close, Volume: r.Volume, AdjustedClose: r.AdjustedClose,
	}
}

func (s *Server) RequestRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	var idem *string
	if k := strings.TrimSpace(r.Header.Get("X-Idempotency-Key")); k != "" {
		idem = &k
	}
	id, err := s.runs.RequestRun(r.Context(), body.Kind, body.Symbols, idem)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, runAccepted{RunID: id, Status: string(domain.RunStatusQueued)})
}

func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runDetails{
		RunID:     run.ID,
		Kind:      string(run.Kind),
		Symbols:   run.Symbols,
		Status:    string(run.Status),
		Summary:   run.Summary,
		Error:     run.Error,
		UpdatedAt: run.UpdatedAt,
	})
}

func (s *Server) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.runs.GetSnapshot(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotView(snap))
}

func (s *Server) GetLatestHistory(w http.ResponseWriter, r *http.Request) {
	rec, n, err := s.runs.LatestHistory(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": rec.Symbol,
		"count":  n,
		"latest": toRecordView(rec),
	})
}

// GetHistory lists records of the last ?days= days (default 30).
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "days must be an integer")
			return
		}
		days = d
	}
	symbol := chi.URLParam(r, "symbol")
	recs, err := s.runs.History(r.Context(), symbol, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]recordView, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordView(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "days": days, "records": out})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		notFound(w)
	case errors.Is(err, application.ErrBadRequest):
		badRequest(w, err.Error())
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "duplicate idempotency key")
	default:
		logx.WithFields(r.Context()).Error("http.handler_failed", zap.String("path", r.URL.Path), zap.Error(err))
		internalError(w)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
