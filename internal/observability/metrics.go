// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ application.Observer = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderCallErrors  *prometheus.CounterVec

	// Backfill metrics
	WindowAttempts *prometheus.CounterVec

	// Run metrics
	RunsTotal         *prometheus.CounterVec
	RowsAffected      *prometheus.CounterVec
	RunsClaimed       prometheus.Counter
	LastSuccessfulRun *prometheus.GaugeVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "marketdata_ingest"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		ProviderCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Provider call latency by endpoint",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
		ProviderCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_errors_total",
			Help:      "Failed provider calls by endpoint and reason",
		}, []string{"op", "reason"}),

		WindowAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backfill",
			Name:      "window_attempts_total",
			Help:      "Lookback window attempts by mode, window and outcome",
		}, []string{"mode", "window_days", "outcome"}),

		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "finished_total",
			Help:      "Finished entry-point runs by kind and status",
		}, []string{"kind", "status"}),
		RowsAffected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "rows_affected_total",
			Help:      "Rows written by entry-point runs",
		}, []string{"kind"}),
		RunsClaimed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "runs_claimed_total",
			Help:      "Queued runs claimed by the worker",
		}),
		LastSuccessfulRun: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "runs",
			Name:      "last_success_timestamp",
			Help:      "Unix time of the last successful run by kind",
		}, []string{"kind"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),

		gatherer: reg,
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Gatherer() prometheus.Gatherer { return m.gatherer }

func (m *Metrics) ProviderCall(op string, took time.Duration, err error) {
	m.ProviderCallLatency.WithLabelValues(op).Observe(took.Seconds())
	if err != nil {
		m.ProviderCallErrors.WithLabelValues(op, reason(err)).Inc()
	}
}

func (m *Metrics) WindowAttempt(mode domain.BackfillMode, window domain.LookbackWindow, outcome string) {
	m.WindowAttempts.WithLabelValues(string(mode), strconv.Itoa(int(window)), outcome).Inc()
}

func (m *Metrics) RunFinished(kind domain.RunKind, affected int, err error) {
	status := "ok"
	if err != nil {
		status = reason(err)
	} else {
		m.LastSuccessfulRun.WithLabelValues(string(kind)).SetToCurrentTime()
	}
	m.RunsTotal.WithLabelValues(string(kind), status).Inc()
	m.RowsAffected.WithLabelValues(string(kind)).Add(float64(affected))
}

func (m *Metrics) RecordClaimed(n int) { m.RunsClaimed.Add(float64(n)) }

func (m *Metrics) RecordHTTP(method, route string, status int) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// reason keeps label cardinality bounded.
func reason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrStore):
		return "store"
	case errors.Is(err, application.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	default:
		return "error"
	}
}
