package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultWorkerPoll      = 250 * time.Millisecond
	DefaultWorkerBatch     = 10
	DefaultPGMaxConns      = 8
	DefaultPGMinConns      = 1
	// DefaultHistoryBatch caps rows per INSERT when replacing history.
	DefaultHistoryBatch = 500
	// DefaultRunTimeout bounds a single queued run in the worker.
	DefaultRunTimeout = 10 * time.Minute
)
