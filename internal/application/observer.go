package application

import (
	"time"

	"marketdata-ingest/internal/domain"
)

// Observer receives pipeline events for metrics.
type Observer interface {
	ProviderCall(op string, took time.Duration, err error)
	WindowAttempt(mode domain.BackfillMode, window domain.LookbackWindow, outcome string)
	RunFinished(kind domain.RunKind, affected int, err error)
}

type NoopObserver struct{}

func (NoopObserver) ProviderCall(string, time.Duration, error) {}
func (NoopObserver) WindowAttempt(domain.BackfillMode, domain.LookbackWindow, string) {}
func (NoopObserver) RunFinished(domain.RunKind, int, error) {}
