package application

import (
	"context"
	"strings"

	"marketdata-ingest/internal/domain"
)

// IdempotencyStore handles short-lived request deduplication.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved.
	// Returns false if the key already exists (duplicate).
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release frees a reserved key.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency always succeeds; useful for tests/dev when Redis is disabled.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }

func (NoopIdempotency) Release(context.Context, string) error { return nil }

// runKey scopes a client key to the entry point so the same key may be
// reused across kinds.
func runKey(kind domain.RunKind, key string) string {
	return "ingest:run:" + string(kind) + ":" + strings.TrimSpace(key)
}
