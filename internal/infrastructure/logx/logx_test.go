package logx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := logger
	logger = zap.New(core)
	t.Cleanup(func() { logger = prev })

	ctx := WithRunID(WithRequestID(context.Background(), "rid-1"), "run-9")
	WithFields(ctx).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "rid-1", fields["request_id"])
	require.Equal(t, "run-9", fields["run_id"])
	require.NotContains(t, fields, "trace_id")
	require.Equal(t, "rid-1", RequestID(ctx))
	require.Same(t, logger, WithFields(context.Background()))
}
