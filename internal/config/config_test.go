package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PROBE_INDEX_MARKERS", "BACKFILL_WINDOWS_DAYS", "PROVIDER_CALL_TIMEOUT_MS", "STORAGE", "WORKER_CONCURRENCY", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
	c := Load()
	require.Equal(t, "pg", c.Storage)
	require.Equal(t, 10*time.Second, c.CallTimeout)
	require.Equal(t, []string{"^"}, c.ProbeIndexMarkers)
	require.Equal(t, "^GSPC", c.ProbeDefaultSymbol)
	require.Equal(t, []int{30, 90, 180, 365}, c.BackfillWindows)
	require.Equal(t, 2, c.WorkerConcurrency)
	require.Empty(t, c.RedisAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PROBE_INDEX_MARKERS", "^, .JK ,")
	t.Setenv("BACKFILL_WINDOWS_DAYS", "7,x,14")
	t.Setenv("PROBE_DELAY_MS", "250")
	t.Setenv("STORAGE", "memory")
	c := Load()
	require.Equal(t, []string{"^", ".JK"}, c.ProbeIndexMarkers)
	require.Equal(t, []int{7, 14}, c.BackfillWindows)
	require.Equal(t, 250*time.Millisecond, c.ProbeDelay)
	require.Equal(t, "memory", c.Storage)
}
