package provider

import (
	"context"
	"testing"
	"time"

	"marketdata-ingest/internal/normalize"

	"github.com/stretchr/testify/require"
)

func TestFake_QuoteIsDeterministic(t *testing.T) {
	t.Parallel()
	f := NewFake("GONE")
	a, err := f.Quote(context.Background(), "ACME")
	require.NoError(t, err)
	b, err := f.Quote(context.Background(), "ACME")
	require.NoError(t, err)

	pa, _ := normalize.Extract(a)
	pb, _ := normalize.Extract(b)
	require.Len(t, pa, 1)
	x, ok := pa[0].Float("regularMarketPrice")
	require.True(t, ok)
	y, _ := pb[0].Float("regularMarketPrice")
	require.Equal(t, x, y)

	gone, err := f.Quote(context.Background(), "GONE")
	require.NoError(t, err)
	obj, ok := gone.Object()
	require.True(t, ok)
	require.Nil(t, obj["regularMarketPrice"])
}

func TestFake_ChartSkipsWeekends(t *testing.T) {
	t.Parallel()
	f := NewFake()
	from := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	to := from.AddDate(0, 0, 13)
	p, err := f.Chart(context.Background(), "ACME", from, to)
	require.NoError(t, err)
	pts, shape := normalize.Extract(p)
	require.Equal(t, normalize.ShapeDoubleEnvelope, shape)
	require.Len(t, pts, 10)
	for _, pt := range pts {
		d, ok := pt.Time("date")
		require.True(t, ok)
		require.NotEqual(t, time.Saturday, d.Weekday())
		require.NotEqual(t, time.Sunday, d.Weekday())
	}
}
