package provider

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"marketdata-ingest/internal/application"
	"marketdata-ingest/internal/normalize"
)

var _ application.QuoteProvider = (*Fake)(nil)

// Fake produces deterministic quotes and daily charts for any symbol, in the
// envelope shapes a real gateway uses. Symbols in Missing resolve to nothing.
type Fake struct {
	Missing map[string]bool
	Now     func() time.Time
}

func NewFake(missing ...string) *Fake {
	m := make(map[string]bool, len(missing))
	for _, s := range missing {
		m[s] = true
	}
	return &Fake{Missing: m, Now: func() time.Time { return time.Now().UTC() }}
}

func basePrice(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return 10 + float64(h.Sum32()%99000)/100
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (f *Fake) Quote(ctx context.Context, symbol string) (normalize.Payload, error) {
	if err := ctx.Err(); err != nil {
		return normalize.Payload{}, err
	}
	if f.Missing[symbol] {
		return normalize.FromValue(map[string]any{"regularMarketPrice": nil}), nil
	}
	p := basePrice(symbol)
	return normalize.FromValue(map[string]any{
		"data": []any{map[string]any{
			"symbol":                     symbol,
			"regularMarketPrice":         round2(p * 1.01),
			"regularMarketPreviousClose": round2(p),
			"regularMarketVolume":        int64(p * 1000),
			"shortName":                  symbol,
			"exchangeName":               "FAKE",
			"currency":                   "USD",
			"regularMarketTime":          f.Now().Unix(),
		}},
	}), nil
}

func (f *Fake) Chart(ctx context.Context, symbol string, from, to time.Time) (normalize.Payload, error) {
	if err := ctx.Err(); err != nil {
		return normalize.Payload{}, err
	}
	if f.Missing[symbol] {
		return normalize.FromValue(map[string]any{"data": map[string]any{"data": []any{}}}), nil
	}
	p := basePrice(symbol)
	var pts []any
	for d, i := from.UTC().Truncate(24*time.Hour), 0; !d.After(to); d, i = d.AddDate(0, 0, 1), i+1 {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		c := round2(p * (1 + 0.01*math.Sin(float64(i)/5)))
		pts = append(pts, map[string]any{
			"date":   d.Format("2006-01-02"),
			"open":   round2(c * 0.995),
			"high":   round2(c * 1.01),
			"low":    round2(c * 0.99),
			"close":  c,
			"volume": int64(c * 1000),
		})
	}
	return normalize.FromValue(map[string]any{"data": map[string]any{"data": pts}}), nil
}
