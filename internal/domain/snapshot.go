package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is the latest-quote cache row, one per symbol.
// Localized fields are curated outside the pipeline; nil leaves them as stored.
type MarketSnapshot struct {
	Symbol               string
	CompanyName          string
	CompanyNameLocalized *string
	CurrentPrice         float64
	PreviousClose        float64
	PriceChange          float64
	PriceChangePercent   float64
	Volume               *int64
	Sector               *string
	SectorLocalized      *string
	LastUpdated          time.Time
	IsActive             bool
}

// DerivePriceChange returns the absolute and percent change against the
// previous close. The percent is rounded to two decimals. ok is false when
// the previous close is zero, so callers never see Inf or NaN.
func DerivePriceChange(current, previousClose float64) (change, percent float64, ok bool) {
	if previousClose == 0 {
		return 0, 0, false
	}
	cur := decimal.NewFromFloat(current)
	prev := decimal.NewFromFloat(previousClose)
	diff := cur.Sub(prev)
	pct := diff.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	return diff.InexactFloat64(), pct.InexactFloat64(), true
}

// NewSnapshot builds the snapshot row for a quote fetched at now.
func NewSnapshot(symbol string, q ProviderQuote, now time.Time) (MarketSnapshot, bool) {
	if q.Price == nil || q.PreviousClose == nil {
		return MarketSnapshot{}, false
	}
	change, pct, ok := DerivePriceChange(*q.Price, *q.PreviousClose)
	if !ok {
		return MarketSnapshot{}, false
	}
	return MarketSnapshot{
		Symbol:             symbol,
		CompanyName:        q.DisplayName(symbol),
		CurrentPrice:       *q.Price,
		PreviousClose:      *q.PreviousClose,
		PriceChange:        change,
		PriceChangePercent: pct,
		Volume:             q.Volume,
		Sector:             q.Sector,
		LastUpdated:        now,
		IsActive:           true,
	}, true
}
