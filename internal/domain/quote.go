package domain

import "time"

// ProviderQuote is the subset of the provider's single-quote answer the
// pipeline consumes. Every field may be absent.
type ProviderQuote struct {
	Symbol        string
	Price         *float64
	PreviousClose *float64
	Volume        *int64
	LongName      *string
	ShortName     *string
	ExchangeName  *string
	Currency      *string
	Sector        *string
	MarketTime    *time.Time
}

// DisplayName picks long name, then short name, then fallback.
func (q ProviderQuote) DisplayName(fallback string) string {
	if q.LongName != nil && *q.LongName != "" {
		return *q.LongName
	}
	if q.ShortName != nil && *q.ShortName != "" {
		return *q.ShortName
	}
	return fallback
}

type ResolvedQuote struct {
	Symbol      string
	DisplayName string
	Price       float64
	Exchange    string
	Currency    string
	AsOf        time.Time
}

// Stock is the minimal instrument row written while probing.
type Stock struct {
	Symbol      string
	Name        string
	Exchange    string
	Currency    string
	LastUpdated time.Time
}

func strOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

// Resolve turns a provider quote into a ResolvedQuote keyed by the probed
// ticker. It reports false when the quote carries no current price.
func (q ProviderQuote) Resolve(c CandidateSymbol, now time.Time) (ResolvedQuote, bool) {
	if q.Price == nil {
		return ResolvedQuote{}, false
	}
	name := c.Ticker
	if len(c.Aliases) > 0 {
		name = c.Aliases[0]
	}
	asOf := now
	if q.MarketTime != nil {
		asOf = *q.MarketTime
	}
	return ResolvedQuote{
		Symbol:      c.Ticker,
		DisplayName: q.DisplayName(name),
		Price:       *q.Price,
		Exchange:    strOr(q.ExchangeName, ""),
		Currency:    strOr(q.Currency, ""),
		AsOf:        asOf,
	}, true
}

func (r ResolvedQuote) Stock(now time.Time) Stock {
	return Stock{
		Symbol:      r.Symbol,
		Name:        r.DisplayName,
		Exchange:    r.Exchange,
		Currency:    r.Currency,
		LastUpdated: now,
	}
}
