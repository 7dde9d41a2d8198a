package application

import (
	"marketdata-ingest/internal/domain"
	"marketdata-ingest/internal/normalize"
)

const fieldPrice = "regularMarketPrice"

// quoteFromPayload reads the single-quote answer. A top-level object carrying
// the price field is the quote itself; otherwise the first normalized point
// is used. ok is false when neither yields a record.
func quoteFromPayload(n normalize.Normalizer, p normalize.Payload) (domain.ProviderQuote, bool) {
	var pt normalize.RawPoint
	if obj, ok := p.Object(); ok && hasKey(obj, fieldPrice) {
		pt = normalize.PointOf(obj)
	} else {
		pts := n.Points(p)
		if len(pts) == 0 {
			return domain.ProviderQuote{}, false
		}
		pt = pts[0]
	}
	q := domain.ProviderQuote{
		Price:         pt.FloatPtr(fieldPrice),
		PreviousClose: pt.FloatPtr("regularMarketPreviousClose"),
		Volume:        pt.IntPtr("regularMarketVolume"),
		LongName:      pt.StringPtr("longName"),
		ShortName:     pt.StringPtr("shortName"),
		ExchangeName:  firstString(pt, "exchangeName", "fullExchangeName", "exchange"),
		Currency:      pt.StringPtr("currency"),
		Sector:        pt.StringPtr("sector"),
	}
	if s := pt.StringPtr("symbol"); s != nil {
		q.Symbol = *s
	}
	if t, ok := pt.Time("regularMarketTime"); ok {
		q.MarketTime = &t
	}
	return q, true
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}

func firstString(pt normalize.RawPoint, keys ...string) *string {
	for _, k := range keys {
		if s := pt.StringPtr(k); s != nil {
			return s
		}
	}
	return nil
}
