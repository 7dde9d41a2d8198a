package domain

import (
	"sort"
	"time"
)

// HistoricalRecord is one OHLCV point. Close is mandatory; the rest may be nil.
type HistoricalRecord struct {
	Symbol        string
	DateTime      time.Time
	Open          *float64
	High          *float64
	Low           *float64
	Close         float64
	Volume        *int64
	AdjustedClose *float64
}

type BackfillMode string

const (
	// BackfillRange replaces stored rows from the window start onwards.
	BackfillRange BackfillMode = "range"
	// BackfillFull replaces every stored row of the symbol.
	BackfillFull BackfillMode = "full"
)

// LookbackWindow is a calendar-day span ending today.
type LookbackWindow int

var DefaultLookbackWindows = []LookbackWindow{30, 90, 180, 365}

// Start returns midnight UTC of today minus the window.
func (w LookbackWindow) Start(now time.Time) time.Time {
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -int(w))
}

// SortWindows returns a copy ordered shortest first without duplicates or
// non-positive spans.
func SortWindows(in []LookbackWindow) []LookbackWindow {
	seen := make(map[LookbackWindow]struct{}, len(in))
	out := make([]LookbackWindow, 0, len(in))
	for _, w := range in {
		if w <= 0 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DedupeRecords keeps the last record per DateTime and orders ascending.
func DedupeRecords(in []HistoricalRecord) []HistoricalRecord {
	idx := make(map[int64]int, len(in))
	out := make([]HistoricalRecord, 0, len(in))
	for _, r := range in {
		k := r.DateTime.UnixNano()
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out
}
