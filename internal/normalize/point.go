package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawPoint is one element of a normalized sequence. Accessors treat missing,
// null and unparseable fields alike and return ok=false.
type RawPoint struct {
	v any
}

func (r RawPoint) Value() any { return r.v }

func (r RawPoint) field(key string) (any, bool) {
	m, ok := r.v.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Has reports whether key is present with a non-null value.
func (r RawPoint) Has(key string) bool {
	_, ok := r.field(key)
	return ok
}

func (r RawPoint) Float(key string) (float64, bool) {
	v, ok := r.field(key)
	if !ok {
		return 0, false
	}
	var f float64
	switch t := v.(type) {
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = x
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = x
	case map[string]any:
		// {"raw": 1.23, "fmt": "1.23"} style wrappers
		return RawPoint{v: t}.Float("raw")
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FloatPtr is Float returning nil when absent.
func (r RawPoint) FloatPtr(key string) *float64 {
	f, ok := r.Float(key)
	if !ok {
		return nil
	}
	return &f
}

func (r RawPoint) IntPtr(key string) *int64 {
	f, ok := r.Float(key)
	if !ok {
		return nil
	}
	i := int64(f)
	return &i
}

func (r RawPoint) StringPtr(key string) *string {
	v, ok := r.field(key)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// epoch values above this are taken as milliseconds
const msThreshold = 1e11

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses RFC3339, plain dates and unix seconds or milliseconds. Results are UTC.
func (r RawPoint) Time(key string) (time.Time, bool) {
	v, ok := r.field(key)
	if !ok {
		return time.Time{}, false
	}
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t.UTC(), true
			}
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return time.Time{}, false
		}
	}
	f, ok := r.Float(key)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	if f >= msThreshold {
		return time.UnixMilli(int64(f)).UTC(), true
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// PointOf wraps a single decoded value as a point.
func PointOf(v any) RawPoint { return RawPoint{v: v} }
