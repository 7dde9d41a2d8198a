package normalize

import (
	"go.uber.org/zap"
)

type Shape string

const (
	ShapeArray          Shape = "array"
	ShapeDoubleEnvelope Shape = "data.data"
	ShapeEnvelope       Shape = "data"
	ShapeResults        Shape = "results"
	ShapeQuotes         Shape = "quotes"
	ShapeUnknown        Shape = "unknown"
)

type extractor struct {
	shape Shape
	fn    func(Payload) ([]any, bool)
}

func keyPath(keys ...string) func(Payload) ([]any, bool) {
	return func(p Payload) ([]any, bool) {
		v, ok := p.path(keys...)
		if !ok {
			return nil, false
		}
		arr, ok := v.([]any)
		return arr, ok
	}
}

// extractors run in priority order; the first match wins.
var extractors = []extractor{
	{ShapeArray, func(p Payload) ([]any, bool) { return p.arr, p.kind == KindArray }},
	{ShapeDoubleEnvelope, keyPath("data", "data")},
	{ShapeEnvelope, keyPath("data")},
	{ShapeResults, keyPath("results")},
	{ShapeQuotes, keyPath("quotes")},
}

// Extract returns the inner point sequence and the shape that matched.
// Unrecognized payloads give an empty slice and ShapeUnknown.
func Extract(p Payload) ([]RawPoint, Shape) {
	for _, ex := range extractors {
		arr, ok := ex.fn(p)
		if !ok {
			continue
		}
		out := make([]RawPoint, 0, len(arr))
		for _, v := range arr {
			out = append(out, RawPoint{v: v})
		}
		return out, ex.shape
	}
	return []RawPoint{}, ShapeUnknown
}

// Normalizer logs a warning for unrecognized payloads.
type Normalizer struct {
	Log *zap.Logger
}

// Points never fails: an unknown shape yields an empty slice.
func (n Normalizer) Points(p Payload) []RawPoint {
	pts, shape := Extract(p)
	if shape == ShapeUnknown && n.Log != nil {
		fields := []zap.Field{zap.Int("kind", int(p.kind))}
		if obj, ok := p.Object(); ok {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			fields = append(fields, zap.Strings("keys", keys))
		}
		n.Log.Warn("normalize.unknown_shape", fields...)
	}
	return pts
}
