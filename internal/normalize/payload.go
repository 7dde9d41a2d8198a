// Package normalize turns the provider's loosely shaped JSON answers into a
// flat list of points.
package normalize

import (
	"bytes"
	"encoding/json"
)

type Kind int

const (
	KindNull Kind = iota
	KindArray
	KindObject
	KindScalar
)

// Payload is a decoded provider answer tagged by its top-level JSON kind.
type Payload struct {
	kind Kind
	arr  []any
	obj  map[string]any
}

// Decode parses raw JSON. Invalid JSON yields a null payload.
func Decode(b []byte) Payload {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Payload{kind: KindNull}
	}
	return FromValue(v)
}

// FromValue wraps an already decoded value.
func FromValue(v any) Payload {
	switch t := v.(type) {
	case nil:
		return Payload{kind: KindNull}
	case []any:
		return Payload{kind: KindArray, arr: t}
	case map[string]any:
		return Payload{kind: KindObject, obj: t}
	case []map[string]any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = t[i]
		}
		return Payload{kind: KindArray, arr: arr}
	default:
		return Payload{kind: KindScalar}
	}
}

func (p Payload) Kind() Kind { return p.kind }

// Object returns the top-level object, if any.
func (p Payload) Object() (map[string]any, bool) {
	return p.obj, p.kind == KindObject
}

// path walks nested object keys and returns the value found.
func (p Payload) path(keys ...string) (any, bool) {
	if p.kind != KindObject {
		return nil, false
	}
	var cur any = p.obj
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[k]; !ok {
			return nil, false
		}
	}
	return cur, true
}
