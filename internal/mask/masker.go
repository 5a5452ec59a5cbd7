package mask

import (
	"encoding/json"
	"reflect"
	"time"
)

// Masker walks an arbitrary structured value and replaces every value
// reachable via a sensitive key with [Marker]. Non-sensitive structure is
// preserved losslessly; masking is idempotent.
type Masker struct {
	reg *Registry
}

func NewMasker(reg *Registry) *Masker {
	return &Masker{reg: reg}
}

// Mask returns a masked copy of v. The input is never mutated. A key that
// matches the registry has its entire subtree replaced by the marker
// regardless of nested shape; scalars pass through unchanged. Self-referring
// structures and values that cannot be encoded are replaced by the marker
// rather than traversed, so an unexpected shape can only ever over-redact.
func (m *Masker) Mask(v any) any {
	if v == nil {
		return nil
	}
	return m.mask(v, make(map[uintptr]struct{}))
}

func (m *Masker) mask(v any, seen map[uintptr]struct{}) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		ptr := reflect.ValueOf(t).Pointer()
		if _, cyclic := seen[ptr]; cyclic {
			return Marker
		}
		seen[ptr] = struct{}{}
		out := make(map[string]any, len(t))
		for k, val := range t {
			if m.reg.IsSensitive(k) {
				out[k] = Marker
				continue
			}
			out[k] = m.mask(val, seen)
		}
		delete(seen, ptr)
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if m.reg.IsSensitive(k) {
				out[k] = Marker
				continue
			}
			out[k] = val
		}
		return out
	case []any:
		if len(t) == 0 {
			return []any{}
		}
		ptr := reflect.ValueOf(t).Pointer()
		if _, cyclic := seen[ptr]; cyclic {
			return Marker
		}
		seen[ptr] = struct{}{}
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = m.mask(val, seen)
		}
		delete(seen, ptr)
		return out
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number, time.Time:
		return t
	default:
		return m.normalize(t, seen)
	}
}

// normalize converts values outside the generic object/array/scalar model
// (structs, typed maps, typed slices) through JSON into the generic model,
// then masks the result. Values that cannot round-trip — cyclic structures
// included, since encoding them fails — collapse to the marker.
func (m *Masker) normalize(v any, seen map[uintptr]struct{}) any {
	data, err := json.Marshal(v)
	if err != nil {
		return Marker
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return Marker
	}
	switch generic.(type) {
	case map[string]any, []any:
		return m.mask(generic, seen)
	default:
		return generic
	}
}
