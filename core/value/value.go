package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Value is the sealed interface over the closed value set.
// Only Null, String, Number, Bool, List and Object implement it.
type Value interface {
	isValue()
}

// Null represents an explicit null field value.
type Null struct{}

func (Null) isValue() {}

// String represents a text field value.
type String string

func (String) isValue() {}

// Number represents a numeric field value. All source numbers, integer or
// not, are carried as float64 the way JSON decoding produces them.
type Number float64

func (Number) isValue() {}

// Bool represents a boolean field value.
type Bool bool

func (Bool) isValue() {}

// List represents an ordered sequence of values.
type List []Value

func (List) isValue() {}

// Object represents a field map. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) isValue() {}

// SortedKeys returns the object's keys in ascending byte order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the object. Nested lists and objects are copied
// recursively; scalar values are immutable and shared.
func (o Object) Clone() Object {
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch val := v.(type) {
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	case Object:
		return val.Clone()
	default:
		return v
	}
}

// FromAny converts a loosely-typed value (as produced by JSON decoding) into
// the sealed variant. This is the single canonicalization point: adapters call
// it at ingestion and the rest of the pipeline only sees Values.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q out of range: %w", val, err)
		}
		return Number(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = converted
		}
		return list, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			obj[k] = converted
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ObjectFromAny converts a decoded JSON object into an Object.
func ObjectFromAny(m map[string]any) (Object, error) {
	converted, err := FromAny(m)
	if err != nil {
		return nil, err
	}
	return converted.(Object), nil
}

// MarshalJSON serializes the object canonically so stored field maps are
// byte-stable across writes of the same content.
func (o Object) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(o)
}

// UnmarshalJSON decodes a stored field map back into the sealed variant.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	obj, err := ObjectFromAny(raw)
	if err != nil {
		return err
	}
	*o = obj
	return nil
}
