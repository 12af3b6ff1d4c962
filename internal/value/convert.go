package value

import (
	"fmt"

	"github.com/roach88/stash/internal/alloc"
)

// FromGo builds a counted Value from plain Go data: nil, bool, string,
// any integer or float type, []any and map[string]any. Composites are
// converted depth first; if the ledger runs out partway the partially
// built tree is released before the error returns, so a failed FromGo
// never leaks units.
func FromGo(led *alloc.Ledger, v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int8:
		return Number(val), nil
	case int16:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint8:
		return Number(val), nil
	case uint16:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case string:
		return NewString(led, val)
	case []any:
		return arrayFromGo(led, val)
	case map[string]any:
		return objectFromGo(led, val)
	case Value:
		return nil, fmt.Errorf("convert %T: already counted, refusing to double count", val)
	default:
		return nil, fmt.Errorf("convert %T: unsupported type", v)
	}
}

func arrayFromGo(led *alloc.Ledger, in []any) (Value, error) {
	elems := make([]Value, 0, len(in))
	for i, raw := range in {
		elem, err := FromGo(led, raw)
		if err != nil {
			releaseAll(led, elems)
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		elems = append(elems, elem)
	}
	arr, err := NewArray(led, elems)
	if err != nil {
		releaseAll(led, elems)
		return nil, err
	}
	return arr, nil
}

func objectFromGo(led *alloc.Ledger, in map[string]any) (Value, error) {
	fields := make(map[string]Value, len(in))
	for key, raw := range in {
		elem, err := FromGo(led, raw)
		if err != nil {
			releaseFields(led, fields)
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		fields[key] = elem
	}
	obj, err := NewObject(led, fields)
	if err != nil {
		releaseFields(led, fields)
		return nil, err
	}
	return obj, nil
}

func releaseAll(led *alloc.Ledger, elems []Value) {
	for _, elem := range elems {
		Release(led, elem)
	}
}

func releaseFields(led *alloc.Ledger, fields map[string]Value) {
	for _, elem := range fields {
		Release(led, elem)
	}
}
