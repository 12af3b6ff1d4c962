package value

import (
	"fmt"

	"github.com/roach88/stash/internal/alloc"
)

// Kind identifies the value variant. The ordinals cross the foreign-call
// boundary verbatim (GetType returns them), so the order below is frozen:
// number=0, boolean=1, string=2, array=3, object=4, null=5.
type Kind int32

const (
	KindNumber Kind = iota
	KindBool
	KindString
	KindArray
	KindObject
	KindNull
)

// String returns the kind name. The names double as the type tags the
// boundary accepts for Make and Mod.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindNull:
		return "null"
	default:
		return fmt.Sprintf("unknown_kind_%d", int32(k))
	}
}

// Value is a sealed interface over the six variants. Only Number, Bool,
// String, Array, Object and Null implement it.
type Value interface {
	Kind() Kind
	sealed()
}

// Number is a 64-bit float, stored inline. No owned memory.
type Number float64

func (Number) Kind() Kind { return KindNumber }
func (Number) sealed()    {}

// Bool is stored inline. No owned memory.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) sealed()    {}

// String owns its byte buffer: one ledger unit.
type String string

func (String) Kind() Kind { return KindString }
func (String) sealed()    {}

// Array owns its element sequence (one unit) and every element in it.
type Array []Value

func (Array) Kind() Kind { return KindArray }
func (Array) sealed()    {}

// Object owns its field table (one unit), every key buffer (one unit
// each) and every field value. Key order is not significant.
type Object map[string]Value

func (Object) Kind() Kind { return KindObject }
func (Object) sealed()    {}

// Null carries nothing.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) sealed()    {}

// NewString draws one unit for the string buffer. On error nothing is
// drawn.
func NewString(led *alloc.Ledger, s string) (String, error) {
	if err := led.Grab(1); err != nil {
		return "", err
	}
	return String(s), nil
}

// NewArray draws one unit for the element sequence and takes ownership of
// elems, whose elements must already be counted against led. On error
// nothing is drawn and ownership of elems stays with the caller.
func NewArray(led *alloc.Ledger, elems []Value) (Array, error) {
	if err := led.Grab(1); err != nil {
		return nil, err
	}
	return Array(elems), nil
}

// NewObject draws one unit for the field table plus one per key, and
// takes ownership of fields, whose values must already be counted against
// led. On error nothing is drawn and ownership of fields stays with the
// caller.
func NewObject(led *alloc.Ledger, fields map[string]Value) (Object, error) {
	if err := led.Grab(1 + int64(len(fields))); err != nil {
		return nil, err
	}
	return Object(fields), nil
}

// Release returns every unit owned transitively by v. It must be called
// at most once per logically-owned value: the ledger goes negative on a
// double release rather than hiding it.
func Release(led *alloc.Ledger, v Value) {
	switch val := v.(type) {
	case String:
		led.Put(1)
	case Array:
		for _, elem := range val {
			Release(led, elem)
		}
		led.Put(1)
	case Object:
		for _, elem := range val {
			Release(led, elem)
		}
		led.Put(1 + int64(len(val)))
	default:
		// Number, Bool, Null and nil hold no owned memory.
	}
}

// Units reports how many ledger units v owns transitively. Diagnostics
// and tests only.
func Units(v Value) int64 {
	switch val := v.(type) {
	case String:
		return 1
	case Array:
		n := int64(1)
		for _, elem := range val {
			n += Units(elem)
		}
		return n
	case Object:
		n := 1 + int64(len(val))
		for _, elem := range val {
			n += Units(elem)
		}
		return n
	default:
		return 0
	}
}
