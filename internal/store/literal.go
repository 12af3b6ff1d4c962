package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/stash/internal/alloc"
	"github.com/roach88/stash/internal/value"
)

// Type tags accepted by Make and Mod. Only scalar tags can be built from
// a literal; arrays and objects enter through Bind.
const (
	TagNumber  = "number"
	TagBoolean = "boolean"
	TagString  = "string"
)

// parseLiteral builds a counted value from a type tag and its textual
// literal. An unparseable number yields 0.0 rather than an error; this is
// the one silent fallback in the contract. A boolean is true only when
// the literal is exactly "true". Strings are copied verbatim.
func parseLiteral(led *alloc.Ledger, typeTag, literal string) (value.Value, error) {
	switch typeTag {
	case TagNumber:
		f, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			f = 0.0
		}
		return value.Number(f), nil
	case TagBoolean:
		return value.Bool(literal == "true"), nil
	case TagString:
		return value.NewString(led, literal)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeTag)
	}
}
