package store

import "errors"

// Failure classes surfaced by store operations. The boundary adapter maps
// them onto per-operation status codes with errors.Is, so callers must
// wrap rather than replace them.
var (
	ErrNotFound    = errors.New("variable not found")
	ErrImmutable   = errors.New("variable is immutable")
	ErrUnknownType = errors.New("unknown type tag")
	ErrShortBuffer = errors.New("buffer too small")
)
