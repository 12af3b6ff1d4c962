// Package alloc provides the allocation ledger backing the variable store.
//
// Go's runtime owns the actual memory; what the store needs from an
// allocator is the part a garbage collector cannot give it: an account of
// which allocations it still holds. Every owned buffer or container the
// store creates draws one unit from a Ledger, and releasing it returns the
// unit. At shutdown a non-zero live count is the leak signal.
//
// A Ledger can also carry a live-unit limit. This is the arena budget that
// makes allocation-failure paths real: with a limit in place, Grab fails
// exactly where a fixed allocator would, and the failure handling in the
// store becomes testable instead of theoretical.
package alloc

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned by Grab when the live-unit limit would be
// exceeded. Callers are expected to release anything partially built and
// surface the failure unchanged.
var ErrExhausted = errors.New("allocation budget exhausted")

// Ledger counts owned allocations. One unit is one owned buffer or
// container: a string's byte buffer, an array's element sequence, an
// object's field table, each object key copy, each store key copy, and the
// store's own table.
//
// The ledger is not safe for concurrent use; the store it backs is
// single-threaded by contract.
type Ledger struct {
	limit   int64
	capped  bool
	live    int64
	grabbed int64 // lifetime total, for diagnostics
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLimit caps the number of live units. Grab fails with ErrExhausted
// once the cap would be exceeded. A cap of zero admits nothing; omit the
// option entirely for an unlimited ledger.
func WithLimit(n int64) Option {
	return func(l *Ledger) {
		l.limit = n
		l.capped = true
	}
}

// NewLedger creates a ledger with no live units.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Grab draws n units from the ledger. It either draws all n or, when the
// limit would be exceeded, draws none and returns ErrExhausted.
func (l *Ledger) Grab(n int64) error {
	if n < 0 {
		return fmt.Errorf("alloc: grab of %d units", n)
	}
	if l.capped && l.live+n > l.limit {
		return fmt.Errorf("%w: %d live of %d, requested %d", ErrExhausted, l.live, l.limit, n)
	}
	l.live += n
	l.grabbed += n
	return nil
}

// Put returns n units to the ledger. Returning more units than are live
// indicates a double release somewhere; the count goes negative rather
// than being clamped so the corruption stays visible.
func (l *Ledger) Put(n int64) {
	l.live -= n
}

// Live returns the number of units currently held. Zero after teardown
// means every allocation was released exactly once.
func (l *Ledger) Live() int64 {
	return l.live
}

// Grabbed returns the lifetime total of units drawn. Diagnostics only.
func (l *Ledger) Grabbed() int64 {
	return l.grabbed
}

// Limit returns the live-unit cap, 0 when none was set.
func (l *Ledger) Limit() int64 {
	return l.limit
}
