// Package boundary is the foreign-call surface over the store runtime.
// Callers hand in borrowed NUL-terminated-style byte strings and a
// result buffer they own; the adapter copies what it keeps, renders into
// what it is given, and reports every outcome as a small status integer.
// No pointer crosses the boundary in either direction.
package boundary

import (
	"bytes"
	"errors"

	"github.com/roach88/stash/internal/alloc"
	"github.com/roach88/stash/internal/lifecycle"
	"github.com/roach88/stash/internal/store"
	"github.com/roach88/stash/internal/value"
)

// Status is the result of a boundary call. Zero is success; failures are
// small negative integers whose meaning is per operation.
type Status int32

// StatusOK is shared by every operation.
const StatusOK Status = 0

// Init failure.
const InitErrAlloc Status = -1

// Make failure. Unknown type tag and allocation exhaustion collapse into
// the one rejection code.
const MakeErrRejected Status = -1

// Mod failures, one code per failure class.
const (
	ModErrNotFound    Status = -1
	ModErrImmutable   Status = -2
	ModErrAlloc       Status = -3
	ModErrUnknownType Status = -4
)

// Remove failure.
const RemoveErrNotFound Status = -1

// GetType and GetValueAsString return a payload int32 (kind ordinal,
// byte count) or one of these.
const (
	TypeErrNotFound   int32 = -1
	GetErrNotFound    int32 = -1
	GetErrShortBuffer int32 = -2
)

// API is one store runtime behind the call surface. It is an explicit
// object rather than process state, so independent instances can coexist;
// calls made outside the Init/Shutdown window fail with the operation's
// generic code, as against an empty store that refuses to allocate.
type API struct {
	opts []lifecycle.Option
	rt   *lifecycle.Runtime
}

// New prepares an API. Nothing is allocated until Init.
func New(opts ...lifecycle.Option) *API {
	return &API{opts: opts}
}

// Init opens the call window. A second Init while the window is open
// fails; the first window must be shut down first.
func (a *API) Init() Status {
	if a.rt != nil {
		return InitErrAlloc
	}
	rt, err := lifecycle.Boot(a.opts...)
	if err != nil {
		return InitErrAlloc
	}
	a.rt = rt
	return StatusOK
}

// Shutdown closes the window, releasing every variable. Leaked units are
// logged by the runtime. Safe to call with no window open.
func (a *API) Shutdown() {
	if a.rt == nil {
		return
	}
	a.rt.Shutdown()
	a.rt = nil
}

// Make creates or overwrites a variable from a scalar literal. All
// failures (unknown tag, exhausted ledger, no open window) report
// MakeErrRejected; the store is untouched on failure.
func (a *API) Make(name, access, typeTag, literal []byte) Status {
	if a.rt == nil {
		return MakeErrRejected
	}
	if err := a.rt.Store().Make(cstr(name), cstr(access), cstr(typeTag), cstr(literal)); err != nil {
		return MakeErrRejected
	}
	return StatusOK
}

// Mod replaces the value of an existing mutable variable.
func (a *API) Mod(name, typeTag, literal []byte) Status {
	if a.rt == nil {
		return ModErrNotFound
	}
	err := a.rt.Store().Mod(cstr(name), cstr(typeTag), cstr(literal))
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, store.ErrNotFound):
		return ModErrNotFound
	case errors.Is(err, store.ErrImmutable):
		return ModErrImmutable
	case errors.Is(err, store.ErrUnknownType):
		return ModErrUnknownType
	case errors.Is(err, alloc.ErrExhausted):
		return ModErrAlloc
	default:
		return ModErrAlloc
	}
}

// Remove deletes a variable and releases everything it owned.
func (a *API) Remove(name []byte) Status {
	if a.rt == nil {
		return RemoveErrNotFound
	}
	if err := a.rt.Store().Remove(cstr(name)); err != nil {
		return RemoveErrNotFound
	}
	return StatusOK
}

// GetType reports the variable's kind ordinal.
func (a *API) GetType(name []byte) int32 {
	if a.rt == nil {
		return TypeErrNotFound
	}
	kind, err := a.rt.Store().TypeOf(cstr(name))
	if err != nil {
		return TypeErrNotFound
	}
	return int32(kind)
}

// GetValueAsString renders the variable into dst and returns the byte
// count. The caller owns dst; len(dst) is the capacity contract, and a
// rendering that does not fit fails with GetErrShortBuffer, leaving the
// buffer contents unspecified.
func (a *API) GetValueAsString(name, dst []byte) int32 {
	if a.rt == nil {
		return GetErrNotFound
	}
	n, err := a.rt.Store().Render(cstr(name), dst)
	switch {
	case err == nil:
		return int32(n)
	case errors.Is(err, store.ErrShortBuffer):
		return GetErrShortBuffer
	default:
		return GetErrNotFound
	}
}

// Bind inserts an already-built value, the entry path for composites.
// v must have been constructed against this API's live ledger; ownership
// transfers on call, and a store-level failure releases it. With no
// window open there is no ledger to release against, so the call only
// reports MakeErrRejected.
func (a *API) Bind(name []byte, konst bool, v value.Value) Status {
	if a.rt == nil {
		return MakeErrRejected
	}
	if err := a.rt.Store().Bind(cstr(name), konst, v); err != nil {
		return MakeErrRejected
	}
	return StatusOK
}

// Runtime exposes the live runtime to host-side collaborators (harness
// checks, the REPL). Nil outside the Init/Shutdown window.
func (a *API) Runtime() *lifecycle.Runtime {
	return a.rt
}

// cstr interprets a borrowed byte string the way a foreign caller hands
// it over: content runs to the first NUL, and the string copy made here
// is the only thing retained past the call.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
