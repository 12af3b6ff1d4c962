package oplog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/lifecycle"
	"github.com/roach88/stash/internal/store"
	"github.com/roach88/stash/internal/value"
)

// Recorder drives its own boundary API and writes one row per call.
// Statuses returned are the boundary's own; the error return reports
// recording trouble only, never the store outcome.
//
// The recorder is single-session: one token, one API, seq starting at 1.
type Recorder struct {
	log     *Log
	api     *boundary.API
	session string
	limit   int64
	seq     atomic.Int64
}

type recorderConfig struct {
	tokens TokenSource
	limit  int64
	apiOps []lifecycle.Option
}

// RecorderOption configures NewRecorder.
type RecorderOption func(*recorderConfig)

// WithTokenSource overrides the session token source.
func WithTokenSource(ts TokenSource) RecorderOption {
	return func(c *recorderConfig) { c.tokens = ts }
}

// WithStoreLimit caps the runtime ledger. The cap is recorded on the
// init row so replay can rebuild the same runtime. Zero keeps the
// runtime unlimited, matching the init row's zero-capacity encoding.
func WithStoreLimit(n int64) RecorderOption {
	return func(c *recorderConfig) {
		c.limit = n
		if n > 0 {
			c.apiOps = append(c.apiOps, lifecycle.WithLimit(n))
		}
	}
}

// NewRecorder builds a recorder over log with a fresh session token.
func NewRecorder(log *Log, opts ...RecorderOption) *Recorder {
	cfg := recorderConfig{tokens: UUIDv7Source{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Recorder{
		log:     log,
		api:     boundary.New(cfg.apiOps...),
		session: cfg.tokens.Token(),
		limit:   cfg.limit,
	}
}

// Session returns the recorder's session token.
func (r *Recorder) Session() string { return r.session }

// API exposes the wrapped boundary for reads that must not be recorded.
func (r *Recorder) API() *boundary.API { return r.api }

func (r *Recorder) write(ctx context.Context, c Call) error {
	c.Session = r.session
	c.Seq = r.seq.Add(1)
	c.ID = callID(c)
	return r.log.WriteCall(ctx, c)
}

// Init opens the call window and records the ledger cap alongside.
func (r *Recorder) Init(ctx context.Context) (boundary.Status, error) {
	st := r.api.Init()
	err := r.write(ctx, Call{Op: OpInit, Capacity: r.limit, Status: int64(st)})
	return st, err
}

// Shutdown closes the window. Recorded with status 0; shutdown reports
// nothing over the boundary.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.api.Shutdown()
	return r.write(ctx, Call{Op: OpShutdown})
}

// Make records a variable creation.
func (r *Recorder) Make(ctx context.Context, name, access, typeTag, literal string) (boundary.Status, error) {
	st := r.api.Make([]byte(name), []byte(access), []byte(typeTag), []byte(literal))
	err := r.write(ctx, Call{
		Op: OpMake, Name: name, Access: access, TypeTag: typeTag,
		Literal: literal, Status: int64(st),
	})
	return st, err
}

// Mod records a variable modification.
func (r *Recorder) Mod(ctx context.Context, name, typeTag, literal string) (boundary.Status, error) {
	st := r.api.Mod([]byte(name), []byte(typeTag), []byte(literal))
	err := r.write(ctx, Call{
		Op: OpMod, Name: name, TypeTag: typeTag, Literal: literal,
		Status: int64(st),
	})
	return st, err
}

// Bind records a composite binding. The tree is serialized to JSON for
// the literal column and then bound through the same decode path replay
// uses, so recording and replay construct identical values.
func (r *Recorder) Bind(ctx context.Context, name string, konst bool, tree any) (boundary.Status, error) {
	literal, err := json.Marshal(tree)
	if err != nil {
		return boundary.MakeErrRejected, fmt.Errorf("bind %q: encode: %w", name, err)
	}
	access := store.AccessDynam
	if konst {
		access = store.AccessConst
	}
	st := bindFromJSON(r.api, name, access, string(literal))
	werr := r.write(ctx, Call{
		Op: OpBind, Name: name, Access: access, Literal: string(literal),
		Status: int64(st),
	})
	return st, werr
}

// Remove records a variable removal.
func (r *Recorder) Remove(ctx context.Context, name string) (boundary.Status, error) {
	st := r.api.Remove([]byte(name))
	err := r.write(ctx, Call{Op: OpRemove, Name: name, Status: int64(st)})
	return st, err
}

// GetType records a type query.
func (r *Recorder) GetType(ctx context.Context, name string) (int32, error) {
	n := r.api.GetType([]byte(name))
	err := r.write(ctx, Call{Op: OpGetType, Name: name, Status: int64(n)})
	return n, err
}

// GetValue records a value read through a buffer of the given capacity.
// Output is stored only for successful reads.
func (r *Recorder) GetValue(ctx context.Context, name string, capacity int) (int32, string, error) {
	dst := make([]byte, capacity)
	n := r.api.GetValueAsString([]byte(name), dst)
	out := ""
	if n >= 0 {
		out = string(dst[:n])
	}
	err := r.write(ctx, Call{
		Op: OpGetValue, Name: name, Capacity: int64(capacity),
		Status: int64(n), Output: out,
	})
	return n, out, err
}

// bindFromJSON decodes a JSON literal and binds the resulting value
// against api's live ledger. Shared by the recorder and replay so both
// sides build the value the same way.
func bindFromJSON(api *boundary.API, name, access, literal string) boundary.Status {
	rt := api.Runtime()
	if rt == nil {
		return boundary.MakeErrRejected
	}
	var tree any
	if err := json.Unmarshal([]byte(literal), &tree); err != nil {
		return boundary.MakeErrRejected
	}
	v, err := value.FromGo(rt.Ledger(), tree)
	if err != nil {
		return boundary.MakeErrRejected
	}
	return api.Bind([]byte(name), access == store.AccessConst, v)
}
