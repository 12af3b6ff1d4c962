package oplog

import (
	"context"
	"testing"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/testutil"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecorder_FullSession(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	rec := NewRecorder(l, WithTokenSource(testutil.NewFixedTokenSource("session-0001")))
	if rec.Session() != "session-0001" {
		t.Fatalf("Session() = %q", rec.Session())
	}

	if st, err := rec.Init(ctx); st != boundary.StatusOK || err != nil {
		t.Fatalf("Init() = %v, %v", st, err)
	}
	if st, err := rec.Make(ctx, "v", "dynam", "number", "41.5"); st != boundary.StatusOK || err != nil {
		t.Fatalf("Make() = %v, %v", st, err)
	}
	if n, err := rec.GetType(ctx, "v"); n != 0 || err != nil {
		t.Fatalf("GetType() = %d, %v", n, err)
	}
	if n, out, err := rec.GetValue(ctx, "v", 64); n != 4 || out != "41.5" || err != nil {
		t.Fatalf("GetValue() = %d, %q, %v", n, out, err)
	}
	if st, err := rec.Mod(ctx, "v", "string", "changed"); st != boundary.StatusOK || err != nil {
		t.Fatalf("Mod() = %v, %v", st, err)
	}
	if st, err := rec.Bind(ctx, "cfg", true, map[string]any{"k": "x"}); st != boundary.StatusOK || err != nil {
		t.Fatalf("Bind() = %v, %v", st, err)
	}
	if st, err := rec.Remove(ctx, "v"); st != boundary.StatusOK || err != nil {
		t.Fatalf("Remove() = %v, %v", st, err)
	}
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	calls, err := l.ReadSession(ctx, "session-0001")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}

	wantOps := []string{OpInit, OpMake, OpGetType, OpGetValue, OpMod, OpBind, OpRemove, OpShutdown}
	if len(calls) != len(wantOps) {
		t.Fatalf("got %d calls, want %d", len(calls), len(wantOps))
	}
	for i, c := range calls {
		if c.Op != wantOps[i] {
			t.Errorf("calls[%d].Op = %q, want %q", i, c.Op, wantOps[i])
		}
		if c.Seq != int64(i+1) {
			t.Errorf("calls[%d].Seq = %d, want %d", i, c.Seq, i+1)
		}
		if c.ID == "" {
			t.Errorf("calls[%d] has empty id", i)
		}
	}

	// Spot-check recorded outcomes.
	if calls[3].Output != "41.5" || calls[3].Status != 4 || calls[3].Capacity != 64 {
		t.Errorf("get_value row = %+v", calls[3])
	}
	if calls[5].Literal != `{"k":"x"}` || calls[5].Access != "const" {
		t.Errorf("bind row = %+v", calls[5])
	}
}

func TestRecorder_RecordsFailures(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	rec := NewRecorder(l, WithTokenSource(testutil.NewFixedTokenSource("session-0002")))
	if st, _ := rec.Init(ctx); st != boundary.StatusOK {
		t.Fatalf("Init() = %v", st)
	}

	if st, err := rec.Mod(ctx, "missing", "number", "1"); st != boundary.ModErrNotFound || err != nil {
		t.Fatalf("Mod(missing) = %v, %v", st, err)
	}
	if st, err := rec.Make(ctx, "v", "dynam", "tuple", "x"); st != boundary.MakeErrRejected || err != nil {
		t.Fatalf("Make(unknown tag) = %v, %v", st, err)
	}
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	calls, err := l.ReadSession(ctx, "session-0002")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if calls[1].Status != -1 {
		t.Errorf("mod failure status = %d, want -1", calls[1].Status)
	}
	if calls[2].Status != -1 {
		t.Errorf("make failure status = %d, want -1", calls[2].Status)
	}
}

func TestRecorder_StoreLimitOnInitRow(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	rec := NewRecorder(l,
		WithTokenSource(testutil.NewFixedTokenSource("session-0003")),
		WithStoreLimit(8),
	)
	if st, _ := rec.Init(ctx); st != boundary.StatusOK {
		t.Fatalf("Init() = %v", st)
	}
	if err := rec.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}

	calls, err := l.ReadSession(ctx, "session-0003")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if calls[0].Op != OpInit || calls[0].Capacity != 8 {
		t.Fatalf("init row = %+v, want capacity 8", calls[0])
	}
}
