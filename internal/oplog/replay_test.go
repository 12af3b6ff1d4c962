package oplog

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/testutil"
)

// recordSession drives a representative session through a recorder and
// returns its token.
func recordSession(t *testing.T, l *Log, limit int64) string {
	t.Helper()
	ctx := context.Background()

	opts := []RecorderOption{WithTokenSource(testutil.NewFixedTokenSource("session-replay"))}
	if limit > 0 {
		opts = append(opts, WithStoreLimit(limit))
	}
	rec := NewRecorder(l, opts...)

	steps := func() error {
		if _, err := rec.Init(ctx); err != nil {
			return err
		}
		if _, err := rec.Make(ctx, "greeting", "const", "string", "hello"); err != nil {
			return err
		}
		if _, err := rec.Make(ctx, "count", "dynam", "number", "2"); err != nil {
			return err
		}
		if _, err := rec.Mod(ctx, "greeting", "string", "rejected"); err != nil {
			return err
		}
		if _, err := rec.Bind(ctx, "cfg", false, map[string]any{"tags": []any{"a", "b"}}); err != nil {
			return err
		}
		if _, err := rec.GetType(ctx, "cfg"); err != nil {
			return err
		}
		if _, _, err := rec.GetValue(ctx, "greeting", 32); err != nil {
			return err
		}
		if _, _, err := rec.GetValue(ctx, "greeting", 2); err != nil {
			return err
		}
		if _, err := rec.Remove(ctx, "count"); err != nil {
			return err
		}
		return rec.Shutdown(ctx)
	}
	if err := steps(); err != nil {
		t.Fatalf("recording failed: %v", err)
	}
	return rec.Session()
}

func TestReplay_Deterministic(t *testing.T) {
	l := openTestLog(t)
	session := recordSession(t, l, 0)

	report, err := Replay(context.Background(), l, session)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if report.Total != 10 {
		t.Errorf("Total = %d, want 10", report.Total)
	}
	if !report.Deterministic() {
		t.Fatalf("session diverged: %+v", report.Diverged)
	}
}

func TestReplay_DeterministicWithLimit(t *testing.T) {
	// A capped session records allocation failures; replay must
	// reproduce those failures, which requires rebuilding the runtime
	// with the recorded cap.
	l := openTestLog(t)
	session := recordSession(t, l, 4)

	report, err := Replay(context.Background(), l, session)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if !report.Deterministic() {
		t.Fatalf("capped session diverged: %+v", report.Diverged)
	}
}

func TestReplay_DetectsDivergence(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	// A hand-written log whose recorded outcome does not match what the
	// runtime actually does.
	writes := []Call{
		{Session: "tampered", Seq: 1, Op: OpInit},
		{Session: "tampered", Seq: 2, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1"},
		{Session: "tampered", Seq: 3, Op: OpGetValue, Name: "v", Capacity: 16, Status: 3, Output: "999"},
		{Session: "tampered", Seq: 4, Op: OpShutdown},
	}
	for _, c := range writes {
		if err := l.WriteCall(ctx, c); err != nil {
			t.Fatalf("WriteCall() failed: %v", err)
		}
	}

	report, err := Replay(ctx, l, "tampered")
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if report.Deterministic() {
		t.Fatal("tampered session reported deterministic")
	}
	if len(report.Diverged) != 1 {
		t.Fatalf("got %d divergences, want 1: %+v", len(report.Diverged), report.Diverged)
	}
	d := report.Diverged[0]
	if d.Seq != 3 || d.Op != OpGetValue {
		t.Errorf("divergence = %+v", d)
	}
	if d.WantOutput != "999" || d.GotOutput != "1" {
		t.Errorf("outputs = want %q, got %q", d.WantOutput, d.GotOutput)
	}
}

func TestReplay_UnknownSession(t *testing.T) {
	l := openTestLog(t)

	_, err := Replay(context.Background(), l, "absent")
	if !errors.Is(err, ErrNoCalls) {
		t.Fatalf("Replay(absent) error = %v, want ErrNoCalls", err)
	}
}

func TestReplay_CallsWithoutInit(t *testing.T) {
	// Out-of-window calls record their generic failure codes; replay
	// reproduces them against a windowless runtime.
	l := openTestLog(t)
	ctx := context.Background()

	writes := []Call{
		{Session: "no-init", Seq: 1, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1", Status: int64(boundary.MakeErrRejected)},
		{Session: "no-init", Seq: 2, Op: OpGetType, Name: "v", Status: int64(boundary.TypeErrNotFound)},
	}
	for _, c := range writes {
		if err := l.WriteCall(ctx, c); err != nil {
			t.Fatalf("WriteCall() failed: %v", err)
		}
	}

	report, err := Replay(ctx, l, "no-init")
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if !report.Deterministic() {
		t.Fatalf("windowless session diverged: %+v", report.Diverged)
	}
}
