package oplog

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")

	l1, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := l1.WriteCall(context.Background(), Call{
		Session: "s1", Seq: 1, Op: OpInit,
	}); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer l2.Close()

	calls, err := l2.ReadSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls after reopen, want 1", len(calls))
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")
	for i := 0; i < 3; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		l.Close()
	}
}

func TestWriteCall_IdempotentByID(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	call := Call{Session: "s1", Seq: 1, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1"}

	if err := l.WriteCall(ctx, call); err != nil {
		t.Fatalf("first WriteCall() failed: %v", err)
	}
	if err := l.WriteCall(ctx, call); err != nil {
		t.Fatalf("duplicate WriteCall() failed: %v", err)
	}

	calls, err := l.ReadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1 (duplicate must be ignored)", len(calls))
	}
}

func TestWriteCall_SeqSlotConflict(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	if err := l.WriteCall(ctx, Call{Session: "s1", Seq: 1, Op: OpMake, Name: "a"}); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	// A different call under the same (session, seq) slot is a real
	// conflict, not an idempotent duplicate.
	err = l.WriteCall(ctx, Call{Session: "s1", Seq: 1, Op: OpMake, Name: "b"})
	if err == nil {
		t.Fatal("conflicting seq slot write succeeded, want error")
	}
}

func TestReadSession_Order(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	// Insert out of order; reads must come back in seq order.
	for _, seq := range []int64{3, 1, 2} {
		if err := l.WriteCall(ctx, Call{Session: "s1", Seq: seq, Op: OpGetType, Name: "v"}); err != nil {
			t.Fatalf("WriteCall(seq=%d) failed: %v", seq, err)
		}
	}

	calls, err := l.ReadSession(ctx, "s1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	for i, c := range calls {
		if want := int64(i + 1); c.Seq != want {
			t.Errorf("calls[%d].Seq = %d, want %d", i, c.Seq, want)
		}
	}
}

func TestReadSession_EmptyIsNotNil(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	calls, err := l.ReadSession(context.Background(), "absent")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if calls == nil {
		t.Fatal("ReadSession() returned nil, want empty slice")
	}
	if len(calls) != 0 {
		t.Fatalf("got %d calls, want 0", len(calls))
	}
}

func TestSessions_Listing(t *testing.T) {
	l, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	ctx := context.Background()
	for seq := int64(1); seq <= 3; seq++ {
		if err := l.WriteCall(ctx, Call{Session: "a", Seq: seq, Op: OpGetType, Name: "v"}); err != nil {
			t.Fatalf("WriteCall() failed: %v", err)
		}
	}
	if err := l.WriteCall(ctx, Call{Session: "b", Seq: 1, Op: OpInit}); err != nil {
		t.Fatalf("WriteCall() failed: %v", err)
	}

	infos, err := l.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d sessions, want 2", len(infos))
	}
	if infos[0].Session != "a" || infos[0].Calls != 3 || infos[0].FirstSeq != 1 || infos[0].LastSeq != 3 {
		t.Errorf("session a summary = %+v", infos[0])
	}
	if infos[1].Session != "b" || infos[1].Calls != 1 {
		t.Errorf("session b summary = %+v", infos[1])
	}
}
