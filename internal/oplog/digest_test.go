package oplog

import (
	"strings"
	"testing"
)

func TestCallID_Deterministic(t *testing.T) {
	call := Call{
		Session: "s1", Seq: 7, Op: OpMake,
		Name: "v", Access: "dynam", TypeTag: "string", Literal: "x",
	}
	a := callID(call)
	b := callID(call)
	if a != b {
		t.Fatalf("same call hashed differently: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("id length = %d, want 64 hex chars", len(a))
	}
}

func TestCallID_IgnoresOutcome(t *testing.T) {
	base := Call{Session: "s1", Seq: 1, Op: OpGetValue, Name: "v", Capacity: 64}

	recorded := base
	recorded.Status = 5
	recorded.Output = "hello"

	if callID(base) != callID(recorded) {
		t.Fatal("status/output changed the id; identity must cover the request only")
	}
}

func TestCallID_SensitiveToRequest(t *testing.T) {
	base := Call{Session: "s1", Seq: 1, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1"}

	variants := []Call{
		{Session: "s2", Seq: 1, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1"},
		{Session: "s1", Seq: 2, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1"},
		{Session: "s1", Seq: 1, Op: OpMod, Name: "v", Access: "dynam", TypeTag: "number", Literal: "1"},
		{Session: "s1", Seq: 1, Op: OpMake, Name: "w", Access: "dynam", TypeTag: "number", Literal: "1"},
		{Session: "s1", Seq: 1, Op: OpMake, Name: "v", Access: "const", TypeTag: "number", Literal: "1"},
		{Session: "s1", Seq: 1, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "string", Literal: "1"},
		{Session: "s1", Seq: 1, Op: OpMake, Name: "v", Access: "dynam", TypeTag: "number", Literal: "2"},
	}
	baseID := callID(base)
	for i, v := range variants {
		if callID(v) == baseID {
			t.Errorf("variant %d collided with base", i)
		}
	}
}

func TestCallID_UnicodeNormalization(t *testing.T) {
	// "é" precomposed vs "e" + combining acute must hash identically.
	composed := Call{Session: "s", Seq: 1, Op: OpMake, Name: "café"}
	decomposed := Call{Session: "s", Seq: 1, Op: OpMake, Name: "café"}

	if callID(composed) != callID(decomposed) {
		t.Fatal("NFC-equivalent names hashed differently")
	}
}

func TestCanonicalCall_NoHTMLEscaping(t *testing.T) {
	payload := canonicalCall(Call{Session: "s", Seq: 1, Op: OpMake, Literal: "a<b&c>d"})
	if strings.Contains(string(payload), `\u003c`) {
		t.Fatalf("payload HTML-escaped: %s", payload)
	}
	if !strings.Contains(string(payload), "a<b&c>d") {
		t.Fatalf("literal not present verbatim: %s", payload)
	}
}

func TestCanonicalCall_FixedKeyOrder(t *testing.T) {
	payload := string(canonicalCall(Call{Session: "s", Seq: 1, Op: OpMake}))
	want := `{"access":"","capacity":0,"literal":"","name":"","op":"make","seq":1,"session":"s","type_tag":""}`
	if payload != want {
		t.Fatalf("canonical payload = %s, want %s", payload, want)
	}
}
