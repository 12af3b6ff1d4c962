package testutil

import "testing"

func TestFixedTokenSource(t *testing.T) {
	src := NewFixedTokenSource("session-0001")
	for i := 0; i < 3; i++ {
		if got := src.Token(); got != "session-0001" {
			t.Fatalf("Token() = %q, want %q", got, "session-0001")
		}
	}
}

func TestFixedTokenSourceDefault(t *testing.T) {
	src := NewFixedTokenSource("")
	if got := src.Token(); got != "session-fixed" {
		t.Fatalf("Token() = %q, want %q", got, "session-fixed")
	}
}
