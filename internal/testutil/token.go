// Package testutil carries the deterministic stand-ins tests inject
// where production code uses entropy.
package testutil

// FixedTokenSource returns the same session token every time, keeping
// recorded logs and golden traces byte-identical across runs.
//
// Implements oplog.TokenSource.
type FixedTokenSource struct {
	token string
}

// NewFixedTokenSource creates a source pinned to token. An empty token
// falls back to "session-fixed".
func NewFixedTokenSource(token string) *FixedTokenSource {
	if token == "" {
		token = "session-fixed"
	}
	return &FixedTokenSource{token: token}
}

// Token returns the fixed session token.
func (s *FixedTokenSource) Token() string { return s.token }
