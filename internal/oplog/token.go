package oplog

import "github.com/google/uuid"

// TokenSource mints session tokens. Production uses UUIDv7Source; tests
// inject a fixed source so logs and traces stay byte-identical across
// runs.
type TokenSource interface {
	Token() string
}

// UUIDv7Source mints time-sortable UUIDv7 tokens: sessions listed by
// token are also listed by creation time. Stateless and safe for
// concurrent use.
type UUIDv7Source struct{}

// Token returns a new hyphenated UUIDv7. Panics only if the system
// entropy source fails.
func (UUIDv7Source) Token() string {
	return uuid.Must(uuid.NewV7()).String()
}
