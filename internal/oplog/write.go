package oplog

import (
	"context"
	"fmt"
)

// WriteCall inserts one call row. ON CONFLICT(id) DO NOTHING makes
// duplicate writes of the same call idempotent; other constraint
// violations (a different call under an already-used session/seq slot)
// still fail.
func (l *Log) WriteCall(ctx context.Context, c Call) error {
	if c.ID == "" {
		c.ID = callID(c)
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO calls
		(id, session, seq, op, name, access, type_tag, literal, capacity, status, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.Session,
		c.Seq,
		c.Op,
		c.Name,
		c.Access,
		c.TypeTag,
		c.Literal,
		c.Capacity,
		c.Status,
		c.Output,
	)
	if err != nil {
		return fmt.Errorf("write call %s/%d: %w", c.Session, c.Seq, err)
	}
	return nil
}
