package oplog

import (
	"context"
	"fmt"
)

// SessionInfo summarizes one recorded session.
type SessionInfo struct {
	Session  string
	Calls    int
	FirstSeq int64
	LastSeq  int64
}

// Sessions lists recorded sessions. UUIDv7 tokens sort by creation
// time, so token order is recording order.
func (l *Log) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT session, COUNT(*), MIN(seq), MAX(seq)
		FROM calls
		GROUP BY session
		ORDER BY session ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	// Empty slice, not nil: callers range and serialize this.
	infos := []SessionInfo{}
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.Session, &info.Calls, &info.FirstSeq, &info.LastSeq); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return infos, nil
}

// ReadSession returns every call of one session in replay order.
// Ordering is deterministic: seq ASC with id as the tiebreak, although
// UNIQUE(session, seq) means the tiebreak never fires in a well-formed
// log.
func (l *Log) ReadSession(ctx context.Context, session string) ([]Call, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session, seq, op, name, access, type_tag, literal, capacity, status, output
		FROM calls
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	defer rows.Close()

	calls := []Call{}
	for rows.Next() {
		var c Call
		if err := rows.Scan(
			&c.ID, &c.Session, &c.Seq, &c.Op, &c.Name, &c.Access,
			&c.TypeTag, &c.Literal, &c.Capacity, &c.Status, &c.Output,
		); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read session %s: %w", session, err)
	}
	return calls, nil
}
