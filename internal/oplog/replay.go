package oplog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/lifecycle"
)

// ErrNoCalls reports a replay request for a session with nothing in it.
var ErrNoCalls = errors.New("no recorded calls")

// Divergence is one replayed call whose outcome differs from the record.
type Divergence struct {
	Seq        int64
	Op         string
	Name       string
	WantStatus int64
	GotStatus  int64
	WantOutput string
	GotOutput  string
}

// Report is the outcome of replaying one session.
type Report struct {
	Session  string
	Total    int
	Diverged []Divergence
}

// Deterministic reports whether every replayed call reproduced its
// recorded status and output.
func (r *Report) Deterministic() bool { return len(r.Diverged) == 0 }

// Replay re-executes a recorded session against a fresh runtime and
// compares each call's status and output with the record. Init rows
// rebuild the runtime with the recorded ledger cap; leak warnings from
// replayed runtimes are discarded, the report is the only output.
func Replay(ctx context.Context, log *Log, session string) (*Report, error) {
	calls, err := log.ReadSession(ctx, session)
	if err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("replay session %q: %w", session, ErrNoCalls)
	}

	quiet := lifecycle.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	api := boundary.New(quiet)
	defer api.Shutdown()

	report := &Report{Session: session, Total: len(calls)}
	for _, c := range calls {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay session %q: %w", session, err)
		}

		var gotStatus int64
		gotOutput := ""
		switch c.Op {
		case OpInit:
			api.Shutdown()
			opts := []lifecycle.Option{quiet}
			if c.Capacity > 0 {
				opts = append(opts, lifecycle.WithLimit(c.Capacity))
			}
			api = boundary.New(opts...)
			gotStatus = int64(api.Init())
		case OpShutdown:
			api.Shutdown()
		case OpMake:
			gotStatus = int64(api.Make([]byte(c.Name), []byte(c.Access), []byte(c.TypeTag), []byte(c.Literal)))
		case OpMod:
			gotStatus = int64(api.Mod([]byte(c.Name), []byte(c.TypeTag), []byte(c.Literal)))
		case OpBind:
			gotStatus = int64(bindFromJSON(api, c.Name, c.Access, c.Literal))
		case OpRemove:
			gotStatus = int64(api.Remove([]byte(c.Name)))
		case OpGetType:
			gotStatus = int64(api.GetType([]byte(c.Name)))
		case OpGetValue:
			dst := make([]byte, c.Capacity)
			n := api.GetValueAsString([]byte(c.Name), dst)
			gotStatus = int64(n)
			if n >= 0 {
				gotOutput = string(dst[:n])
			}
		default:
			return nil, fmt.Errorf("replay session %q: unknown op %q at seq %d", session, c.Op, c.Seq)
		}

		if gotStatus != c.Status || gotOutput != c.Output {
			report.Diverged = append(report.Diverged, Divergence{
				Seq:        c.Seq,
				Op:         c.Op,
				Name:       c.Name,
				WantStatus: c.Status,
				GotStatus:  gotStatus,
				WantOutput: c.Output,
				GotOutput:  gotOutput,
			})
		}
	}
	return report, nil
}
