package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/oplog"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - print one session's calls
}

// SessionSummary is one recorded session in the listing.
type SessionSummary struct {
	Session  string `json:"session"`
	Calls    int    `json:"calls"`
	FirstSeq int64  `json:"first_seq"`
	LastSeq  int64  `json:"last_seq"`
}

// TraceCall is one recorded call, shaped for output.
type TraceCall struct {
	Seq      int64  `json:"seq"`
	Op       string `json:"op"`
	Name     string `json:"name,omitempty"`
	Access   string `json:"access,omitempty"`
	TypeTag  string `json:"type,omitempty"`
	Literal  string `json:"literal,omitempty"`
	Capacity int64  `json:"capacity,omitempty"`
	Status   int64  `json:"status"`
	Output   string `json:"output,omitempty"`
	ID       string `json:"id"`
}

// SessionTrace holds one session's full call list.
type SessionTrace struct {
	Session string      `json:"session"`
	Calls   []TraceCall `json:"calls"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded sessions",
		Long: `Inspect the call log written by exercise --log.

Without --session, lists every recorded session. With --session,
prints that session's calls in order: the request fields that went in
and the status (plus output for value reads) that came back.

Examples:
  stash trace --db ./calls.db
  stash trace --db ./calls.db --session 0198c0de-7b2a-7c3f-9a61-0242ac120002
  stash trace --db ./calls.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to oplog database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "print this session's calls")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := oplog.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open oplog", err)
	}
	defer log.Close()

	if opts.Session == "" {
		return traceSessions(ctx, opts, log, cmd)
	}
	return traceCalls(ctx, opts, log, cmd)
}

// traceSessions lists every recorded session.
func traceSessions(ctx context.Context, opts *TraceOptions, log *oplog.Log, cmd *cobra.Command) error {
	infos, err := log.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	summaries := make([]SessionSummary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, SessionSummary{
			Session:  info.Session,
			Calls:    info.Calls,
			FirstSeq: info.FirstSeq,
			LastSeq:  info.LastSeq,
		})
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: summaries})
	}

	w := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}

	fmt.Fprintf(w, "Sessions: %d\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "  %s  %d call(s)  seq %d..%d\n", s.Session, s.Calls, s.FirstSeq, s.LastSeq)
	}
	return nil
}

// traceCalls prints one session's calls in replay order.
func traceCalls(ctx context.Context, opts *TraceOptions, log *oplog.Log, cmd *cobra.Command) error {
	calls, err := log.ReadSession(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	trace := SessionTrace{Session: opts.Session, Calls: make([]TraceCall, 0, len(calls))}
	for _, c := range calls {
		trace.Calls = append(trace.Calls, TraceCall{
			Seq: c.Seq, Op: c.Op, Name: c.Name, Access: c.Access,
			TypeTag: c.TypeTag, Literal: c.Literal, Capacity: c.Capacity,
			Status: c.Status, Output: c.Output, ID: c.ID,
		})
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: trace})
	}

	w := cmd.OutOrStdout()
	if len(calls) == 0 {
		fmt.Fprintf(w, "No calls recorded for session: %s\n", opts.Session)
		return nil
	}

	fmt.Fprintf(w, "Session: %s\n\n", opts.Session)
	for _, c := range trace.Calls {
		fmt.Fprintln(w, formatCall(c))
	}
	return nil
}

// formatCall renders one call as a single text line.
func formatCall(c TraceCall) string {
	line := fmt.Sprintf("%4d %-9s", c.Seq, c.Op)
	switch c.Op {
	case oplog.OpInit:
		if c.Capacity > 0 {
			line += fmt.Sprintf(" limit=%d", c.Capacity)
		}
	case oplog.OpMake:
		line += fmt.Sprintf(" %q %s %s %q", c.Name, c.Access, c.TypeTag, c.Literal)
	case oplog.OpMod:
		line += fmt.Sprintf(" %q %s %q", c.Name, c.TypeTag, c.Literal)
	case oplog.OpBind:
		line += fmt.Sprintf(" %q %s %s", c.Name, c.Access, c.Literal)
	case oplog.OpRemove, oplog.OpGetType:
		line += fmt.Sprintf(" %q", c.Name)
	case oplog.OpGetValue:
		line += fmt.Sprintf(" %q cap=%d", c.Name, c.Capacity)
	}
	line += fmt.Sprintf(" -> %d", c.Status)
	if c.Output != "" {
		line += fmt.Sprintf(" %q", c.Output)
	}
	return line
}
