package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/oplog"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - replay one session only
}

// ReplayDivergence is one call whose replayed outcome differs.
type ReplayDivergence struct {
	Seq        int64  `json:"seq"`
	Op         string `json:"op"`
	Name       string `json:"name,omitempty"`
	WantStatus int64  `json:"want_status"`
	GotStatus  int64  `json:"got_status"`
	WantOutput string `json:"want_output,omitempty"`
	GotOutput  string `json:"got_output,omitempty"`
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string             `json:"session"`
	Calls         int                `json:"calls"`
	Deterministic bool               `json:"deterministic"`
	Diverged      []ReplayDivergence `json:"diverged,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Replay recorded sessions against fresh runtimes and verify each
call reproduces its recorded status and output.

Init rows rebuild the runtime with the recorded ledger cap, so capped
sessions replay their allocation failures exactly.

Exit codes:
  0 - Every replayed call matched its record
  1 - Divergence detected
  2 - Command error (database not found, unknown session, etc.)

Examples:
  stash replay --db ./calls.db
  stash replay --db ./calls.db --session 0198c0de-7b2a-7c3f-9a61-0242ac120002
  stash replay --db ./calls.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to oplog database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay this session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := oplog.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open oplog", err)
	}
	defer log.Close()

	var sessions []string
	if opts.Session != "" {
		sessions = []string{opts.Session}
	} else {
		infos, err := log.Sessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, info := range infos {
			sessions = append(sessions, info.Session)
		}
	}

	if len(sessions) == 0 {
		if opts.Format == "json" {
			return outputReplayJSON(cmd, ReplayResult{
				Sessions:         []ReplaySessionResult{},
				AllDeterministic: true,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions recorded.")
		return nil
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}

	for _, session := range sessions {
		report, err := oplog.Replay(ctx, log, session)
		if err != nil {
			if errors.Is(err, oplog.ErrNoCalls) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("session %s has no recorded calls", session), err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", session), err)
		}

		sr := ReplaySessionResult{
			Session:       report.Session,
			Calls:         report.Total,
			Deterministic: report.Deterministic(),
		}
		for _, d := range report.Diverged {
			sr.Diverged = append(sr.Diverged, ReplayDivergence{
				Seq: d.Seq, Op: d.Op, Name: d.Name,
				WantStatus: d.WantStatus, GotStatus: d.GotStatus,
				WantOutput: d.WantOutput, GotOutput: d.GotOutput,
			})
		}

		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(cmd, result)
	}
	return outputReplayText(cmd, result, opts.Verbose)
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(cmd *cobra.Command, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DIVERGED",
			Message: "replay diverged from the record",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from the record")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(cmd *cobra.Command, result ReplayResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n\n", result.TotalSessions)

	for _, sr := range result.Sessions {
		status := "✓"
		if !sr.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s  %d call(s)\n", status, sr.Session, sr.Calls)

		for _, d := range sr.Diverged {
			fmt.Fprintf(w, "    seq %d %s %q: status %d, recorded %d\n",
				d.Seq, d.Op, d.Name, d.GotStatus, d.WantStatus)
			if verbose && (d.WantOutput != "" || d.GotOutput != "") {
				fmt.Fprintf(w, "      output %q, recorded %q\n", d.GotOutput, d.WantOutput)
			}
		}
	}
	fmt.Fprintln(w)

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All sessions replayed deterministically")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay diverged from the record")
	return NewExitError(ExitFailure, "replay diverged from the record")
}
