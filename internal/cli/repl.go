package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/lifecycle"
	"github.com/roach88/stash/internal/value"
)

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	Limit int64
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Drive a store interactively",
		Long: `Open an interactive session against a fresh store.

Commands:
  make <name> const|dynam <type> <literal>
  mod <name> <type> <literal>
  remove <name>
  type <name>
  get <name>
  list
  help
  quit

Line history and Ctrl-C abort are supported. The store lives until
quit; shutdown then reports any unbalanced allocations.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "ledger cap in units (0 = unlimited)")

	return cmd
}

func runRepl(opts *ReplOptions, cmd *cobra.Command) error {
	var lopts []lifecycle.Option
	if opts.Limit > 0 {
		lopts = append(lopts, lifecycle.WithLimit(opts.Limit))
	}
	api := boundary.New(lopts...)
	if st := api.Init(); st != boundary.StatusOK {
		return NewExitError(ExitCommandError, fmt.Sprintf("init failed (code %d)", st))
	}
	defer api.Shutdown()

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "stash repl - 'help' lists commands, 'quit' leaves")

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	for {
		line, err := ln.Prompt("stash> ")
		if err == liner.ErrPromptAborted {
			fmt.Fprintln(w, "(aborted)")
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(w)
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "prompt failed", err)
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		out, quit := evalReplLine(api, line)
		if out != "" {
			fmt.Fprintln(w, out)
		}
		if quit {
			return nil
		}
	}
}

// evalReplLine executes one line against the API and returns what to
// print. Kept apart from the prompt loop so it is testable without a
// terminal.
func evalReplLine(api *boundary.API, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}

	switch fields[0] {
	case "quit", "exit":
		return "", true

	case "help":
		return replHelp, false

	case "make":
		if len(fields) < 5 {
			return "usage: make <name> const|dynam <type> <literal>", false
		}
		literal := strings.Join(fields[4:], " ")
		st := api.Make([]byte(fields[1]), []byte(fields[2]), []byte(fields[3]), []byte(literal))
		return verdict(int64(st)), false

	case "mod":
		if len(fields) < 4 {
			return "usage: mod <name> <type> <literal>", false
		}
		literal := strings.Join(fields[3:], " ")
		st := api.Mod([]byte(fields[1]), []byte(fields[2]), []byte(literal))
		return verdict(int64(st)), false

	case "remove":
		if len(fields) != 2 {
			return "usage: remove <name>", false
		}
		return verdict(int64(api.Remove([]byte(fields[1])))), false

	case "type":
		if len(fields) != 2 {
			return "usage: type <name>", false
		}
		k := api.GetType([]byte(fields[1]))
		if k < 0 {
			return fmt.Sprintf("not found (code %d)", k), false
		}
		return value.Kind(k).String(), false

	case "get":
		if len(fields) != 2 {
			return "usage: get <name>", false
		}
		k := api.GetType([]byte(fields[1]))
		if k < 0 {
			return fmt.Sprintf("not found (code %d)", k), false
		}
		dst := make([]byte, readBufferSize)
		n := api.GetValueAsString([]byte(fields[1]), dst)
		if n < 0 {
			return fmt.Sprintf("read failed (code %d)", n), false
		}
		return fmt.Sprintf("%s %q", value.Kind(k).String(), string(dst[:n])), false

	case "list":
		if len(fields) != 1 {
			return "usage: list", false
		}
		rt := api.Runtime()
		if rt == nil {
			return "no open store", false
		}
		names := rt.Store().Names()
		if len(names) == 0 {
			return "(empty)", false
		}
		var b strings.Builder
		for i, name := range names {
			if i > 0 {
				b.WriteByte('\n')
			}
			k, err := rt.Store().TypeOf(name)
			if err != nil {
				fmt.Fprintf(&b, "%s ?", name)
				continue
			}
			fmt.Fprintf(&b, "%s %s", name, k.String())
		}
		return b.String(), false

	default:
		return fmt.Sprintf("unknown command %q - 'help' lists commands", fields[0]), false
	}
}

const replHelp = `  make <name> const|dynam <type> <literal>   create a variable
  mod <name> <type> <literal>                replace a variable's value
  remove <name>                              remove a variable
  type <name>                                report a variable's type
  get <name>                                 render a variable's value
  list                                       list variables with their types
  help                                       this text
  quit                                       leave`
