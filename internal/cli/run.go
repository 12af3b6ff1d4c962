package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its trace",
		Long: `Run one scenario file against a fresh store runtime.

Prints every executed call with its status, then the verdict. A
scenario fails when any expectation or check does not hold.

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (file not found, invalid scenario, etc.)

Examples:
  stash run ./scenarios/scalar_round_trip.yaml
  stash run ./scenarios/budget_exhaustion.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario file not found: %s", path))
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, result)
	}
	return outputRunText(cmd, result)
}

// outputRunJSON outputs the scenario result as JSON.
func outputRunJSON(cmd *cobra.Command, result *harness.Result) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Pass {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_SCENARIO",
			Message: fmt.Sprintf("scenario %s failed", result.Scenario),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}
	return nil
}

// outputRunText outputs the scenario result as text.
func outputRunText(cmd *cobra.Command, result *harness.Result) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s\n", result.Scenario)
	if result.Session != "" {
		fmt.Fprintf(w, "Session:  %s\n", result.Session)
	}
	fmt.Fprintln(w)

	for _, ev := range result.Trace {
		line := fmt.Sprintf("%3d %-9s", ev.Seq, ev.Op)
		if ev.Name != "" {
			line += fmt.Sprintf(" %q", ev.Name)
		}
		line += fmt.Sprintf(" -> %d", ev.Status)
		if ev.Output != "" {
			line += fmt.Sprintf(" %q", ev.Output)
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	if result.Pass {
		fmt.Fprintln(w, "✓ scenario passed")
		return nil
	}

	fmt.Fprintln(w, "✗ scenario failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
}
