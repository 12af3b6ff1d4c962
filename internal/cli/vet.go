package cli

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/encoding/yaml"
	"github.com/spf13/cobra"
)

//go:embed schema.cue
var schemaCUE []byte

// VetIssue is one schema violation in one scenario file.
type VetIssue struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// VetResult holds the overall vetting result.
type VetResult struct {
	Files  int        `json:"files"`
	Valid  bool       `json:"valid"`
	Issues []VetIssue `json:"issues,omitempty"`
}

// NewVetCommand creates the vet command.
func NewVetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet <scenarios-dir>",
		Short: "Check scenario files against the schema",
		Long: `Check every scenario file in a directory against the embedded
CUE schema.

This is a static check: no scenario is executed. All files are vetted
and all violations reported before the command exits.

Exit codes:
  0 - All files fit the schema
  1 - One or more files violate the schema
  2 - Command error (invalid paths, etc.)

Examples:
  stash vet ./scenarios
  stash vet ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVet(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runVet(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, "")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenario files found.")
		return nil
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to compile schema", err)
	}
	scenarioDef := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := scenarioDef.Err(); err != nil {
		return WrapExitError(ExitCommandError, "schema has no #Scenario definition", err)
	}

	result := VetResult{Files: len(files), Valid: true, Issues: []VetIssue{}}
	w := cmd.OutOrStdout()

	for _, path := range files {
		issues := vetFile(ctx, scenarioDef, path)
		if len(issues) == 0 {
			if opts.Format != "json" {
				fmt.Fprintf(w, "✓ %s\n", filepath.Base(path))
			}
			continue
		}

		result.Valid = false
		result.Issues = append(result.Issues, issues...)
		if opts.Format != "json" {
			fmt.Fprintf(w, "✗ %s\n", filepath.Base(path))
			for _, issue := range issues {
				if issue.Line > 0 {
					fmt.Fprintf(w, "    line %d: %s\n", issue.Line, issue.Message)
				} else {
					fmt.Fprintf(w, "    %s\n", issue.Message)
				}
			}
		}
	}

	if opts.Format == "json" {
		return outputVetJSON(cmd, result)
	}

	fmt.Fprintln(w)
	if result.Valid {
		fmt.Fprintf(w, "✓ %d scenario file(s) fit the schema\n", result.Files)
		return nil
	}
	fmt.Fprintf(w, "✗ %d issue(s) in %d file(s)\n", len(result.Issues), result.Files)
	return NewExitError(ExitFailure, fmt.Sprintf("%d schema issue(s)", len(result.Issues)))
}

// vetFile unifies one YAML file with the scenario schema and expands
// every violation into an issue.
func vetFile(ctx *cue.Context, scenarioDef cue.Value, path string) []VetIssue {
	data, err := os.ReadFile(path)
	if err != nil {
		return []VetIssue{{File: path, Message: fmt.Sprintf("read: %v", err)}}
	}

	file, err := yaml.Extract(path, data)
	if err != nil {
		return cueIssues(path, err)
	}

	val := ctx.BuildFile(file, cue.Filename(path))
	if err := val.Err(); err != nil {
		return cueIssues(path, err)
	}

	unified := scenarioDef.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueIssues(path, err)
	}
	return nil
}

// cueIssues flattens a CUE error list into per-position issues.
func cueIssues(path string, err error) []VetIssue {
	var issues []VetIssue
	for _, e := range cueerrors.Errors(err) {
		issue := VetIssue{File: path, Message: e.Error()}
		if pos := e.Position(); pos.IsValid() {
			issue.Line = pos.Line()
		}
		issues = append(issues, issue)
	}
	if len(issues) == 0 {
		issues = append(issues, VetIssue{File: path, Message: err.Error()})
	}
	return issues
}

// outputVetJSON outputs the vet result as JSON.
func outputVetJSON(cmd *cobra.Command, result VetResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if !result.Valid {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_SCHEMA",
			Message: fmt.Sprintf("%d schema issue(s)", len(result.Issues)),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d schema issue(s)", len(result.Issues)))
	}
	return nil
}
