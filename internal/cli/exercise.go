package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/stash/internal/boundary"
	"github.com/roach88/stash/internal/lifecycle"
	"github.com/roach88/stash/internal/oplog"
	"github.com/roach88/stash/internal/value"
)

// readBufferSize is the caller buffer handed to value reads in the demo.
const readBufferSize = 256

// ExerciseOptions holds flags for the exercise command.
type ExerciseOptions struct {
	*RootOptions
	LogPath string // record calls to this oplog database
	Limit   int64  // ledger cap, 0 means unlimited
}

// ExerciseStep is one executed call in the demo transcript.
type ExerciseStep struct {
	Op     string `json:"op"`
	Name   string `json:"name,omitempty"`
	Code   int64  `json:"code"`
	Output string `json:"output,omitempty"`
}

// ExerciseResult holds the full transcript.
type ExerciseResult struct {
	Session string         `json:"session,omitempty"`
	Steps   []ExerciseStep `json:"steps"`
}

// boundaryDriver is the call surface the demo script runs against. The
// oplog recorder satisfies it directly; apiDriver adapts a bare API so
// the same script runs unrecorded.
type boundaryDriver interface {
	Init(ctx context.Context) (boundary.Status, error)
	Shutdown(ctx context.Context) error
	Make(ctx context.Context, name, access, typeTag, literal string) (boundary.Status, error)
	Mod(ctx context.Context, name, typeTag, literal string) (boundary.Status, error)
	Bind(ctx context.Context, name string, konst bool, tree any) (boundary.Status, error)
	Remove(ctx context.Context, name string) (boundary.Status, error)
	GetType(ctx context.Context, name string) (int32, error)
	GetValue(ctx context.Context, name string, capacity int) (int32, string, error)
}

// NewExerciseCommand creates the exercise command.
func NewExerciseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExerciseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Run a scripted end-to-end demo",
		Long: `Run a scripted demonstration against a fresh store.

The script creates variables of every supported type, reads them back,
modifies one, bounces off a const, removes one, and shuts down,
printing each call's status code along the way.

Examples:
  stash exercise
  stash exercise --limit 8
  stash exercise --log ./calls.db
  stash exercise --log ./calls.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExercise(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LogPath, "log", "", "record calls to this oplog database")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "ledger cap in units (0 = unlimited)")

	return cmd
}

func runExercise(opts *ExerciseOptions, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	drv, session, cleanup, err := newExerciseDriver(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	tr := &transcript{w: cmd.OutOrStdout(), text: opts.Format != "json"}
	if err := runScript(ctx, drv, tr); err != nil {
		return WrapExitError(ExitCommandError, "failed to record call", err)
	}

	if opts.Format == "json" {
		result := ExerciseResult{Session: session, Steps: tr.steps}
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}

	if session != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nrecorded session %s in %s\n", session, opts.LogPath)
	}
	return nil
}

// newExerciseDriver picks the recorded or unrecorded surface. The
// returned session is empty when nothing is recorded.
func newExerciseDriver(opts *ExerciseOptions) (boundaryDriver, string, func(), error) {
	if opts.LogPath == "" {
		var lopts []lifecycle.Option
		if opts.Limit > 0 {
			lopts = append(lopts, lifecycle.WithLimit(opts.Limit))
		}
		return apiDriver{api: boundary.New(lopts...)}, "", func() {}, nil
	}

	log, err := oplog.Open(opts.LogPath)
	if err != nil {
		return nil, "", nil, WrapExitError(ExitCommandError, "failed to open oplog", err)
	}
	var ropts []oplog.RecorderOption
	if opts.Limit > 0 {
		ropts = append(ropts, oplog.WithStoreLimit(opts.Limit))
	}
	rec := oplog.NewRecorder(log, ropts...)
	return rec, rec.Session(), func() { _ = log.Close() }, nil
}

// runScript walks the demo: init, makes across the scalar types plus a
// bound object, reads, a mod, a const rejection, a remove, shutdown.
// Rejected statuses are part of the show; only recording failures abort.
func runScript(ctx context.Context, drv boundaryDriver, tr *transcript) error {
	st, err := drv.Init(ctx)
	if err != nil {
		return err
	}
	tr.step(ExerciseStep{Op: "init", Code: int64(st)}, fmt.Sprintf("init: %s", verdict(int64(st))))

	tr.section("creating variables")
	makes := []struct {
		name, access, typeTag, literal string
	}{
		{"score", "dynam", "number", "120.5"},
		{"player_name", "const", "string", "Alice"},
		{"is_active", "dynam", "boolean", "true"},
	}
	for _, m := range makes {
		st, err := drv.Make(ctx, m.name, m.access, m.typeTag, m.literal)
		if err != nil {
			return err
		}
		tr.step(ExerciseStep{Op: "make", Name: m.name, Code: int64(st)},
			fmt.Sprintf("make %q %s %s %q: %s", m.name, m.access, m.typeTag, m.literal, verdict(int64(st))))
	}
	inventory := map[string]any{"gold": 42.0, "open": true}
	st, err = drv.Bind(ctx, "inventory", false, inventory)
	if err != nil {
		return err
	}
	tr.step(ExerciseStep{Op: "bind", Name: "inventory", Code: int64(st)},
		fmt.Sprintf("bind %q dynam object: %s", "inventory", verdict(int64(st))))

	tr.section("reading them back")
	for _, name := range []string{"player_name", "score", "is_active", "inventory", "no_such_var"} {
		if err := tr.get(ctx, drv, name); err != nil {
			return err
		}
	}

	tr.section("modifying")
	st, err = drv.Mod(ctx, "score", "number", "999.0")
	if err != nil {
		return err
	}
	tr.step(ExerciseStep{Op: "mod", Name: "score", Code: int64(st)},
		fmt.Sprintf("mod %q number %q: %s", "score", "999.0", verdict(int64(st))))
	if err := tr.get(ctx, drv, "score"); err != nil {
		return err
	}
	st, err = drv.Mod(ctx, "player_name", "string", "Bob")
	if err != nil {
		return err
	}
	tr.step(ExerciseStep{Op: "mod", Name: "player_name", Code: int64(st)},
		fmt.Sprintf("mod %q string %q: %s", "player_name", "Bob", verdict(int64(st))))
	if err := tr.get(ctx, drv, "player_name"); err != nil {
		return err
	}

	tr.section("removing")
	st, err = drv.Remove(ctx, "is_active")
	if err != nil {
		return err
	}
	tr.step(ExerciseStep{Op: "remove", Name: "is_active", Code: int64(st)},
		fmt.Sprintf("remove %q: %s", "is_active", verdict(int64(st))))
	if err := tr.get(ctx, drv, "is_active"); err != nil {
		return err
	}

	tr.section("shutting down")
	if err := drv.Shutdown(ctx); err != nil {
		return err
	}
	tr.step(ExerciseStep{Op: "shutdown", Code: 0}, "shutdown: ok (code 0)")
	return nil
}

func verdict(code int64) string {
	if code == 0 {
		return "ok (code 0)"
	}
	return fmt.Sprintf("failed (code %d)", code)
}

// transcript accumulates steps and, in text mode, prints them as they
// happen.
type transcript struct {
	w     io.Writer
	text  bool
	steps []ExerciseStep
}

func (t *transcript) section(title string) {
	if t.text {
		fmt.Fprintf(t.w, "\n%s\n", title)
	}
}

func (t *transcript) step(s ExerciseStep, line string) {
	t.steps = append(t.steps, s)
	if t.text {
		fmt.Fprintf(t.w, " > %s\n", line)
	}
}

// get queries a variable's type and renders its value.
func (t *transcript) get(ctx context.Context, drv boundaryDriver, name string) error {
	k, err := drv.GetType(ctx, name)
	if err != nil {
		return err
	}
	if k < 0 {
		t.step(ExerciseStep{Op: "get", Name: name, Code: int64(k)},
			fmt.Sprintf("get %q -> not found (code %d)", name, k))
		return nil
	}
	n, out, err := drv.GetValue(ctx, name, readBufferSize)
	if err != nil {
		return err
	}
	if n < 0 {
		t.step(ExerciseStep{Op: "get", Name: name, Code: int64(n)},
			fmt.Sprintf("get %q -> read failed (code %d)", name, n))
		return nil
	}
	t.step(ExerciseStep{Op: "get", Name: name, Code: int64(n), Output: out},
		fmt.Sprintf("get %q -> %s %q", name, value.Kind(k).String(), out))
	return nil
}

// apiDriver runs the script against a bare boundary with no recording.
type apiDriver struct {
	api *boundary.API
}

func (d apiDriver) Init(context.Context) (boundary.Status, error) { return d.api.Init(), nil }

func (d apiDriver) Shutdown(context.Context) error {
	d.api.Shutdown()
	return nil
}

func (d apiDriver) Make(_ context.Context, name, access, typeTag, literal string) (boundary.Status, error) {
	return d.api.Make([]byte(name), []byte(access), []byte(typeTag), []byte(literal)), nil
}

func (d apiDriver) Mod(_ context.Context, name, typeTag, literal string) (boundary.Status, error) {
	return d.api.Mod([]byte(name), []byte(typeTag), []byte(literal)), nil
}

func (d apiDriver) Bind(_ context.Context, name string, konst bool, tree any) (boundary.Status, error) {
	rt := d.api.Runtime()
	if rt == nil {
		return boundary.MakeErrRejected, nil
	}
	v, err := value.FromGo(rt.Ledger(), tree)
	if err != nil {
		return boundary.MakeErrRejected, nil
	}
	return d.api.Bind([]byte(name), konst, v), nil
}

func (d apiDriver) Remove(_ context.Context, name string) (boundary.Status, error) {
	return d.api.Remove([]byte(name)), nil
}

func (d apiDriver) GetType(_ context.Context, name string) (int32, error) {
	return d.api.GetType([]byte(name)), nil
}

func (d apiDriver) GetValue(_ context.Context, name string, capacity int) (int32, string, error) {
	dst := make([]byte, capacity)
	n := d.api.GetValueAsString([]byte(name), dst)
	if n < 0 {
		return n, "", nil
	}
	return n, string(dst[:n]), nil
}
