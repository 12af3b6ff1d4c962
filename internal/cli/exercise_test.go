package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/oplog"
)

func execExercise(t *testing.T, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewExerciseCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestExerciseTranscript(t *testing.T) {
	buf, err := execExercise(t)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `init: ok (code 0)`)
	assert.Contains(t, out, `make "score" dynam number "120.5": ok (code 0)`)
	assert.Contains(t, out, `make "player_name" const string "Alice": ok (code 0)`)
	assert.Contains(t, out, `bind "inventory" dynam object: ok (code 0)`)
	assert.Contains(t, out, `get "player_name" -> string "Alice"`)
	assert.Contains(t, out, `get "inventory" -> object "{object}"`)
	assert.Contains(t, out, `get "no_such_var" -> not found (code -1)`)
	assert.Contains(t, out, `mod "score" number "999.0": ok (code 0)`)
	assert.Contains(t, out, `get "score" -> number "999"`)
	assert.Contains(t, out, `mod "player_name" string "Bob": failed (code -2)`)
	assert.Contains(t, out, `remove "is_active": ok (code 0)`)
	assert.Contains(t, out, `get "is_active" -> not found (code -1)`)
	assert.Contains(t, out, `shutdown: ok (code 0)`)
}

func TestExerciseJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewExerciseCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	steps, ok := data["steps"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, steps)

	first, ok := steps[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "init", first["op"])
	assert.Equal(t, float64(0), first["code"])
}

func TestExerciseWithLimitShowsFailures(t *testing.T) {
	// One unit covers the store table; every make after that is refused.
	buf, err := execExercise(t, "--limit", "1")
	require.NoError(t, err, "rejected statuses are part of the show, not command failures")

	out := buf.String()
	assert.Contains(t, out, `make "score" dynam number "120.5": failed (code -1)`)
	assert.Contains(t, out, `get "score" -> not found (code -1)`)
	assert.Contains(t, out, `shutdown: ok (code 0)`)
}

func TestExerciseRecordsOplog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calls.db")

	buf, err := execExercise(t, "--log", dbPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "recorded session")

	log, err := oplog.Open(dbPath)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	infos, err := log.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	calls, err := log.ReadSession(ctx, infos[0].Session)
	require.NoError(t, err)
	require.NotEmpty(t, calls)
	assert.Equal(t, oplog.OpInit, calls[0].Op)
	assert.Equal(t, oplog.OpShutdown, calls[len(calls)-1].Op)

	// A successful read lands with its rendered output.
	var sawRead bool
	for _, c := range calls {
		if c.Op == oplog.OpGetValue && c.Name == "player_name" {
			sawRead = true
			assert.Equal(t, "Alice", c.Output)
		}
	}
	assert.True(t, sawRead, "expected a recorded get_value for player_name")
}

func TestExerciseRecordedSessionReplays(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calls.db")

	_, err := execExercise(t, "--log", dbPath)
	require.NoError(t, err)

	log, err := oplog.Open(dbPath)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	infos, err := log.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	report, err := oplog.Replay(ctx, log, infos[0].Session)
	require.NoError(t, err)
	assert.True(t, report.Deterministic(),
		"the demo session must replay byte-for-byte, diverged: %+v", report.Diverged)
}

func TestExerciseRecordsLimitOnInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calls.db")

	_, err := execExercise(t, "--log", dbPath, "--limit", "4")
	require.NoError(t, err)

	log, err := oplog.Open(dbPath)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	infos, err := log.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)

	calls, err := log.ReadSession(ctx, infos[0].Session)
	require.NoError(t, err)
	require.NotEmpty(t, calls)
	assert.Equal(t, oplog.OpInit, calls[0].Op)
	assert.Equal(t, int64(4), calls[0].Capacity)

	// Capped sessions must still replay their refusals exactly.
	report, err := oplog.Replay(ctx, log, infos[0].Session)
	require.NoError(t, err)
	assert.True(t, report.Deterministic(),
		"capped session diverged: %+v", report.Diverged)
}

func TestExerciseBadLogPath(t *testing.T) {
	_, err := execExercise(t, "--log", "/nonexistent/dir/calls.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
