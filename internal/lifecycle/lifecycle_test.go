package lifecycle

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stash/internal/alloc"
	"github.com/roach88/stash/internal/store"
	"github.com/roach88/stash/internal/value"
)

func TestBootShutdownBalanced(t *testing.T) {
	var buf bytes.Buffer
	rt, err := Boot(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, err)

	require.NoError(t, rt.Store().Make("v", store.AccessDynam, store.TagString, "x"))
	assert.Equal(t, int64(3), rt.Ledger().Live())

	rt.Shutdown()
	assert.Zero(t, rt.Ledger().Live())
	assert.Empty(t, buf.String(), "a balanced shutdown must not log")
}

func TestBootZeroLimitFails(t *testing.T) {
	_, err := Boot(WithLimit(0))
	require.ErrorIs(t, err, alloc.ErrExhausted)
}

func TestBootLimitReachesStore(t *testing.T) {
	rt, err := Boot(WithLimit(2))
	require.NoError(t, err)
	defer rt.Shutdown()

	// Table took one unit; a string value plus name copy need two more.
	err = rt.Store().Make("v", store.AccessDynam, store.TagString, "x")
	require.ErrorIs(t, err, alloc.ErrExhausted)

	// A number variable only needs the name copy.
	require.NoError(t, rt.Store().Make("n", store.AccessDynam, store.TagNumber, "1"))
}

func TestShutdownLogsLeak(t *testing.T) {
	var buf bytes.Buffer
	rt, err := Boot(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, err)

	// Draw a value and lose it without binding or releasing.
	_, err = value.NewString(rt.Ledger(), "leaked")
	require.NoError(t, err)

	rt.Shutdown()
	assert.Contains(t, buf.String(), "unbalanced")
	assert.Contains(t, buf.String(), "live_units=1")
}

func TestShutdownRepeatable(t *testing.T) {
	rt, err := Boot()
	require.NoError(t, err)

	rt.Shutdown()
	rt.Shutdown()
	assert.Zero(t, rt.Ledger().Live())
}
