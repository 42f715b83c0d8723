package ports

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

func testRangeStore(t *testing.T) (*RangeStore, string) {
	t.Helper()

	// Create logger with no output for tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	store, err := NewRangeStore(dir, logger)
	require.NoError(t, err)
	return store, dir
}

// TestRangeStoreDefaults verifies the built-in range when no config file
// was ever written.
func TestRangeStoreDefaults(t *testing.T) {
	store, _ := testRangeStore(t)

	rng, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, interfaces.PortRange{Start: 10001, End: 10200}, rng)
}

// TestRangeStoreSetGet verifies the round trip and the on-disk format.
func TestRangeStoreSetGet(t *testing.T) {
	store, dir := testRangeStore(t)

	want := interfaces.PortRange{Start: 20001, End: 20100}
	require.NoError(t, store.Set(want))

	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	data, err := os.ReadFile(filepath.Join(dir, RangeFileName))
	require.NoError(t, err)
	assert.Equal(t, "START_PORT=20001\nEND_PORT=20100\n", string(data))
}

// TestRangeStoreSetValidates verifies that invalid ranges are rejected
// without touching the stored config.
func TestRangeStoreSetValidates(t *testing.T) {
	store, _ := testRangeStore(t)
	require.NoError(t, store.Set(interfaces.PortRange{Start: 20001, End: 20100}))

	for _, rng := range []interfaces.PortRange{
		{Start: 100, End: 100},
		{Start: 200, End: 100},
		{Start: 0, End: 100},
		{Start: 100, End: 70000},
	} {
		assert.ErrorIs(t, store.Set(rng), interfaces.ErrInvalidPortRange, "range %s", rng)
	}

	got, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, interfaces.PortRange{Start: 20001, End: 20100}, got)
}

// TestRangeStoreLenientParse verifies that comments, unknown keys and
// unparseable values fall back to defaults instead of failing.
func TestRangeStoreLenientParse(t *testing.T) {
	store, dir := testRangeStore(t)

	content := "# port allocation range\n" +
		"START_PORT=15000\n" +
		"SOME_OTHER_KEY=abc\n" +
		"END_PORT=oops\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, RangeFileName), []byte(content), 0644))

	rng, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, 15000, rng.Start)
	assert.Equal(t, 10200, rng.End)
}
