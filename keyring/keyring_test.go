package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExists checks presence detection against the CLI's one-json-per-key
// layout.
func TestExists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Rabbit.Miner_0.json"), []byte(`{}`), 0600))

	keyring := New(dir)

	exists, err := keyring.Exists("Rabbit.Miner_0")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = keyring.Exists("Rabbit.Miner_1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = keyring.Exists("")
	assert.Error(t, err)
}

// TestExistsMissingDir treats an absent key directory as "no keys".
func TestExistsMissingDir(t *testing.T) {
	keyring := New(filepath.Join(t.TempDir(), "nope"))

	exists, err := keyring.Exists("Rabbit.Miner_0")
	require.NoError(t, err)
	assert.False(t, exists)
}
