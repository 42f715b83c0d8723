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

func testLedger(t *testing.T) (*Ledger, string) {
	t.Helper()

	// Create logger with no output for tests
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dir := t.TempDir()
	ledger, err := NewLedger(dir, logger)
	require.NoError(t, err)
	return ledger, dir
}

func mustIdentity(t *testing.T, raw string) interfaces.ModuleIdentity {
	t.Helper()
	id, err := interfaces.ParseModuleIdentity(raw)
	require.NoError(t, err)
	return id
}

// TestLedgerAllocateAscending verifies that fresh identities receive the
// lowest free ports in ascending order.
func TestLedgerAllocateAscending(t *testing.T) {
	ledger, _ := testLedger(t)
	rng := interfaces.PortRange{Start: 10001, End: 10200}

	first, err := ledger.Allocate(mustIdentity(t, "Rabbit.Miner_0"), rng)
	require.NoError(t, err)
	assert.Equal(t, 10001, first.Port)

	second, err := ledger.Allocate(mustIdentity(t, "Rabbit.Miner_1"), rng)
	require.NoError(t, err)
	assert.Equal(t, 10002, second.Port)

	assert.True(t, rng.Contains(first.Port))
	assert.True(t, rng.Contains(second.Port))
}

// TestLedgerAllocateIdempotent verifies that repeated allocation returns the
// stored port without appending a second record.
func TestLedgerAllocateIdempotent(t *testing.T) {
	ledger, dir := testLedger(t)
	rng := interfaces.PortRange{Start: 10001, End: 10200}
	identity := mustIdentity(t, "Rabbit.Miner_0")

	first, err := ledger.Allocate(identity, rng)
	require.NoError(t, err)

	second, err := ledger.Allocate(identity, rng)
	require.NoError(t, err)
	assert.Equal(t, first.Port, second.Port)

	data, err := os.ReadFile(filepath.Join(dir, LedgerFileName))
	require.NoError(t, err)
	assert.Equal(t, "Rabbit.Miner_0:10001\n", string(data))
}

// TestLedgerPortTakenExactMatch verifies that port matching compares the
// parsed port number, so a short port never matches a longer one with the
// same suffix or prefix.
func TestLedgerPortTakenExactMatch(t *testing.T) {
	ledger, _ := testLedger(t)

	require.NoError(t, ledger.Append(interfaces.PortAssignment{
		Identity: mustIdentity(t, "Rabbit.Miner_0"),
		Port:     1100,
	}))

	taken, err := ledger.PortTaken(1100)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = ledger.PortTaken(100)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = ledger.PortTaken(110)
	require.NoError(t, err)
	assert.False(t, taken)
}

// TestLedgerLookupLastRecordWins verifies that the latest record for an
// identity shadows earlier ones.
func TestLedgerLookupLastRecordWins(t *testing.T) {
	ledger, _ := testLedger(t)
	identity := mustIdentity(t, "Rabbit.Miner_0")

	require.NoError(t, ledger.Append(interfaces.PortAssignment{Identity: identity, Port: 10001}))
	require.NoError(t, ledger.Append(interfaces.PortAssignment{Identity: identity, Port: 20001}))

	port, err := ledger.Lookup(identity)
	require.NoError(t, err)
	assert.Equal(t, 20001, port)

	_, err = ledger.Lookup(mustIdentity(t, "Rabbit.Miner_9"))
	assert.ErrorIs(t, err, interfaces.ErrAssignmentNotFound)
}

// TestLedgerClaim covers explicit port requests: free ports succeed, held
// ports conflict, out-of-range ports are rejected, and re-claiming the own
// port is a no-op.
func TestLedgerClaim(t *testing.T) {
	ledger, dir := testLedger(t)
	rng := interfaces.PortRange{Start: 10001, End: 10200}
	miner := mustIdentity(t, "Rabbit.Miner_0")
	other := mustIdentity(t, "Rabbit.Miner_1")

	claimed, err := ledger.Claim(miner, 10050, rng)
	require.NoError(t, err)
	assert.Equal(t, 10050, claimed.Port)

	_, err = ledger.Claim(other, 10050, rng)
	assert.ErrorIs(t, err, interfaces.ErrPortConflict)

	_, err = ledger.Claim(other, 9000, rng)
	assert.ErrorIs(t, err, interfaces.ErrPortOutOfRange)

	again, err := ledger.Claim(miner, 10050, rng)
	require.NoError(t, err)
	assert.Equal(t, 10050, again.Port)

	data, err := os.ReadFile(filepath.Join(dir, LedgerFileName))
	require.NoError(t, err)
	assert.Equal(t, "Rabbit.Miner_0:10050\n", string(data))
}

// TestLedgerExhaustion verifies the error once every port in the range is
// assigned.
func TestLedgerExhaustion(t *testing.T) {
	ledger, _ := testLedger(t)
	rng := interfaces.PortRange{Start: 10001, End: 10002}

	_, err := ledger.Allocate(mustIdentity(t, "Rabbit.Miner_0"), rng)
	require.NoError(t, err)
	_, err = ledger.Allocate(mustIdentity(t, "Rabbit.Miner_1"), rng)
	require.NoError(t, err)

	_, err = ledger.Allocate(mustIdentity(t, "Rabbit.Miner_2"), rng)
	assert.ErrorIs(t, err, interfaces.ErrPortRangeExhausted)
}

// TestLedgerSkipsMalformedLines verifies that garbage in the file never
// breaks reads and never shadows valid records.
func TestLedgerSkipsMalformedLines(t *testing.T) {
	ledger, dir := testLedger(t)

	content := "not a record\n" +
		"Rabbit.Miner_0:10001\n" +
		":11\n" +
		"Rabbit.Miner_1:notaport\n" +
		"\n" +
		"Rabbit.Miner_1:10002\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, LedgerFileName), []byte(content), 0644))

	port, err := ledger.Lookup(mustIdentity(t, "Rabbit.Miner_0"))
	require.NoError(t, err)
	assert.Equal(t, 10001, port)

	port, err = ledger.Lookup(mustIdentity(t, "Rabbit.Miner_1"))
	require.NoError(t, err)
	assert.Equal(t, 10002, port)
}

// TestLedgerReallocatesAfterRangeChange verifies that an assignment stranded
// outside a reconfigured range is replaced by a fresh in-range port while
// the old record stays in the history.
func TestLedgerReallocatesAfterRangeChange(t *testing.T) {
	ledger, dir := testLedger(t)
	identity := mustIdentity(t, "Rabbit.Miner_0")

	first, err := ledger.Allocate(identity, interfaces.PortRange{Start: 10001, End: 10200})
	require.NoError(t, err)
	assert.Equal(t, 10001, first.Port)

	second, err := ledger.Allocate(identity, interfaces.PortRange{Start: 20001, End: 20100})
	require.NoError(t, err)
	assert.Equal(t, 20001, second.Port)

	port, err := ledger.Lookup(identity)
	require.NoError(t, err)
	assert.Equal(t, 20001, port)

	data, err := os.ReadFile(filepath.Join(dir, LedgerFileName))
	require.NoError(t, err)
	assert.Equal(t, "Rabbit.Miner_0:10001\nRabbit.Miner_0:20001\n", string(data))
}
