package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseModuleIdentity verifies the dot-separated identity grammar.
func TestParseModuleIdentity(t *testing.T) {
	id, err := ParseModuleIdentity("Rabbit.Miner_0")
	require.NoError(t, err)
	assert.Equal(t, "Rabbit", id.Namespace)
	assert.Equal(t, "Miner_0", id.ClassName)
	assert.Equal(t, "Rabbit.Miner_0", id.String())

	for _, raw := range []string{
		"rabbit",          // no dot
		".Miner_0",        // empty namespace
		"Rabbit.",         // empty class name
		"Rabbit.Miner.0",  // two dots
		"",                // empty
		"Rab bit.Miner_0", // whitespace
		"Rab_bit.Miner",   // underscore not allowed in namespace
	} {
		_, err := ParseModuleIdentity(raw)
		assert.ErrorIs(t, err, ErrInvalidIdentity, "input %q", raw)
	}
}

// TestPortRangeValidate checks interval ordering and port bounds.
func TestPortRangeValidate(t *testing.T) {
	assert.NoError(t, PortRange{Start: 10001, End: 10200}.Validate())
	assert.NoError(t, DefaultPortRange().Validate())

	for _, rng := range []PortRange{
		{Start: 0, End: 10},
		{Start: 10, End: 0},
		{Start: 100, End: 100},
		{Start: 200, End: 100},
		{Start: 1, End: 65536},
		{Start: -5, End: 10},
	} {
		assert.ErrorIs(t, rng.Validate(), ErrInvalidPortRange, "range %s", rng)
	}
}

// TestPortRangeContains checks both inclusive boundaries.
func TestPortRangeContains(t *testing.T) {
	rng := PortRange{Start: 10, End: 20}
	assert.True(t, rng.Contains(10))
	assert.True(t, rng.Contains(20))
	assert.False(t, rng.Contains(9))
	assert.False(t, rng.Contains(21))
}

// TestParseModuleRole accepts only the two known roles.
func TestParseModuleRole(t *testing.T) {
	role, err := ParseModuleRole("miner")
	require.NoError(t, err)
	assert.Equal(t, RoleMiner, role)

	role, err = ParseModuleRole("validator")
	require.NoError(t, err)
	assert.Equal(t, RoleValidator, role)

	_, err = ParseModuleRole("gateway")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// TestRegistrationStateString covers the state names shown in CLI output.
func TestRegistrationStateString(t *testing.T) {
	assert.Equal(t, "no-key", StateNoKey.String())
	assert.Equal(t, "key-created", StateKeyCreated.String())
	assert.Equal(t, "port-assigned", StatePortAssigned.String())
	assert.Equal(t, "chain-registered", StateChainRegistered.String())
	assert.Equal(t, "staked", StateStaked.String())
	assert.Equal(t, "unknown", RegistrationState(99).String())
}
