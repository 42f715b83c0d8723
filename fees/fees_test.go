package fees

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

func amount(t *testing.T, raw string) *apd.Decimal {
	t.Helper()
	d, err := ParseAmount(raw)
	require.NoError(t, err)
	return d
}

// TestExpectedArrival verifies the flat transfer fee and that the submitted
// amount is left untouched.
func TestExpectedArrival(t *testing.T) {
	submitted := amount(t, "300")

	arrival, err := ExpectedArrival(submitted)
	require.NoError(t, err)
	assert.Equal(t, "297.5", arrival.Text('f'))
	assert.Equal(t, "300", submitted.Text('f'))

	zero, err := ExpectedArrival(amount(t, "2.5"))
	require.NoError(t, err)
	assert.Equal(t, "0.0", zero.Text('f'))

	_, err = ExpectedArrival(amount(t, "2"))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
}

// TestForwardBuffers verifies the 0.5 buffer on both forwarding flows.
func TestForwardBuffers(t *testing.T) {
	forwarded, err := UnstakeForward(amount(t, "50"))
	require.NoError(t, err)
	assert.Equal(t, "49.5", forwarded.Text('f'))

	staked, err := StakeForward(amount(t, "50"))
	require.NoError(t, err)
	assert.Equal(t, "49.5", staked.Text('f'))

	_, err = UnstakeForward(amount(t, "0.25"))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
}

// TestMaxStakeable verifies the one-token reserve.
func TestMaxStakeable(t *testing.T) {
	max, err := MaxStakeable(amount(t, "300"))
	require.NoError(t, err)
	assert.Equal(t, "299", max.Text('f'))

	_, err = MaxStakeable(amount(t, "0.5"))
	assert.ErrorIs(t, err, interfaces.ErrInsufficientBalance)
}

// TestValidateStake walks the boundary of the stakeable interval for a 300
// token free balance.
func TestValidateStake(t *testing.T) {
	quote, err := Quote(amount(t, "300"))
	require.NoError(t, err)
	assert.Equal(t, "299", quote.MaxStakeable.Text('f'))

	assert.NoError(t, ValidateStake(amount(t, "299"), quote))
	assert.NoError(t, ValidateStake(amount(t, "0.1"), quote))

	assert.ErrorIs(t, ValidateStake(amount(t, "299.01"), quote), interfaces.ErrInsufficientBalance)
	assert.ErrorIs(t, ValidateStake(amount(t, "0"), quote), interfaces.ErrInvalidStakeAmount)
	assert.ErrorIs(t, ValidateStake(amount(t, "-5"), quote), interfaces.ErrInvalidStakeAmount)
	assert.ErrorIs(t, ValidateStake(nil, quote), interfaces.ErrInvalidStakeAmount)
}
