// Package fees implements the fixed-point fee arithmetic for balance
// operations. All amounts are apd decimals; float64 never touches token
// math. Results that would go negative return ErrInsufficientBalance
// instead.
package fees

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// Flat fee schedule of the chain, in native tokens.
var (
	// TransferFee is the flat network fee subtracted from a transfer on
	// arrival. Display only; the submitted amount is never adjusted.
	TransferFee = apd.New(25, -1)

	// ForwardBuffer covers the follow-up transaction when an unstaked or
	// transferred amount is forwarded within the same flow.
	ForwardBuffer = apd.New(5, -1)

	// StakeReserve is the slice of free balance kept liquid when staking
	// the rest.
	StakeReserve = apd.New(1, 0)
)

// Arithmetic context for token amounts.
var ctx = apd.BaseContext.WithPrecision(30)

// ParseAmount parses a user-supplied token amount.
func ParseAmount(raw string) (*apd.Decimal, error) {
	amount, _, err := apd.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

// ExpectedArrival returns the amount the recipient sees after the flat
// transfer fee. The submitted amount itself stays untouched.
func ExpectedArrival(amount *apd.Decimal) (*apd.Decimal, error) {
	return subtract(amount, TransferFee)
}

// UnstakeForward returns the amount that remains transferable after
// unstaking, keeping the forward buffer for the follow-up transfer.
func UnstakeForward(amount *apd.Decimal) (*apd.Decimal, error) {
	return subtract(amount, ForwardBuffer)
}

// StakeForward returns the amount staked on the destination in a
// transfer-then-stake flow, keeping the forward buffer.
func StakeForward(amount *apd.Decimal) (*apd.Decimal, error) {
	return subtract(amount, ForwardBuffer)
}

// MaxStakeable returns the largest stake a free balance supports while
// keeping the reserve liquid.
func MaxStakeable(free *apd.Decimal) (*apd.Decimal, error) {
	return subtract(free, StakeReserve)
}

// Quote derives the stakeable maximum from a free balance.
func Quote(free *apd.Decimal) (interfaces.StakeQuote, error) {
	max, err := MaxStakeable(free)
	if err != nil {
		return interfaces.StakeQuote{}, err
	}
	return interfaces.StakeQuote{FreeBalance: free, MaxStakeable: max}, nil
}

// ValidateStake checks a requested stake amount against a quote. The amount
// must be positive and no more than the stakeable maximum. Violations are
// recoverable; callers typically prompt for a new amount.
func ValidateStake(amount *apd.Decimal, quote interfaces.StakeQuote) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: stake must be positive", interfaces.ErrInvalidStakeAmount)
	}
	if amount.Cmp(quote.MaxStakeable) > 0 {
		return fmt.Errorf("%w: %s exceeds stakeable maximum %s",
			interfaces.ErrInsufficientBalance, amount.Text('f'), quote.MaxStakeable.Text('f'))
	}
	return nil
}

func subtract(amount, fee *apd.Decimal) (*apd.Decimal, error) {
	if amount == nil {
		return nil, fmt.Errorf("%w: no amount", interfaces.ErrInsufficientBalance)
	}

	res := new(apd.Decimal)
	if _, err := ctx.Sub(res, amount, fee); err != nil {
		return nil, fmt.Errorf("fee arithmetic: %w", err)
	}
	if res.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s does not cover %s",
			interfaces.ErrInsufficientBalance, amount.Text('f'), fee.Text('f'))
	}
	return res, nil
}
