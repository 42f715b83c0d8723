package lifecycle

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/apd/v3"

	"github.com/mosaicnet/subnet-launcher/fees"
)

// TransferReceipt reports a submitted transfer and the amount expected to
// arrive after the flat network fee.
type TransferReceipt struct {
	Submitted       *apd.Decimal
	ExpectedArrival *apd.Decimal
}

// TransferBalance submits a transfer of exactly amount and reports the
// expected arrival. The fee is informational; the submitted amount is
// never adjusted. Amounts the fee would eat entirely are rejected before
// anything is submitted.
func (o *Orchestrator) TransferBalance(ctx context.Context, key string, amount *apd.Decimal, dest string) (TransferReceipt, error) {
	arrival, err := fees.ExpectedArrival(amount)
	if err != nil {
		return TransferReceipt{}, err
	}

	if err := o.chain.Transfer(ctx, key, amount, dest); err != nil {
		return TransferReceipt{}, err
	}

	o.log.Info("Transferred balance",
		slog.String("amount", amount.Text('f')),
		slog.String("expectedArrival", arrival.Text('f')),
		slog.String("dest", dest))
	return TransferReceipt{Submitted: amount, ExpectedArrival: arrival}, nil
}

// UnstakeAndTransfer unstakes amount from the module key and forwards it
// minus the transfer buffer to dest. Returns the forwarded amount.
func (o *Orchestrator) UnstakeAndTransfer(ctx context.Context, key string, amount *apd.Decimal, dest string) (*apd.Decimal, error) {
	forward, err := fees.UnstakeForward(amount)
	if err != nil {
		return nil, err
	}

	if err := o.chain.Unstake(ctx, key, amount, key); err != nil {
		return nil, err
	}
	if err := o.chain.Transfer(ctx, key, forward, dest); err != nil {
		return nil, err
	}

	o.log.Info("Unstaked and transferred",
		slog.String("unstaked", amount.Text('f')),
		slog.String("forwarded", forward.Text('f')),
		slog.String("dest", dest))
	return forward, nil
}

// TransferAndStake transfers amount to dest and stakes it minus the
// transfer buffer onto dest's module. Returns the staked amount.
func (o *Orchestrator) TransferAndStake(ctx context.Context, key string, amount *apd.Decimal, dest string) (*apd.Decimal, error) {
	staked, err := fees.StakeForward(amount)
	if err != nil {
		return nil, err
	}

	if err := o.chain.Transfer(ctx, key, amount, dest); err != nil {
		return nil, err
	}
	if err := o.chain.Stake(ctx, key, staked, dest); err != nil {
		return nil, err
	}

	o.log.Info("Transferred and staked",
		slog.String("transferred", amount.Text('f')),
		slog.String("staked", staked.Text('f')),
		slog.String("dest", dest))
	return staked, nil
}
