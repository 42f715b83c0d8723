package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/urfave/cli/v2"

	"github.com/mosaicnet/subnet-launcher/chain"
	"github.com/mosaicnet/subnet-launcher/cmd/flags"
	"github.com/mosaicnet/subnet-launcher/fees"
	"github.com/mosaicnet/subnet-launcher/interfaces"
	"github.com/mosaicnet/subnet-launcher/keyring"
	"github.com/mosaicnet/subnet-launcher/lifecycle"
	"github.com/mosaicnet/subnet-launcher/ports"
	"github.com/mosaicnet/subnet-launcher/supervisor"
)

// Launcher wires the stores and adapters behind the CLI commands. The
// prompt loops live here; the lifecycle packages never read stdin.
type Launcher struct {
	log    *slog.Logger
	chain  *chain.Client
	ledger *ports.Ledger
	ranges *ports.RangeStore
	orch   *lifecycle.Orchestrator
	coord  *lifecycle.Coordinator
	netuid int
	in     *bufio.Reader
}

func newLauncher(cCtx *cli.Context) (*Launcher, error) {
	logger := flags.SetupLogger(cCtx)

	dataDir := cCtx.String(dataDirFlag.Name)
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mosaic")
	}

	keyDir := cCtx.String(keyDirFlag.Name)
	if keyDir == "" {
		keyDir = keyring.DefaultDir()
	}

	ledger, err := ports.NewLedger(dataDir, logger)
	if err != nil {
		return nil, err
	}
	ranges, err := ports.NewRangeStore(dataDir, logger)
	if err != nil {
		return nil, err
	}

	chainClient := chain.NewClient(&chain.Config{
		Binary:      cCtx.String(chainCliFlag.Name),
		Testnet:     cCtx.Bool(testnetFlag.Name),
		CallTimeout: time.Duration(cCtx.Int64(chainTimeoutFlag.Name)) * time.Second,
		Log:         logger,
	})

	orch := lifecycle.NewOrchestrator(chainClient, keyring.New(keyDir), ledger, ranges, logger)
	sup := supervisor.NewPM2(&supervisor.Config{
		Binary: cCtx.String(pm2BinFlag.Name),
		Log:    logger,
	})
	coord := lifecycle.NewCoordinator(orch, sup, ledger, &lifecycle.CoordinatorConfig{
		ModserverBin: cCtx.String(modserverBinFlag.Name),
		Log:          logger,
	})

	return &Launcher{
		log:    logger,
		chain:  chainClient,
		ledger: ledger,
		ranges: ranges,
		orch:   orch,
		coord:  coord,
		netuid: cCtx.Int(netuidFlag.Name),
		in:     bufio.NewReader(os.Stdin),
	}, nil
}

// RegisterModule drives registration, re-prompting for a port when an
// explicitly requested one is unavailable. With deploy set the module is
// also started under the supervisor.
func (l *Launcher) RegisterModule(cCtx *cli.Context, role interfaces.ModuleRole, deploy bool) error {
	req, err := l.buildRequest(cCtx, role)
	if err != nil {
		return err
	}

	ctx := cCtx.Context
	for {
		var result lifecycle.Result
		if deploy {
			result, err = l.coord.Deploy(ctx, req)
		} else {
			result, err = l.orch.Register(ctx, req)
		}

		if err != nil && (errors.Is(err, interfaces.ErrPortConflict) || errors.Is(err, interfaces.ErrPortOutOfRange)) {
			port, promptErr := l.promptPort(err)
			if promptErr != nil {
				return err
			}
			l.log.Debug("Retrying registration", slog.Int("port", port))
			req.ExplicitPort = port
			continue
		}
		if err != nil {
			return err
		}

		l.printResult(req, result)
		return nil
	}
}

func (l *Launcher) buildRequest(cCtx *cli.Context, role interfaces.ModuleRole) (lifecycle.RegistrationRequest, error) {
	identity, err := interfaces.ParseModuleIdentity(cCtx.String(identityFlag.Name))
	if err != nil {
		return lifecycle.RegistrationRequest{}, err
	}

	keyName := cCtx.String(keyNameFlag.Name)
	if keyName == "" {
		keyName = identity.String()
	}

	req := lifecycle.RegistrationRequest{
		Identity:      identity,
		Role:          role,
		KeyName:       keyName,
		Netuid:        l.netuid,
		AdvertisedIP:  cCtx.String(ipFlag.Name),
		ExplicitPort:  cCtx.Int(portFlag.Name),
		IsUpdate:      cCtx.Bool(updateFlag.Name),
		DelegationFee: cCtx.Int(delegationFeeFlag.Name),
		Metadata:      cCtx.String(metadataFlag.Name),
	}

	if raw := cCtx.String(stakeFlag.Name); raw != "" {
		req.Stake, err = l.resolveStake(cCtx.Context, keyName, raw)
		if err != nil {
			return lifecycle.RegistrationRequest{}, err
		}
	}

	return req, nil
}

// resolveStake validates the requested amount against the key's balance,
// prompting for another one until it fits. An empty line skips staking.
func (l *Launcher) resolveStake(ctx context.Context, keyName, raw string) (*apd.Decimal, error) {
	quote, err := l.orch.StakeQuote(ctx, keyName)
	if err != nil {
		if !errors.Is(err, interfaces.ErrInsufficientBalance) {
			return nil, err
		}
		// A fresh key quotes a zero balance, which leaves nothing
		// stakeable. Fall through to the prompt so the operator can skip
		// staking with an empty line and keep the registration going.
		l.log.Debug("Nothing stakeable, prompting", slog.String("key", keyName), "err", err)
		quote = interfaces.StakeQuote{FreeBalance: apd.New(0, 0), MaxStakeable: apd.New(0, 0)}
	}

	for {
		amount, err := fees.ParseAmount(raw)
		if err == nil {
			if err = fees.ValidateStake(amount, quote); err == nil {
				return amount, nil
			}
		}

		fmt.Printf("cannot stake %q: %v\n", raw, err)
		fmt.Printf("enter an amount up to %s (empty to skip staking): ", quote.MaxStakeable.Text('f'))
		line, readErr := l.in.ReadString('\n')
		if readErr != nil {
			return nil, err
		}
		raw = strings.TrimSpace(line)
		if raw == "" {
			return nil, nil
		}
	}
}

func (l *Launcher) promptPort(cause error) (int, error) {
	rng, err := l.ranges.Get()
	if err != nil {
		return 0, err
	}

	fmt.Printf("%v\n", cause)
	fmt.Printf("enter another port in %s (empty to pick automatically): ", rng)
	line, err := l.in.ReadString('\n')
	if err != nil {
		return 0, err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, nil
	}
	return strconv.Atoi(line)
}

func (l *Launcher) printResult(req lifecycle.RegistrationRequest, result lifecycle.Result) {
	if result.AlreadyRegistered {
		fmt.Printf("%s is already registered\n", req.Identity)
	}
	fmt.Printf("state: %s\n", result.State)
	if result.Port != 0 {
		fmt.Printf("port: %d\n", result.Port)
	}
	if result.Staked != nil {
		fmt.Printf("staked: %s\n", result.Staked.Text('f'))
	}
	if req.IsUpdate {
		fmt.Println("module update applied")
	}
}

// ServeModule starts a registered module under the supervisor, resolving
// its persisted port from the ledger.
func (l *Launcher) ServeModule(cCtx *cli.Context, role interfaces.ModuleRole) error {
	identity, err := interfaces.ParseModuleIdentity(cCtx.String(identityFlag.Name))
	if err != nil {
		return err
	}

	if cCtx.Bool(testServeFlag.Name) {
		err = l.coord.TestServe(cCtx.Context, identity, role)
	} else {
		err = l.coord.Serve(cCtx.Context, identity, role)
	}
	if err != nil {
		return err
	}

	if port, lookupErr := l.ledger.Lookup(identity); lookupErr == nil {
		fmt.Printf("%s serving on port %d\n", identity, port)
	}
	return nil
}

// UpdateModule pushes new connection details for an already registered
// module.
func (l *Launcher) UpdateModule(cCtx *cli.Context) error {
	identity, err := interfaces.ParseModuleIdentity(cCtx.String(identityFlag.Name))
	if err != nil {
		return err
	}
	role, err := interfaces.ParseModuleRole(cCtx.String(roleFlag.Name))
	if err != nil {
		return err
	}

	keyName := cCtx.String(keyNameFlag.Name)
	if keyName == "" {
		keyName = identity.String()
	}

	info, err := l.chain.ModuleInfo(cCtx.Context, identity, l.netuid)
	if err != nil {
		return err
	}
	if !info.Found {
		return fmt.Errorf("%w: %s is not registered", interfaces.ErrNotRegistered, identity)
	}

	req := lifecycle.RegistrationRequest{
		Identity:      identity,
		Role:          role,
		KeyName:       keyName,
		Netuid:        l.netuid,
		AdvertisedIP:  cCtx.String(updateIPFlag.Name),
		IsUpdate:      true,
		DelegationFee: cCtx.Int(delegationFeeFlag.Name),
		Metadata:      cCtx.String(metadataFlag.Name),
	}

	result, err := l.orch.Register(cCtx.Context, req)
	if err != nil {
		return err
	}

	fmt.Printf("module updated, state: %s\n", result.State)
	return nil
}

// ConfigurePortRange rewrites the range used for future allocations.
// Existing ledger entries keep their ports.
func (l *Launcher) ConfigurePortRange(cCtx *cli.Context) error {
	rng := interfaces.PortRange{
		Start: cCtx.Int(startPortFlag.Name),
		End:   cCtx.Int(endPortFlag.Name),
	}
	if err := l.ranges.Set(rng); err != nil {
		return err
	}

	fmt.Printf("port range set to %s\n", rng)
	return nil
}

func (l *Launcher) TransferBalance(cCtx *cli.Context) error {
	amount, err := fees.ParseAmount(cCtx.String(amountFlag.Name))
	if err != nil {
		return err
	}

	receipt, err := l.orch.TransferBalance(cCtx.Context, cCtx.String(fundsKeyFlag.Name), amount, cCtx.String(destFlag.Name))
	if err != nil {
		return err
	}

	fmt.Printf("submitted: %s\n", receipt.Submitted.Text('f'))
	fmt.Printf("expected arrival after fee: %s\n", receipt.ExpectedArrival.Text('f'))
	return nil
}

func (l *Launcher) UnstakeAndTransfer(cCtx *cli.Context) error {
	amount, err := fees.ParseAmount(cCtx.String(amountFlag.Name))
	if err != nil {
		return err
	}

	dest := cCtx.String(destFlag.Name)
	forwarded, err := l.orch.UnstakeAndTransfer(cCtx.Context, cCtx.String(fundsKeyFlag.Name), amount, dest)
	if err != nil {
		return err
	}

	fmt.Printf("unstaked %s, forwarded %s to %s\n", amount.Text('f'), forwarded.Text('f'), dest)
	return nil
}

func (l *Launcher) TransferAndStake(cCtx *cli.Context) error {
	amount, err := fees.ParseAmount(cCtx.String(amountFlag.Name))
	if err != nil {
		return err
	}

	dest := cCtx.String(destFlag.Name)
	staked, err := l.orch.TransferAndStake(cCtx.Context, cCtx.String(fundsKeyFlag.Name), amount, dest)
	if err != nil {
		return err
	}

	fmt.Printf("transferred %s, staked %s onto %s\n", amount.Text('f'), staked.Text('f'), dest)
	return nil
}

func (l *Launcher) ShowState(cCtx *cli.Context) error {
	identity, err := interfaces.ParseModuleIdentity(cCtx.String(identityFlag.Name))
	if err != nil {
		return err
	}

	keyName := cCtx.String(keyNameFlag.Name)
	if keyName == "" {
		keyName = identity.String()
	}

	state, err := l.orch.ComputeState(cCtx.Context, identity, keyName, l.netuid)
	if err != nil {
		return err
	}

	fmt.Printf("state: %s\n", state)
	if port, lookupErr := l.ledger.Lookup(identity); lookupErr == nil {
		fmt.Printf("port: %d\n", port)
	}
	return nil
}

func (l *Launcher) FreeBalance(cCtx *cli.Context) error {
	balance, err := l.chain.FreeBalance(cCtx.Context, cCtx.String(fundsKeyFlag.Name))
	if err != nil {
		return err
	}

	fmt.Println(balance.Text('f'))
	return nil
}
