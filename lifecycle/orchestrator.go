package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/apd/v3"

	"github.com/mosaicnet/subnet-launcher/fees"
	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// DelegationFeeFloor is the lowest delegation fee percentage the chain
// accepts. Requested fees below it are raised silently.
const DelegationFeeFloor = 5

// RegistrationRequest carries everything one registration run needs. The
// struct is built once at the CLI boundary and passed by value; the flow
// never mutates it and never reaches back into ambient state.
type RegistrationRequest struct {
	// Identity is the on-chain module name.
	Identity interfaces.ModuleIdentity

	// Role picks the module server personality for later serving.
	Role interfaces.ModuleRole

	// KeyName is the chain key owning the module.
	KeyName string

	// Netuid is the target subnet.
	Netuid int

	// AdvertisedIP is the externally reachable address announced on chain.
	// Never used as a bind address.
	AdvertisedIP string

	// ExplicitPort, when non-zero, claims this exact port instead of
	// scanning the configured range.
	ExplicitPort int

	// Stake, when set, is staked onto the module after registration.
	Stake *apd.Decimal

	// IsUpdate runs the module update sub-flow once the module is
	// confirmed on chain.
	IsUpdate bool

	// DelegationFee is the validator's fee percentage for the update
	// sub-flow.
	DelegationFee int

	// Metadata is an optional metadata URI for the update sub-flow.
	Metadata string
}

// Result reports what a registration run did.
type Result struct {
	// State is the registration state reached by the run.
	State interfaces.RegistrationState

	// Port is the module's resolved port, when one is assigned.
	Port int

	// AlreadyRegistered is set when the chain already knew the module and
	// the run stopped without touching it.
	AlreadyRegistered bool

	// Staked is the amount staked during the run, when staking happened.
	Staked *apd.Decimal
}

// Orchestrator drives a module from bare name to registered, staked subnet
// participant. It owns no state of its own; everything observable lives in
// the injected stores and on the chain.
type Orchestrator struct {
	chain    interfaces.ChainClient
	keystore interfaces.Keystore
	ledger   interfaces.PortAllocator
	ranges   interfaces.RangeConfigStore
	log      *slog.Logger
}

// NewOrchestrator wires the orchestrator's collaborators.
func NewOrchestrator(chain interfaces.ChainClient, keystore interfaces.Keystore, ledger interfaces.PortAllocator, ranges interfaces.RangeConfigStore, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		chain:    chain,
		keystore: keystore,
		ledger:   ledger,
		ranges:   ranges,
		log:      log,
	}
}

// Register drives the registration state machine for req. A failed step
// halts the run but leaves all persisted state behind, so a later run
// resumes where this one stopped. A module the chain already knows
// short-circuits the whole flow as success; none of the chain-side steps
// run a second time.
func (o *Orchestrator) Register(ctx context.Context, req RegistrationRequest) (Result, error) {
	log := o.log.With(slog.String("identity", req.Identity.String()))

	// Key first: nothing else can be attempted without it, and a failed
	// creation is fatal.
	exists, err := o.keystore.Exists(req.KeyName)
	if err != nil {
		return Result{State: interfaces.StateNoKey}, fmt.Errorf("failed to check key: %w", err)
	}
	if !exists {
		log.Info("Creating key", slog.String("key", req.KeyName))
		if err := o.chain.CreateKey(ctx, req.KeyName); err != nil {
			return Result{State: interfaces.StateNoKey}, err
		}
	}

	info, err := o.chain.ModuleInfo(ctx, req.Identity, req.Netuid)
	if err != nil {
		return Result{State: interfaces.StateKeyCreated}, err
	}
	if info.Found {
		log.Info("Module already registered, skipping registration",
			slog.String("address", info.Address))

		result := Result{State: interfaces.StateChainRegistered, AlreadyRegistered: true}
		if info.Stake != nil && info.Stake.Sign() > 0 {
			result.State = interfaces.StateStaked
		}
		if port, err := o.ledger.Lookup(req.Identity); err == nil {
			result.Port = port
		}

		if req.IsUpdate {
			if err := o.updateModule(ctx, req, result.Port); err != nil {
				return result, err
			}
		}
		return result, nil
	}

	// Port next, against the range configured right now.
	rng, err := o.ranges.Get()
	if err != nil {
		return Result{State: interfaces.StateKeyCreated}, err
	}

	var assignment interfaces.PortAssignment
	if req.ExplicitPort != 0 {
		assignment, err = o.ledger.Claim(req.Identity, req.ExplicitPort, rng)
	} else {
		assignment, err = o.ledger.Allocate(req.Identity, rng)
	}
	if err != nil {
		return Result{State: interfaces.StateKeyCreated}, err
	}

	log.Info("Registering module",
		slog.String("ip", req.AdvertisedIP),
		slog.Int("port", assignment.Port),
		slog.Int("netuid", req.Netuid))
	if err := o.chain.Register(ctx, req.Identity, req.KeyName, req.Netuid, req.AdvertisedIP, assignment.Port); err != nil {
		// The port assignment is already persisted; the next run picks it
		// up and retries from here.
		return Result{State: interfaces.StatePortAssigned, Port: assignment.Port}, err
	}

	result := Result{State: interfaces.StateChainRegistered, Port: assignment.Port}

	if req.Stake != nil {
		staked, err := o.stake(ctx, req)
		if err != nil {
			// Registration survives a failed stake. The caller may stake
			// separately; re-running the flow will not.
			return result, err
		}
		result.Staked = staked
		result.State = interfaces.StateStaked
	}

	if req.IsUpdate {
		if err := o.updateModule(ctx, req, assignment.Port); err != nil {
			return result, err
		}
	}

	return result, nil
}

// StakeQuote returns the key's free balance and the stakeable maximum
// derived from it.
func (o *Orchestrator) StakeQuote(ctx context.Context, key string) (interfaces.StakeQuote, error) {
	free, err := o.chain.FreeBalance(ctx, key)
	if err != nil {
		return interfaces.StakeQuote{}, err
	}
	return fees.Quote(free)
}

// ComputeState infers how far a module progressed by inspecting the key
// file, the port ledger and the chain, in state order. All context arrives
// through the arguments; with unchanged stores the answer is stable.
func (o *Orchestrator) ComputeState(ctx context.Context, identity interfaces.ModuleIdentity, keyName string, netuid int) (interfaces.RegistrationState, error) {
	exists, err := o.keystore.Exists(keyName)
	if err != nil {
		return interfaces.StateNoKey, err
	}
	if !exists {
		return interfaces.StateNoKey, nil
	}

	if _, err := o.ledger.Lookup(identity); err != nil {
		if errors.Is(err, interfaces.ErrAssignmentNotFound) {
			return interfaces.StateKeyCreated, nil
		}
		return interfaces.StateKeyCreated, err
	}

	info, err := o.chain.ModuleInfo(ctx, identity, netuid)
	if err != nil {
		return interfaces.StatePortAssigned, err
	}
	if !info.Found {
		return interfaces.StatePortAssigned, nil
	}

	if info.Stake != nil && info.Stake.Sign() > 0 {
		return interfaces.StateStaked, nil
	}
	return interfaces.StateChainRegistered, nil
}

// stake validates the requested amount against a fresh quote, then
// delegates it to the module's own key.
func (o *Orchestrator) stake(ctx context.Context, req RegistrationRequest) (*apd.Decimal, error) {
	quote, err := o.StakeQuote(ctx, req.KeyName)
	if err != nil {
		return nil, err
	}
	if err := fees.ValidateStake(req.Stake, quote); err != nil {
		return nil, err
	}

	if err := o.chain.Stake(ctx, req.KeyName, req.Stake, req.KeyName); err != nil {
		return nil, err
	}

	o.log.Info("Staked on module",
		slog.String("key", req.KeyName),
		slog.String("amount", req.Stake.Text('f')))
	return req.Stake, nil
}

// updateModule runs the module update sub-flow, clamping the delegation
// fee to the chain floor.
func (o *Orchestrator) updateModule(ctx context.Context, req RegistrationRequest, port int) error {
	fee := req.DelegationFee
	if fee < DelegationFeeFloor {
		fee = DelegationFeeFloor
	}

	update := interfaces.ModuleUpdate{
		IP:            req.AdvertisedIP,
		Port:          port,
		DelegationFee: fee,
		Metadata:      req.Metadata,
	}

	o.log.Info("Updating module",
		slog.String("identity", req.Identity.String()),
		slog.Int("delegationFee", fee))
	return o.chain.UpdateModule(ctx, req.Identity, req.KeyName, update)
}
