package interfaces

import (
	"context"

	"github.com/cockroachdb/apd/v3"
)

// PortAllocator hands out and records stable port assignments for module
// identities. Implementations persist every assignment before returning it.
type PortAllocator interface {
	// Lookup returns the persisted port for the identity. When the history
	// holds several records for one identity, the latest wins. Returns
	// ErrAssignmentNotFound if no record exists.
	Lookup(identity ModuleIdentity) (int, error)

	// PortTaken reports whether any persisted record assigns the port.
	// Matching is exact: port 100 never matches an assignment of 1100.
	PortTaken(port int) (bool, error)

	// Allocate returns the identity's existing port if it lies inside rng,
	// otherwise assigns the lowest free port in rng. Idempotent: repeated
	// calls for one identity return the same port without growing the store.
	Allocate(identity ModuleIdentity, rng PortRange) (PortAssignment, error)

	// Claim assigns an explicitly chosen port. Fails with ErrPortConflict
	// when another identity holds it and ErrPortOutOfRange when it lies
	// outside rng. Claiming a port the identity already holds succeeds.
	Claim(identity ModuleIdentity, port int, rng PortRange) (PortAssignment, error)

	// Append persists an assignment unconditionally. Records are only ever
	// appended, never rewritten.
	Append(assignment PortAssignment) error
}

// RangeConfigStore persists the configurable allocation interval.
type RangeConfigStore interface {
	// Get returns the configured range, or the default when no
	// configuration was ever written.
	Get() (PortRange, error)

	// Set validates and atomically replaces the configured range. Existing
	// port assignments are left untouched.
	Set(rng PortRange) error
}

// ChainClient wraps the external chain CLI. Implementations translate each
// call into a single subcommand invocation and never retry.
type ChainClient interface {
	// CreateKey creates a named key in the chain client's local keyring.
	CreateKey(ctx context.Context, name string) error

	// ModuleInfo queries the chain for a registered module. A failed query
	// reports the module as not found rather than returning an error.
	ModuleInfo(ctx context.Context, identity ModuleIdentity, netuid int) (ModuleInfo, error)

	// Register announces the module's advertised endpoint on the subnet.
	Register(ctx context.Context, identity ModuleIdentity, key string, netuid int, ip string, port int) error

	// UpdateModule adjusts the endpoint, delegation fee or metadata of an
	// already registered module.
	UpdateModule(ctx context.Context, identity ModuleIdentity, key string, update ModuleUpdate) error

	// Transfer moves free balance to another key. The submitted amount is
	// passed through unchanged; fees are the chain's business.
	Transfer(ctx context.Context, key string, amount *apd.Decimal, dest string) error

	// Stake delegates balance to a module.
	Stake(ctx context.Context, key string, amount *apd.Decimal, dest string) error

	// Unstake withdraws delegated balance from a module.
	Unstake(ctx context.Context, key string, amount *apd.Decimal, dest string) error

	// FreeBalance returns the key's liquid balance. A failed query or
	// unparseable output yields zero, never an error.
	FreeBalance(ctx context.Context, key string) (*apd.Decimal, error)
}

// ProcessSupervisor manages long-running module processes by name.
type ProcessSupervisor interface {
	// Start launches argv as a supervised process with env merged over the
	// parent environment.
	Start(ctx context.Context, name string, argv []string, env map[string]string) error

	// Delete stops and removes a named process. Deleting a process that
	// does not exist succeeds.
	Delete(ctx context.Context, name string) error
}

// Keystore answers whether a named key exists in the chain client's key
// directory. Key creation goes through the ChainClient.
type Keystore interface {
	Exists(name string) (bool, error)
}

// Environment variables forming the contract between the launcher and the
// module server process it starts.
const (
	// EnvRateLimitRPS overrides the module server's sustained request rate.
	EnvRateLimitRPS = "MOSAIC_RATE_LIMIT_RPS"

	// EnvRateLimitBurst overrides the module server's burst allowance.
	EnvRateLimitBurst = "MOSAIC_RATE_LIMIT_BURST"
)
