package interfaces

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

var (
	namespaceRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	classNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// ModuleIdentity is the two-part on-chain name of a module, rendered as
// "Namespace.ClassName". The namespace groups modules of one subnet, the
// class name identifies the module within it.
type ModuleIdentity struct {
	Namespace string
	ClassName string
}

// ParseModuleIdentity validates and splits a raw identity string. The string
// must contain exactly one dot separating a non-empty alphanumeric namespace
// from a non-empty class name of alphanumerics and underscores.
func ParseModuleIdentity(raw string) (ModuleIdentity, error) {
	if strings.Count(raw, ".") != 1 {
		return ModuleIdentity{}, fmt.Errorf("%w: %q must contain exactly one dot", ErrInvalidIdentity, raw)
	}

	namespace, className, _ := strings.Cut(raw, ".")
	if !namespaceRe.MatchString(namespace) {
		return ModuleIdentity{}, fmt.Errorf("%w: bad namespace in %q", ErrInvalidIdentity, raw)
	}
	if !classNameRe.MatchString(className) {
		return ModuleIdentity{}, fmt.Errorf("%w: bad class name in %q", ErrInvalidIdentity, raw)
	}

	return ModuleIdentity{Namespace: namespace, ClassName: className}, nil
}

// String returns the canonical "Namespace.ClassName" form.
func (id ModuleIdentity) String() string {
	return id.Namespace + "." + id.ClassName
}

// Equal compares two identities.
func (id ModuleIdentity) Equal(other ModuleIdentity) bool {
	return id == other
}

// ModuleRole selects which module server personality a process runs.
type ModuleRole string

const (
	RoleMiner     ModuleRole = "miner"
	RoleValidator ModuleRole = "validator"
)

// ParseModuleRole validates a raw role string.
func ParseModuleRole(raw string) (ModuleRole, error) {
	switch ModuleRole(raw) {
	case RoleMiner, RoleValidator:
		return ModuleRole(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// String returns the role name.
func (r ModuleRole) String() string {
	return string(r)
}

// PortRange is the inclusive interval module ports are allocated from.
type PortRange struct {
	Start int
	End   int
}

// DefaultPortRange returns the range used when no configuration was
// ever written.
func DefaultPortRange() PortRange {
	return PortRange{Start: 10001, End: 10200}
}

// Validate checks interval ordering and TCP port bounds. The start must be
// strictly below the end and both must be valid port numbers.
func (r PortRange) Validate() error {
	if r.Start < 1 || r.Start > 65535 {
		return fmt.Errorf("%w: start port %d outside [1, 65535]", ErrInvalidPortRange, r.Start)
	}
	if r.End < 1 || r.End > 65535 {
		return fmt.Errorf("%w: end port %d outside [1, 65535]", ErrInvalidPortRange, r.End)
	}
	if r.Start >= r.End {
		return fmt.Errorf("%w: start port %d not below end port %d", ErrInvalidPortRange, r.Start, r.End)
	}
	return nil
}

// Contains reports whether p falls inside the range.
func (r PortRange) Contains(p int) bool {
	return p >= r.Start && p <= r.End
}

// String renders the range as "[start, end]".
func (r PortRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// PortAssignment binds a module identity to its allocated port.
type PortAssignment struct {
	Identity ModuleIdentity
	Port     int
}

// RegistrationState describes how far a module has progressed through the
// registration flow. States are strictly ordered; a module never skips one.
type RegistrationState int

const (
	// StateNoKey means no key exists for the module yet.
	StateNoKey RegistrationState = iota
	// StateKeyCreated means the key exists but no port was assigned.
	StateKeyCreated
	// StatePortAssigned means a port is persisted but the chain has no record.
	StatePortAssigned
	// StateChainRegistered means the module is visible on chain, unstaked.
	StateChainRegistered
	// StateStaked means the module is registered and carries stake.
	StateStaked
)

// String returns the state name.
func (s RegistrationState) String() string {
	switch s {
	case StateNoKey:
		return "no-key"
	case StateKeyCreated:
		return "key-created"
	case StatePortAssigned:
		return "port-assigned"
	case StateChainRegistered:
		return "chain-registered"
	case StateStaked:
		return "staked"
	default:
		return "unknown"
	}
}

// ModuleInfo is the parsed result of a chain module lookup.
type ModuleInfo struct {
	// Found reports whether the chain knows the module at all.
	Found bool
	// Address is the advertised "ip:port" endpoint, when present.
	Address string
	// Stake is the module's current stake, when present.
	Stake *apd.Decimal
	// Raw preserves the chain client's unparsed output for display.
	Raw string
}

// StakeQuote pairs a key's free balance with the stakeable maximum
// derived from it.
type StakeQuote struct {
	FreeBalance  *apd.Decimal
	MaxStakeable *apd.Decimal
}

// ModuleUpdate carries the optional fields of a module update. Zero values
// mean "leave unchanged", except DelegationFee which is always submitted.
type ModuleUpdate struct {
	IP            string
	Port          int
	DelegationFee int
	Metadata      string
}
