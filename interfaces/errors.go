package interfaces

import "errors"

// Error kinds shared across the launcher. Callers branch on these with
// errors.Is; message formatting stays at the CLI boundary.
var (
	// ErrInvalidIdentity indicates a raw module name that does not parse.
	ErrInvalidIdentity = errors.New("invalid module identity")

	// ErrInvalidRole indicates a role other than miner or validator.
	ErrInvalidRole = errors.New("invalid module role")

	// ErrInvalidPortRange indicates a port range violating ordering or bounds.
	ErrInvalidPortRange = errors.New("invalid port range")

	// ErrPortRangeExhausted indicates no free port remains in the configured range.
	ErrPortRangeExhausted = errors.New("port range exhausted")

	// ErrPortConflict indicates an explicitly requested port is held by
	// another identity.
	ErrPortConflict = errors.New("port already assigned")

	// ErrPortOutOfRange indicates an explicitly requested port outside the
	// configured range.
	ErrPortOutOfRange = errors.New("port outside configured range")

	// ErrAssignmentNotFound indicates the identity has no persisted port.
	ErrAssignmentNotFound = errors.New("no port assignment for identity")

	// ErrInsufficientBalance indicates an amount the fee schedule cannot
	// subtract from.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidStakeAmount indicates a stake amount outside (0, max].
	// Recoverable: the caller may prompt for a new amount.
	ErrInvalidStakeAmount = errors.New("invalid stake amount")

	// ErrNotRegistered indicates serve was requested for a module with no
	// persisted port assignment.
	ErrNotRegistered = errors.New("module not registered")

	// ErrKeyCreateFailed indicates the chain client could not create a key.
	// Fatal: nothing can proceed without a key.
	ErrKeyCreateFailed = errors.New("key creation failed")

	// ErrChainCommand indicates a chain client invocation failed.
	ErrChainCommand = errors.New("chain command failed")

	// ErrSupervisor indicates a process supervisor invocation failed.
	ErrSupervisor = errors.New("process supervisor command failed")
)
