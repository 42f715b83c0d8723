// Package interfaces defines core interfaces and types for the subnet module
// launcher, separating interface definitions from implementations.
//
// The package provides the contracts between the launcher's components:
//
// # Allocation Interfaces
//
// PortAllocator: Hands out stable, persisted port assignments for module
// identities, including idempotent allocation and explicit claims.
//
// RangeConfigStore: Persists the configurable port allocation interval with
// atomic replacement semantics.
//
// # External Process Interfaces
//
// ChainClient: Wraps the external chain CLI as typed operations (key
// creation, module lookup, registration, update, balance movements).
//
// ProcessSupervisor: Manages long-running module processes by name with
// idempotent removal.
//
// Keystore: Answers key presence questions against the chain client's key
// directory.
//
// # Core Types
//
// The package also defines the validated value types shared by all
// components:
//
// - ModuleIdentity: two-part "Namespace.ClassName" module name
// - ModuleRole: miner or validator personality
// - PortRange/PortAssignment: allocation interval and its results
// - RegistrationState: ordered progress through the registration flow
// - ModuleInfo/StakeQuote/ModuleUpdate: chain query and update payloads
//
// Error kinds live in errors.go as sentinel variables; callers branch on
// them with errors.Is.
package interfaces
