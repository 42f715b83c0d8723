// Package lifecycle orchestrates subnet module registration and serving.
//
// Orchestrator.Register drives the registration state machine
//
//	no-key -> key-created -> port-assigned -> chain-registered -> staked
//
// against the injected collaborators: chain client, keystore, port ledger
// and range config. The flow is resumable by construction. Every step
// persists its effect before the next one runs, a failed step halts the
// run, and re-running inspects the persisted state instead of redoing
// work: an existing key is not recreated, a persisted port is reused, and
// a module the chain already knows short-circuits the entire run as
// success.
//
// Inputs arrive exclusively through RegistrationRequest, built once at the
// CLI boundary. Interactive concerns (prompting for stake amounts,
// retrying on recoverable errors) stay with the caller; this package only
// validates and reports typed errors.
//
// Coordinator composes the orchestrator with a process supervisor.
// Deploy is register-then-serve; Serve resolves the persisted port and
// replaces the module's supervised process; TestServe additionally injects
// relaxed rate limits through the process environment without persisting
// anything.
//
// Orchestrator.ComputeState is the read-only counterpart of Register: it
// infers the current state from key file, ledger and chain without side
// effects.
package lifecycle
