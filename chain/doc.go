// Package chain adapts the external chain CLI into the typed ChainClient
// interface.
//
// The chain is never linked in-process. Every operation shells out to one
// subcommand of the CLI binary (comx by default) with a bounded timeout,
// captures stdout and stderr, and translates the result:
//
//   - key create <name>
//   - module info <identity> --netuid <n>
//   - module register --ip <ip> --port <p> <identity> <key> <netuid>
//   - module update <identity> <key> [--ip] [--port] [--delegation-fee] [--metadata]
//   - balance transfer|stake|unstake <key> <amount> <dest>
//   - balance free-balance <key>
//
// Output parsing is deliberately lenient. Module lookups that fail are
// reported as "not registered" instead of errors, and a free-balance query
// that fails or prints no parseable number counts as a zero balance. Both
// fallbacks keep the registration flow moving when the key is not on chain
// yet or the CLI output format drifts.
//
// Amounts cross the boundary as apd decimals rendered with Text('f'); the
// package never converts token amounts through floats.
//
// MockClient provides a testify mock of the same interface for orchestrator
// tests.
package chain
