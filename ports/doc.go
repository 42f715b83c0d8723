// Package ports implements persistent port allocation for subnet modules.
//
// Two file-backed stores live in the launcher's data directory:
//
// Ledger holds one "identity:port" record per line. The file is append-only;
// re-assignments append a new record and the latest one wins. This keeps the
// full assignment history readable with standard text tools and makes every
// write a cheap O_APPEND, at the cost of a linear scan on read. An advisory
// file lock (gofrs/flock) closes the window between scanning for a free port
// and appending the new record when several launcher processes run at once.
//
// RangeStore holds the configurable allocation interval as a KEY=VALUE file
// with START_PORT and END_PORT keys. The file is replaced atomically on
// every write (temp file plus rename), so readers see either the old or the
// new interval, never a mix. Reconfiguring the range never rewrites ledger
// records; an assignment stranded outside the new range is simply replaced
// by a fresh allocation the next time the module registers.
package ports
