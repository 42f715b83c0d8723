package ports

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// LedgerFileName is the name of the assignment file inside the data directory.
const LedgerFileName = "port_ledger"

// Ledger implements a file-backed port allocator. Assignments are stored one
// per line as "identity:port" and only ever appended; when an identity
// appears on several lines the latest one is authoritative.
type Ledger struct {
	path string
	lock *flock.Flock
	log  *slog.Logger
}

// NewLedger opens the ledger file inside baseDir, creating the directory and
// an empty file if needed.
func NewLedger(baseDir string, log *slog.Logger) (*Ledger, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(baseDir, LedgerFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	f.Close()

	return &Ledger{
		path: path,
		lock: flock.New(path + ".lock"),
		log:  log,
	}, nil
}

// Lookup returns the identity's persisted port. The latest record wins.
// Returns ErrAssignmentNotFound when no record exists.
func (l *Ledger) Lookup(identity interfaces.ModuleIdentity) (int, error) {
	recs, err := l.records()
	if err != nil {
		return 0, err
	}

	port, found := lastPort(recs, identity)
	if !found {
		return 0, fmt.Errorf("%w: %s", interfaces.ErrAssignmentNotFound, identity)
	}
	return port, nil
}

// PortTaken reports whether any ledger record assigns the port. Matching is
// numeric on the parsed port field, never textual: port 100 does not match
// a record for port 1100.
func (l *Ledger) PortTaken(port int) (bool, error) {
	recs, err := l.records()
	if err != nil {
		return false, err
	}

	for _, rec := range recs {
		if rec.Port == port {
			return true, nil
		}
	}
	return false, nil
}

// Allocate returns the identity's existing port when it still lies inside
// rng, otherwise appends the lowest free port in rng. Idempotent: repeated
// calls return the same port without growing the file. The advisory file
// lock serializes concurrent launcher processes between the free-port scan
// and the append.
func (l *Ledger) Allocate(identity interfaces.ModuleIdentity, rng interfaces.PortRange) (interfaces.PortAssignment, error) {
	if err := l.lock.Lock(); err != nil {
		return interfaces.PortAssignment{}, fmt.Errorf("failed to lock ledger: %w", err)
	}
	defer l.lock.Unlock()

	recs, err := l.records()
	if err != nil {
		return interfaces.PortAssignment{}, err
	}

	// An existing assignment is reused as long as it falls inside the
	// configured range. A stale out-of-range port gets a fresh allocation;
	// its old record stays in the history.
	if port, ok := lastPort(recs, identity); ok && rng.Contains(port) {
		return interfaces.PortAssignment{Identity: identity, Port: port}, nil
	}

	taken := make(map[int]bool, len(recs))
	for _, rec := range recs {
		taken[rec.Port] = true
	}

	for port := rng.Start; port <= rng.End; port++ {
		if taken[port] {
			continue
		}

		assignment := interfaces.PortAssignment{Identity: identity, Port: port}
		if err := l.appendLocked(assignment); err != nil {
			return interfaces.PortAssignment{}, err
		}

		l.log.Info("Assigned port",
			slog.String("identity", identity.String()),
			slog.Int("port", port))
		return assignment, nil
	}

	return interfaces.PortAssignment{}, fmt.Errorf("%w: no free port in %s", interfaces.ErrPortRangeExhausted, rng)
}

// Claim records an explicitly chosen port after checking range membership
// and collisions. Claiming the port the identity already holds succeeds
// without a new record.
func (l *Ledger) Claim(identity interfaces.ModuleIdentity, port int, rng interfaces.PortRange) (interfaces.PortAssignment, error) {
	if !rng.Contains(port) {
		return interfaces.PortAssignment{}, fmt.Errorf("%w: port %d not in %s", interfaces.ErrPortOutOfRange, port, rng)
	}

	if err := l.lock.Lock(); err != nil {
		return interfaces.PortAssignment{}, fmt.Errorf("failed to lock ledger: %w", err)
	}
	defer l.lock.Unlock()

	recs, err := l.records()
	if err != nil {
		return interfaces.PortAssignment{}, err
	}

	if cur, ok := lastPort(recs, identity); ok && cur == port {
		return interfaces.PortAssignment{Identity: identity, Port: port}, nil
	}

	for _, rec := range recs {
		if rec.Port == port {
			return interfaces.PortAssignment{}, fmt.Errorf("%w: port %d held by %s", interfaces.ErrPortConflict, port, rec.Identity)
		}
	}

	assignment := interfaces.PortAssignment{Identity: identity, Port: port}
	if err := l.appendLocked(assignment); err != nil {
		return interfaces.PortAssignment{}, err
	}

	l.log.Info("Claimed port",
		slog.String("identity", identity.String()),
		slog.Int("port", port))
	return assignment, nil
}

// Append persists an assignment unconditionally.
func (l *Ledger) Append(assignment interfaces.PortAssignment) error {
	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock ledger: %w", err)
	}
	defer l.lock.Unlock()

	return l.appendLocked(assignment)
}

func (l *Ledger) appendLocked(assignment interfaces.PortAssignment) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s:%d\n", assignment.Identity, assignment.Port); err != nil {
		return fmt.Errorf("failed to append to ledger file: %w", err)
	}
	return nil
}

// records parses the ledger in file order so later records shadow earlier
// ones. Lines that do not parse are skipped, never fatal.
func (l *Ledger) records() ([]interfaces.PortAssignment, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	var out []interfaces.PortAssignment
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		idx := strings.LastIndex(line, ":")
		if idx <= 0 || idx == len(line)-1 {
			l.log.Debug("Skipping malformed ledger line", slog.String("line", line))
			continue
		}

		port, err := strconv.Atoi(line[idx+1:])
		if err != nil {
			l.log.Debug("Skipping malformed ledger line", slog.String("line", line))
			continue
		}

		identity, err := interfaces.ParseModuleIdentity(line[:idx])
		if err != nil {
			l.log.Debug("Skipping malformed ledger line", slog.String("line", line))
			continue
		}

		out = append(out, interfaces.PortAssignment{Identity: identity, Port: port})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	return out, nil
}

func lastPort(recs []interfaces.PortAssignment, identity interfaces.ModuleIdentity) (int, bool) {
	port, found := 0, false
	for _, rec := range recs {
		if rec.Identity == identity {
			port, found = rec.Port, true
		}
	}
	return port, found
}
