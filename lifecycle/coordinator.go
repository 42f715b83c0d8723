package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// DefaultBindHost is the address module servers bind to. Peers dial the
// registered IP; the bind address stays local to the machine.
const DefaultBindHost = "0.0.0.0"

// DefaultModserverBin is the module server executable resolved via PATH.
const DefaultModserverBin = "modserver"

// Rate limit overrides injected by TestServe.
const (
	testServeRPS   = "1000"
	testServeBurst = "1000"
)

// CoordinatorConfig wires the coordinator's process settings.
type CoordinatorConfig struct {
	// ModserverBin overrides the module server executable started under
	// the supervisor.
	ModserverBin string

	// BindHost overrides the local listen address passed to module servers.
	BindHost string

	Log *slog.Logger
}

// Coordinator composes registration with process supervision: deploy is
// register-then-serve, serve replaces the module's supervised process.
type Coordinator struct {
	orch       *Orchestrator
	supervisor interfaces.ProcessSupervisor
	ledger     interfaces.PortAllocator
	modserver  string
	bindHost   string
	log        *slog.Logger
}

// NewCoordinator creates a coordinator over an orchestrator and a process
// supervisor, applying executable and bind defaults.
func NewCoordinator(orch *Orchestrator, sup interfaces.ProcessSupervisor, ledger interfaces.PortAllocator, cfg *CoordinatorConfig) *Coordinator {
	modserver := cfg.ModserverBin
	if modserver == "" {
		modserver = DefaultModserverBin
	}
	bindHost := cfg.BindHost
	if bindHost == "" {
		bindHost = DefaultBindHost
	}

	return &Coordinator{
		orch:       orch,
		supervisor: sup,
		ledger:     ledger,
		modserver:  modserver,
		bindHost:   bindHost,
		log:        cfg.Log,
	}
}

// Deploy registers the module and starts serving it.
func (c *Coordinator) Deploy(ctx context.Context, req RegistrationRequest) (Result, error) {
	result, err := c.orch.Register(ctx, req)
	if err != nil {
		return result, err
	}

	if err := c.Serve(ctx, req.Identity, req.Role); err != nil {
		return result, err
	}
	return result, nil
}

// Serve starts (or restarts) the module's supervised server process on its
// persisted port. The previous process of the same name is deleted first,
// so serving is idempotent.
func (c *Coordinator) Serve(ctx context.Context, identity interfaces.ModuleIdentity, role interfaces.ModuleRole) error {
	return c.serve(ctx, identity, role, nil)
}

// TestServe serves the module with relaxed rate limits injected through
// the process environment only. Nothing is persisted; a regular serve
// restores the defaults.
func (c *Coordinator) TestServe(ctx context.Context, identity interfaces.ModuleIdentity, role interfaces.ModuleRole) error {
	return c.serve(ctx, identity, role, map[string]string{
		interfaces.EnvRateLimitRPS:   testServeRPS,
		interfaces.EnvRateLimitBurst: testServeBurst,
	})
}

func (c *Coordinator) serve(ctx context.Context, identity interfaces.ModuleIdentity, role interfaces.ModuleRole, env map[string]string) error {
	port, err := c.ledger.Lookup(identity)
	if err != nil {
		if errors.Is(err, interfaces.ErrAssignmentNotFound) {
			return fmt.Errorf("%w: %s has no port assignment, register it first", interfaces.ErrNotRegistered, identity)
		}
		return err
	}

	name := identity.String()
	if err := c.supervisor.Delete(ctx, name); err != nil {
		return err
	}

	argv := []string{
		c.modserver,
		role.String(),
		"--identity", name,
		"--host", c.bindHost,
		"--port", strconv.Itoa(port),
	}

	c.log.Info("Starting module server",
		slog.String("identity", name),
		slog.String("role", role.String()),
		slog.String("host", c.bindHost),
		slog.Int("port", port))
	return c.supervisor.Start(ctx, name, argv, env)
}
