// Package supervisor adapts an external pm2-style process manager into the
// ProcessSupervisor interface. Module processes are tracked by name; the
// manager owns restarts and log capture.
package supervisor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// DefaultBinary is the process manager executable resolved via PATH.
const DefaultBinary = "pm2"

// Config holds the invocation settings for the process manager CLI.
type Config struct {
	// Binary overrides the process manager executable.
	Binary string

	Log *slog.Logger
}

// PM2 supervises module processes through the pm2 command line.
type PM2 struct {
	bin string
	log *slog.Logger
}

// NewPM2 creates a supervisor from cfg, applying the default binary name.
func NewPM2(cfg *Config) *PM2 {
	bin := cfg.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	return &PM2{bin: bin, log: cfg.Log}
}

// Start launches argv as a named supervised process with env merged over
// the parent environment. The interpreter is disabled so argv[0] runs as a
// plain executable.
func (p *PM2) Start(ctx context.Context, name string, argv []string, env map[string]string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command for %s", interfaces.ErrSupervisor, name)
	}

	args := []string{"start", argv[0], "--name", name, "--interpreter", "none"}
	if len(argv) > 1 {
		args = append(args, "--")
		args = append(args, argv[1:]...)
	}

	out, err := p.run(ctx, env, args...)
	if err != nil {
		return fmt.Errorf("%w: start %s: %v: %s", interfaces.ErrSupervisor, name, err, out)
	}

	p.log.Info("Started process", slog.String("name", name))
	return nil
}

// Delete stops and removes a named process. A process unknown to the
// manager counts as already deleted.
func (p *PM2) Delete(ctx context.Context, name string) error {
	out, err := p.run(ctx, nil, "delete", name)
	if err != nil {
		if strings.Contains(strings.ToLower(out), "not found") {
			p.log.Debug("Process already absent", slog.String("name", name))
			return nil
		}
		return fmt.Errorf("%w: delete %s: %v: %s", interfaces.ErrSupervisor, name, err, out)
	}

	p.log.Info("Deleted process", slog.String("name", name))
	return nil
}

// run executes one manager invocation, returning combined trimmed output.
func (p *PM2) run(ctx context.Context, env map[string]string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, p.bin, args...)
	if env != nil {
		cmd.Env = mergedEnv(env)
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	p.log.Debug("Running supervisor command",
		slog.String("bin", p.bin),
		slog.String("args", strings.Join(args, " ")))

	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}

// mergedEnv appends extra entries to the parent environment. Duplicate
// keys resolve to the appended value.
func mergedEnv(extra map[string]string) []string {
	env := os.Environ()
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}
