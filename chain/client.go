package chain

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/mosaicnet/subnet-launcher/interfaces"
)

// DefaultBinary is the chain CLI executable resolved via PATH.
const DefaultBinary = "comx"

// DefaultCallTimeout bounds a single CLI invocation.
const DefaultCallTimeout = 60 * time.Second

// Config holds the invocation settings for the external chain CLI.
type Config struct {
	// Binary overrides the chain CLI executable.
	Binary string

	// Testnet prepends the CLI's global testnet switch to every call.
	Testnet bool

	// CallTimeout bounds a single CLI invocation.
	CallTimeout time.Duration

	Log *slog.Logger
}

// Client shells out to the chain CLI. Every method is exactly one
// subcommand invocation with a bounded timeout; there are no retries.
type Client struct {
	bin     string
	testnet bool
	timeout time.Duration
	log     *slog.Logger
}

// NewClient creates a chain client from cfg, applying defaults for the
// binary name and call timeout.
func NewClient(cfg *Config) *Client {
	bin := cfg.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Client{bin: bin, testnet: cfg.Testnet, timeout: timeout, log: cfg.Log}
}

// CreateKey creates a named key in the CLI's local keyring.
func (c *Client) CreateKey(ctx context.Context, name string) error {
	if _, err := c.run(ctx, "key", "create", name); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrKeyCreateFailed, err)
	}
	return nil
}

var (
	addressRe = regexp.MustCompile(`(?i)['"]?address['"]?\s*[:=]\s*['"]?([0-9a-zA-Z.:-]+)`)
	stakeRe   = regexp.MustCompile(`(?i)['"]?stake['"]?\s*[:=]\s*['"]?([0-9]+(?:\.[0-9]+)?)`)
)

// ModuleInfo queries the subnet for a module. A failed query reports the
// module as absent rather than returning an error; the output of a
// successful query is parsed leniently for address and stake fields.
func (c *Client) ModuleInfo(ctx context.Context, identity interfaces.ModuleIdentity, netuid int) (interfaces.ModuleInfo, error) {
	out, err := c.run(ctx, "module", "info", identity.String(), "--netuid", strconv.Itoa(netuid))
	if err != nil {
		c.log.Debug("Module lookup failed, treating as unregistered",
			slog.String("identity", identity.String()), "err", err)
		return interfaces.ModuleInfo{}, nil
	}

	info := interfaces.ModuleInfo{Found: true, Raw: out}
	if m := addressRe.FindStringSubmatch(out); m != nil {
		info.Address = m[1]
	}
	if m := stakeRe.FindStringSubmatch(out); m != nil {
		if stake, _, err := apd.NewFromString(m[1]); err == nil {
			info.Stake = stake
		}
	}
	return info, nil
}

// Register announces the module's advertised endpoint on the subnet.
func (c *Client) Register(ctx context.Context, identity interfaces.ModuleIdentity, key string, netuid int, ip string, port int) error {
	_, err := c.run(ctx,
		"module", "register",
		"--ip", ip,
		"--port", strconv.Itoa(port),
		identity.String(), key, strconv.Itoa(netuid))
	return err
}

// UpdateModule adjusts the endpoint, delegation fee or metadata of an
// already registered module. Zero-valued fields are omitted from the
// command line.
func (c *Client) UpdateModule(ctx context.Context, identity interfaces.ModuleIdentity, key string, update interfaces.ModuleUpdate) error {
	args := []string{"module", "update", identity.String(), key}
	if update.IP != "" {
		args = append(args, "--ip", update.IP)
	}
	if update.Port != 0 {
		args = append(args, "--port", strconv.Itoa(update.Port))
	}
	if update.DelegationFee != 0 {
		args = append(args, "--delegation-fee", strconv.Itoa(update.DelegationFee))
	}
	if update.Metadata != "" {
		args = append(args, "--metadata", update.Metadata)
	}

	_, err := c.run(ctx, args...)
	return err
}

// Transfer moves free balance to another key. The submitted amount is
// passed through unchanged.
func (c *Client) Transfer(ctx context.Context, key string, amount *apd.Decimal, dest string) error {
	_, err := c.run(ctx, "balance", "transfer", key, amount.Text('f'), dest)
	return err
}

// Stake delegates balance to a module.
func (c *Client) Stake(ctx context.Context, key string, amount *apd.Decimal, dest string) error {
	_, err := c.run(ctx, "balance", "stake", key, amount.Text('f'), dest)
	return err
}

// Unstake withdraws delegated balance from a module.
func (c *Client) Unstake(ctx context.Context, key string, amount *apd.Decimal, dest string) error {
	_, err := c.run(ctx, "balance", "unstake", key, amount.Text('f'), dest)
	return err
}

var decimalRe = regexp.MustCompile(`[0-9]+(\.[0-9]+)?`)

// FreeBalance returns the key's liquid balance. The CLI prints the number
// with a unit suffix and occasional decoration; the first decimal in the
// output is taken. A failed query or output without a parseable number is
// reported as a zero balance, never as an error, so callers can quote a
// stake even when the key does not exist on chain yet.
func (c *Client) FreeBalance(ctx context.Context, key string) (*apd.Decimal, error) {
	out, err := c.run(ctx, "balance", "free-balance", key)
	if err != nil {
		c.log.Warn("Balance query failed, assuming zero", slog.String("key", key), "err", err)
		return apd.New(0, 0), nil
	}

	match := decimalRe.FindString(out)
	if match == "" {
		c.log.Warn("Unparseable balance output, assuming zero", slog.String("output", out))
		return apd.New(0, 0), nil
	}

	balance, _, err := apd.NewFromString(match)
	if err != nil {
		c.log.Warn("Unparseable balance output, assuming zero", slog.String("output", out))
		return apd.New(0, 0), nil
	}
	return balance, nil
}

// run executes one CLI invocation and returns trimmed stdout. Failures wrap
// ErrChainCommand with stderr attached.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.testnet {
		args = append([]string{"--testnet"}, args...)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.log.Debug("Running chain command",
		slog.String("bin", c.bin),
		slog.String("args", strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = strings.TrimSpace(stdout.String())
		}
		return "", fmt.Errorf("%w: %s %s: %v: %s",
			interfaces.ErrChainCommand, c.bin, strings.Join(args, " "), err, detail)
	}

	return strings.TrimSpace(stdout.String()), nil
}
