package main

import (
	"log"
	"os"

	"github.com/mosaicnet/subnet-launcher/chain"
	"github.com/mosaicnet/subnet-launcher/cmd/flags"
	"github.com/mosaicnet/subnet-launcher/interfaces"
	"github.com/mosaicnet/subnet-launcher/lifecycle"
	"github.com/mosaicnet/subnet-launcher/supervisor"
	"github.com/urfave/cli/v2"
)

var dataDirFlag = &cli.StringFlag{
	Name:    "data-dir",
	EnvVars: []string{"MOSAIC_DATA_DIR"},
	Usage:   "directory holding the port ledger and range config (default ~/.mosaic)",
}
var keyDirFlag = &cli.StringFlag{
	Name:    "key-dir",
	EnvVars: []string{"MOSAIC_KEY_DIR"},
	Usage:   "chain CLI key directory (default ~/.commune/key)",
}
var chainCliFlag = &cli.StringFlag{
	Name:  "chain-cli",
	Value: chain.DefaultBinary,
	Usage: "chain CLI executable",
}
var pm2BinFlag = &cli.StringFlag{
	Name:  "pm2-bin",
	Value: supervisor.DefaultBinary,
	Usage: "process manager executable",
}
var modserverBinFlag = &cli.StringFlag{
	Name:  "modserver-bin",
	Value: lifecycle.DefaultModserverBin,
	Usage: "module server executable started under the supervisor",
}
var netuidFlag = &cli.IntFlag{
	Name:    "netuid",
	EnvVars: []string{"MOSAIC_NETUID"},
	Value:   14,
	Usage:   "target subnet identifier",
}
var testnetFlag = &cli.BoolFlag{
	Name:    "testnet",
	EnvVars: []string{"COMX_USE_TESTNET"},
	Usage:   "use testnet endpoints",
}
var chainTimeoutFlag = &cli.Int64Flag{
	Name:  "chain-timeout",
	Value: 60,
	Usage: "seconds to wait for a single chain CLI call",
}

var identityFlag = &cli.StringFlag{
	Name:     "identity",
	Required: true,
	Usage:    "module identity as Namespace.ClassName",
}
var ipFlag = &cli.StringFlag{
	Name:     "ip",
	Required: true,
	Usage:    "externally reachable IP announced on chain",
}
var updateIPFlag = &cli.StringFlag{
	Name:  "ip",
	Usage: "externally reachable IP announced on chain",
}
var portFlag = &cli.IntFlag{
	Name:  "port",
	Usage: "claim this exact port instead of scanning the range",
}
var keyNameFlag = &cli.StringFlag{
	Name:  "key",
	Usage: "chain key name (defaults to the module identity)",
}
var stakeFlag = &cli.StringFlag{
	Name:  "stake",
	Usage: "amount to stake after registration",
}
var updateFlag = &cli.BoolFlag{
	Name:  "update",
	Usage: "run the module update sub-flow once registration is confirmed",
}
var roleFlag = &cli.StringFlag{
	Name:  "role",
	Value: "validator",
	Usage: "module role (miner or validator)",
}
var delegationFeeFlag = &cli.IntFlag{
	Name:  "delegation-fee",
	Value: 20,
	Usage: "delegation fee percentage for the update sub-flow",
}
var metadataFlag = &cli.StringFlag{
	Name:  "metadata",
	Usage: "metadata URI for the update sub-flow",
}
var testServeFlag = &cli.BoolFlag{
	Name:  "test",
	Usage: "serve with relaxed rate limits for local smoke tests",
}
var startPortFlag = &cli.IntFlag{
	Name:     "start",
	Required: true,
	Usage:    "first port of the allocation range",
}
var endPortFlag = &cli.IntFlag{
	Name:     "end",
	Required: true,
	Usage:    "last port of the allocation range",
}
var fundsKeyFlag = &cli.StringFlag{
	Name:     "key",
	Required: true,
	Usage:    "chain key name",
}
var amountFlag = &cli.StringFlag{
	Name:     "amount",
	Required: true,
	Usage:    "amount as a decimal string",
}
var destFlag = &cli.StringFlag{
	Name:     "dest",
	Required: true,
	Usage:    "destination key or address",
}

var globalFlags = []cli.Flag{
	dataDirFlag,
	keyDirFlag,
	chainCliFlag,
	pm2BinFlag,
	modserverBinFlag,
	netuidFlag,
	testnetFlag,
	chainTimeoutFlag,
	flags.LogJsonFlag,
	flags.LogDebugFlag,
	flags.LogUidFlag,
	flags.LogServiceFlagFn("subnet-launcher"),
}

var registerFlags = []cli.Flag{
	identityFlag,
	ipFlag,
	portFlag,
	keyNameFlag,
	stakeFlag,
	updateFlag,
	delegationFeeFlag,
	metadataFlag,
}

var updateFlags = []cli.Flag{
	identityFlag,
	updateIPFlag,
	keyNameFlag,
	roleFlag,
	delegationFeeFlag,
	metadataFlag,
}

var serveFlags = []cli.Flag{
	identityFlag,
	testServeFlag,
}

var fundsFlags = []cli.Flag{
	fundsKeyFlag,
	amountFlag,
	destFlag,
}

// withLauncher builds the launcher from the global flags before running
// the command.
func withLauncher(fn func(l *Launcher, cCtx *cli.Context) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		l, err := newLauncher(cCtx)
		if err != nil {
			return err
		}
		return fn(l, cCtx)
	}
}

func main() {
	app := &cli.App{
		Name:  "subnet-launcher",
		Usage: "Register, stake and serve subnet modules",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:  "register-miner",
				Usage: "create the key, assign a port and register a miner on chain",
				Flags: registerFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.RegisterModule(cCtx, interfaces.RoleMiner, false)
				}),
			},
			{
				Name:  "register-validator",
				Usage: "create the key, assign a port and register a validator on chain",
				Flags: registerFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.RegisterModule(cCtx, interfaces.RoleValidator, false)
				}),
			},
			{
				Name:  "deploy-miner",
				Usage: "register a miner and start it under the supervisor",
				Flags: registerFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.RegisterModule(cCtx, interfaces.RoleMiner, true)
				}),
			},
			{
				Name:  "deploy-validator",
				Usage: "register a validator and start it under the supervisor",
				Flags: registerFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.RegisterModule(cCtx, interfaces.RoleValidator, true)
				}),
			},
			{
				Name:  "serve-miner",
				Usage: "start a registered miner under the supervisor",
				Flags: serveFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.ServeModule(cCtx, interfaces.RoleMiner)
				}),
			},
			{
				Name:  "serve-validator",
				Usage: "start a registered validator under the supervisor",
				Flags: serveFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.ServeModule(cCtx, interfaces.RoleValidator)
				}),
			},
			{
				Name:  "update-module",
				Usage: "update a registered module's address, delegation fee or metadata",
				Flags: updateFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.UpdateModule(cCtx)
				}),
			},
			{
				Name:  "configure-port-range",
				Usage: "set the port allocation range for future registrations",
				Flags: []cli.Flag{startPortFlag, endPortFlag},
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.ConfigurePortRange(cCtx)
				}),
			},
			{
				Name:  "transfer-balance",
				Usage: "transfer balance to another key",
				Flags: fundsFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.TransferBalance(cCtx)
				}),
			},
			{
				Name:  "unstake-and-transfer",
				Usage: "unstake from a module and forward the amount to another key",
				Flags: fundsFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.UnstakeAndTransfer(cCtx)
				}),
			},
			{
				Name:  "transfer-and-stake",
				Usage: "transfer to another key and stake the amount onto it",
				Flags: fundsFlags,
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.TransferAndStake(cCtx)
				}),
			},
			{
				Name:  "show-state",
				Usage: "print how far a module's registration has progressed",
				Flags: []cli.Flag{identityFlag, keyNameFlag},
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.ShowState(cCtx)
				}),
			},
			{
				Name:  "free-balance",
				Usage: "print a key's free balance",
				Flags: []cli.Flag{fundsKeyFlag},
				Action: withLauncher(func(l *Launcher, cCtx *cli.Context) error {
					return l.FreeBalance(cCtx)
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
