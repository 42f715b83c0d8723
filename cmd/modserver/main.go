package main

import (
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/mosaicnet/subnet-launcher/cmd/flags"
	"github.com/mosaicnet/subnet-launcher/httpserver"
	"github.com/mosaicnet/subnet-launcher/interfaces"
	"github.com/urfave/cli/v2"
)

var identityFlag = &cli.StringFlag{
	Name:     "identity",
	Required: true,
	Usage:    "module identity as Namespace.ClassName",
}
var hostFlag = &cli.StringFlag{
	Name:    "host",
	Value:   "0.0.0.0",
	EnvVars: []string{"MOSAIC_HOST"},
	Usage:   "host to bind the module service to",
}
var minerPortFlag = &cli.IntFlag{
	Name:    "port",
	Value:   8080,
	EnvVars: []string{"MOSAIC_PORT"},
	Usage:   "port to run the module service on",
}
var validatorPortFlag = &cli.IntFlag{
	Name:    "port",
	Value:   8081,
	EnvVars: []string{"MOSAIC_PORT"},
	Usage:   "port to run the module service on",
}
var minerAPIURLFlag = &cli.StringFlag{
	Name:    "api-url",
	EnvVars: []string{"MOSAIC_MINER_API_URL"},
	Usage:   "OpenAI-style inference API the miner forwards generation to",
}
var minerAPIKeyFlag = &cli.StringFlag{
	Name:    "api-key",
	EnvVars: []string{"MOSAIC_MINER_API_KEY"},
	Usage:   "API key for the inference API",
}
var minerModelFlag = &cli.StringFlag{
	Name:  "model",
	Usage: "model name passed to the inference API",
}
var validatorAPIURLFlag = &cli.StringFlag{
	Name:    "api-url",
	EnvVars: []string{"MOSAIC_VALIDATOR_API_URL"},
	Usage:   "scoring API the validator forwards images to",
}
var validatorAPIKeyFlag = &cli.StringFlag{
	Name:    "api-key",
	EnvVars: []string{"MOSAIC_VALIDATOR_API_KEY"},
	Usage:   "API key for the scoring API",
}

func main() {
	app := &cli.App{
		Name:  "modserver",
		Usage: "Serve a subnet module API",
		Flags: append([]cli.Flag{
			flags.LogJsonFlag,
			flags.LogDebugFlag,
			flags.LogUidFlag,
			flags.LogServiceFlagFn("modserver"),
		}, flags.ServerFlags...),
		Commands: []*cli.Command{
			{
				Name:  "miner",
				Usage: "serve the generation endpoint",
				Flags: []cli.Flag{
					identityFlag,
					hostFlag,
					minerPortFlag,
					minerAPIURLFlag,
					minerAPIKeyFlag,
					minerModelFlag,
				},
				Action: func(cCtx *cli.Context) error {
					return runServer(cCtx, interfaces.RoleMiner, cCtx.Int(minerPortFlag.Name))
				},
			},
			{
				Name:  "validator",
				Usage: "serve the scoring endpoint",
				Flags: []cli.Flag{
					identityFlag,
					hostFlag,
					validatorPortFlag,
					validatorAPIURLFlag,
					validatorAPIKeyFlag,
				},
				Action: func(cCtx *cli.Context) error {
					return runServer(cCtx, interfaces.RoleValidator, cCtx.Int(validatorPortFlag.Name))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context, role interfaces.ModuleRole, port int) error {
	logger := flags.SetupLogger(cCtx)

	identity, err := interfaces.ParseModuleIdentity(cCtx.String(identityFlag.Name))
	if err != nil {
		logger.Error("Invalid module identity", "err", err)
		return err
	}

	apiURL := cCtx.String("api-url")
	if apiURL == "" {
		logger.Error("api-url is required", "role", role.String())
		return errors.New("api-url is required")
	}
	apiKey := cCtx.String("api-key")

	var provider httpserver.Provider
	var scorer httpserver.Scorer
	switch role {
	case interfaces.RoleMiner:
		provider = httpserver.NewRemoteProvider(apiURL, apiKey, cCtx.String(minerModelFlag.Name), nil)
	case interfaces.RoleValidator:
		scorer = httpserver.NewRemoteScorer(apiURL, apiKey, nil)
	}

	listenAddr := net.JoinHostPort(cCtx.String(hostFlag.Name), strconv.Itoa(port))
	cfg := flags.ConfigureServer(cCtx, logger, listenAddr)

	handler := httpserver.NewHandler(identity, role, provider, scorer, apiURL, logger)
	server, err := httpserver.New(cfg, handler)
	if err != nil {
		logger.Error("Failed to create server", "err", err)
		return err
	}

	logger.Info("Starting module server",
		"identity", identity.String(),
		"role", role.String(),
		"listenAddr", listenAddr)
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")

	return nil
}
