// Package common provides shared utilities used across the launcher:
// logger setup and build metadata.
package common

import (
	"log/slog"
	"os"
)

// LoggingOpts contains the configuration options for the logger.
type LoggingOpts struct {
	// Debug enables debug level logging.
	Debug bool

	// JSON enables JSON formatted output, otherwise text.
	JSON bool

	// Service is added as a 'service' tag to all log lines, if set.
	Service string

	// Version is added as a 'version' tag to all log lines, if set.
	Version string
}

// SetupLogger creates a configured slog logger writing to stderr.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}

	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}
