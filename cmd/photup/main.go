package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/photup/internal/cli"
	"github.com/bnema/photup/internal/logging"
)

// Build-time variables (set via ldflags).
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// First Ctrl-C cancels the context so the run saves state and exits
	// cleanly; a second one kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(version, commit, buildDate)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, cli.ErrUploadsFailed) {
			// The configured logger may never have been built, so fall back
			// to the environment-driven one.
			logger := logging.NewFromEnv()
			logger.Error().Err(err).Msg("photup failed")
		}
		os.Exit(1)
	}
}
