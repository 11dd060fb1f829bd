package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/albums"
	"github.com/bnema/photup/internal/backup"
	"github.com/bnema/photup/internal/clock"
	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/logging"
	"github.com/bnema/photup/internal/photos"
	"github.com/bnema/photup/internal/quota"
	"github.com/bnema/photup/internal/state"
	"github.com/bnema/photup/internal/uploader"
)

// ErrUploadsFailed signals that the run completed but some files did not
// upload; the process should exit non-zero without a usage dump.
var ErrUploadsFailed = errors.New("some uploads failed")

func runBackup(ctx context.Context, directory string, flags *rootFlags) error {
	if err := config.Init(); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.Get()

	logger, closeLog, err := setupLogging(cfg, flags.verbose)
	if err != nil {
		return err
	}
	defer closeLog()
	ctx = logging.WithContext(ctx, logger)

	info, err := os.Stat(directory)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", directory, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", directory)
	}

	clk, err := clock.New(cfg.Quota.ResetTimezone)
	if err != nil {
		return fmt.Errorf("invalid reset timezone %q: %w", cfg.Quota.ResetTimezone, err)
	}

	store, err := state.Open(cfg.StateDir, directory, clk, logger)
	if err != nil {
		return fmt.Errorf("failed to open backup state: %w", err)
	}

	applyResets(store, flags, logger)

	sessionMax := cfg.Quota.MaxSessionRequests
	if flags.maxRequestsSetExplicitly {
		sessionMax = flags.maxRequests
	}
	tracker := quota.New(store, sessionMax, cfg.Quota.MaxDailyRequests, logger)

	var albumMgr *albums.Manager
	var up *uploader.Uploader
	if !flags.dryRun {
		svc, err := buildService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		albumMgr = albums.New(svc, store, tracker, cfg, logger)
		up = uploader.New(svc, store, tracker, cfg, logger)
	}

	runner := backup.NewRunner(cfg, store, tracker, albumMgr, up, logger)
	summary, err := runner.Run(ctx, flags.options())
	if err != nil {
		return err
	}

	printSummary(summary, tracker, flags.dryRun)
	return exitStatus(summary)
}

// exitStatus maps a finished run onto the process outcome. Interruption is a
// clean stop even when some files failed before it; failures otherwise exit
// non-zero so scripts notice.
func exitStatus(summary *backup.Summary) error {
	if summary.Interrupted {
		return nil
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d file(s)", ErrUploadsFailed, summary.Failed)
	}
	return nil
}

// applyResets runs the state maintenance flags before the backup starts. The
// run always continues afterwards: --reset-state means "start over from
// nothing", not "wipe and quit".
func applyResets(store *state.Store, flags *rootFlags, logger zerolog.Logger) {
	changed := false
	switch {
	case flags.resetState:
		store.Reset()
		logger.Info().Str("directory", store.BaseDirectory()).Msg("backup state reset, starting fresh")
		changed = true
	case flags.resetQuotaOnly:
		store.ResetQuotaCounters()
		logger.Info().Msg("quota counters reset, upload history kept")
		changed = true
	case flags.setQuotaUsage >= 0:
		store.ResetQuotaCounters()
		store.SetDailyUsage(flags.setQuotaUsage)
		logger.Info().Int("requests", flags.setQuotaUsage).Msg("daily quota usage set")
		changed = true
	}
	if flags.clearFailures {
		store.ClearFailedUploads()
		logger.Info().Msg("failure records cleared, failed files will be retried")
		changed = true
	}
	if changed {
		store.Save()
	}
}

// buildService authenticates against the remote library, running the
// interactive authorization flow when no token is cached yet.
func buildService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (photos.Service, error) {
	auth, err := photos.NewAuthenticator(cfg.Service.CredentialsFile, cfg.Service.TokenFile, logger)
	if err != nil {
		return nil, err
	}
	if !auth.HasToken() {
		if err := auth.Authorize(ctx, os.Stdin, os.Stdout); err != nil {
			return nil, fmt.Errorf("authorization failed: %w", err)
		}
	}
	return photos.NewClient(cfg.Service, auth, logger), nil
}

func setupLogging(cfg *config.Config, verbose bool) (zerolog.Logger, func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(cfg.Logging.Level)
	if verbose {
		logCfg.Level = zerolog.DebugLevel
	}
	if cfg.Logging.Format != "" {
		logCfg.Format = cfg.Logging.Format
	}

	if cfg.Logging.EnableFileLog && cfg.Logging.LogDir != "" {
		return logging.NewWithFile(logCfg, cfg.Logging.LogDir)
	}
	return logging.New(logCfg), func() {}, nil
}
