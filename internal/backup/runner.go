package backup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/albums"
	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/quota"
	"github.com/bnema/photup/internal/state"
	"github.com/bnema/photup/internal/uploader"
)

// largeBackupThreshold triggers a multi-day warning during scope estimation.
const largeBackupThreshold = 9000

// Options selects album policy and naming for one run.
type Options struct {
	SkipExisting  bool
	MergeExisting bool
	// AlbumName routes every file into one custom album instead of
	// per-directory albums.
	AlbumName string
	Naming    NamingStrategy
	DryRun    bool
}

// Policy maps the flags onto an album exists policy. Stop is the default.
func (o Options) Policy() albums.ExistsPolicy {
	switch {
	case o.SkipExisting:
		return albums.PolicySkip
	case o.MergeExisting:
		return albums.PolicyMerge
	default:
		return albums.PolicyStop
	}
}

// Summary aggregates a whole run.
type Summary struct {
	Uploaded    int
	Skipped     int
	Failed      int
	Directories int
	Interrupted bool
	StopReason  string
	// AlbumPreview maps album name to file count; only filled on dry runs.
	AlbumPreview map[string]int
}

// Runner drives one backup run over a directory tree, strictly sequentially.
// On dry runs the albums manager and uploader may be nil.
type Runner struct {
	cfg    *config.Config
	store  *state.Store
	quota  *quota.Tracker
	albums *albums.Manager
	up     *uploader.Uploader
	log    zerolog.Logger
}

// NewRunner wires a runner from already-built components.
func NewRunner(cfg *config.Config, store *state.Store, tracker *quota.Tracker, albumMgr *albums.Manager, up *uploader.Uploader, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		quota:  tracker,
		albums: albumMgr,
		up:     up,
		log:    logger.With().Str("component", "backup").Logger(),
	}
}

// Run walks the tree and processes every media directory. Interruption via
// ctx is a first-class outcome: progress is saved and the summary reports it.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	base := r.store.BaseDirectory()
	summary := &Summary{AlbumPreview: make(map[string]int)}

	if last := r.store.LastProcessedDirectory(); last != "" {
		r.log.Info().
			Str("last_processed", last).
			Int("uploaded_so_far", r.store.UploadedCount()).
			Msg("resuming previous backup")
	}
	if reason := r.store.Session().StopReason; reason != "" {
		r.log.Info().Str("reason", reason).Msg("previous run stopped")
	}

	r.store.StartNewSession()

	totalFiles, totalDirs := EstimateScope(base)
	remaining := totalFiles - r.store.UploadedCount()
	if remaining < 0 {
		remaining = 0
	}
	estimated := quota.EstimateBackupRequests(totalFiles, totalDirs, 0)
	r.log.Info().
		Int("files", totalFiles).
		Int("already_uploaded", r.store.UploadedCount()).
		Int("remaining", remaining).
		Int("directories", totalDirs).
		Int("estimated_requests", estimated).
		Msg("backup scope")
	if !opts.DryRun && estimated > largeBackupThreshold {
		r.log.Warn().Msg("large backup: this may take multiple days to complete")
	}

	dirs, err := MediaDirectories(base)
	if err != nil {
		return summary, fmt.Errorf("walking %s: %w", base, err)
	}
	if len(dirs) == 0 {
		r.log.Warn().Msg("no directories with supported media files found")
		return summary, nil
	}
	r.log.Info().Int("directories", len(dirs)).Msg("directories to process")

	if !opts.DryRun {
		r.up.SetTotalFiles(totalFiles)
		if err := r.albums.LoadExisting(ctx); err != nil {
			return summary, fmt.Errorf("loading existing albums: %w", err)
		}
	}
	r.log.Info().Str("policy", string(opts.Policy())).Msg("album exists policy")

	// A custom album name funnels every file into one album, created once.
	customAlbumID := ""
	if opts.AlbumName != "" && !opts.DryRun {
		id, created, err := r.albums.GetOrCreate(ctx, opts.AlbumName, opts.Policy())
		if err != nil {
			return summary, fmt.Errorf("resolving album %q: %w", opts.AlbumName, err)
		}
		if id == "" {
			r.log.Info().Str("album", opts.AlbumName).Msg("album exists, skipping per policy")
			return summary, nil
		}
		if created {
			r.log.Info().Str("album", opts.AlbumName).Str("id", id).Msg("created album")
		}
		customAlbumID = id
	}

	for _, dir := range dirs {
		if ctx.Err() != nil {
			r.interrupt(summary)
			break
		}

		r.store.SetLastProcessedDirectory(dir)
		ok := r.processDirectory(ctx, dir, customAlbumID, opts, summary)
		r.store.Save()

		if !ok {
			reason := fmt.Sprintf("Failed to process directory: %s", dir)
			r.store.SetStopReason(reason)
			summary.StopReason = reason
			r.store.Save()
			break
		}
		if !opts.DryRun && !r.quota.Status().CanContinue {
			summary.StopReason = r.store.Session().StopReason
			break
		}
	}

	if summary.StopReason == "" {
		summary.StopReason = r.store.Session().StopReason
	}
	r.logSummary(opts, summary)
	return summary, nil
}

// processDirectory resolves the directory's album and uploads its files.
// It returns false only on album failures that should halt the run.
func (r *Runner) processDirectory(ctx context.Context, dir, customAlbumID string, opts Options, summary *Summary) bool {
	base := r.store.BaseDirectory()

	albumName := opts.AlbumName
	if albumName == "" {
		albumName = AlbumName(base, dir, opts.Naming)
	}

	_, supported := uploader.CountDirectoryMedia(dir)
	if supported == 0 {
		return true
	}
	summary.Directories++
	r.log.Info().Str("dir", dir).Str("album", albumName).Int("files", supported).Msg("processing directory")

	if opts.DryRun {
		summary.AlbumPreview[albumName] += supported
		summary.Skipped += supported
		return true
	}

	albumID := customAlbumID
	if albumID == "" {
		id, created, err := r.albums.GetOrCreate(ctx, albumName, opts.Policy())
		if err != nil {
			if errors.Is(err, albums.ErrAlbumExists) {
				r.log.Error().Str("album", albumName).Msg("album already exists, halting per policy")
			} else {
				r.log.Error().Err(err).Str("album", albumName).Msg("cannot resolve album")
			}
			summary.Failed += supported
			return false
		}
		if id == "" {
			r.log.Info().Str("album", albumName).Msg("skipping existing album")
			summary.Skipped += supported
			return true
		}
		if created {
			r.log.Info().Str("album", albumName).Str("id", id).Msg("created album")
		} else {
			r.log.Info().Str("album", albumName).Str("id", id).Msg("using existing album")
		}
		albumID = id
	}

	res := r.up.UploadDirectory(ctx, dir, albumID)
	summary.Uploaded += res.Uploaded
	summary.Skipped += res.Skipped
	summary.Failed += res.Failed
	if res.Halted && ctx.Err() != nil {
		summary.Interrupted = true
	}
	return true
}

func (r *Runner) interrupt(summary *Summary) {
	summary.Interrupted = true
	r.store.SetStopReason("Interrupted by user")
	summary.StopReason = "Interrupted by user"
	r.store.Save()
	r.log.Info().Msg("interrupted, progress saved")
}

func (r *Runner) logSummary(opts Options, s *Summary) {
	ev := r.log.Info().
		Int("uploaded", s.Uploaded).
		Int("skipped", s.Skipped).
		Int("failed", s.Failed).
		Int("directories", s.Directories)
	if s.StopReason != "" {
		ev = ev.Str("stop_reason", s.StopReason)
	}
	ev.Msg("backup finished")

	if !opts.DryRun {
		r.log.Info().Msg(r.quota.Summary())
		if r.albums != nil {
			r.log.Info().Msg(r.albums.Summary())
		}
	}
}
