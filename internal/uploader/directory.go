package uploader

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/logging"
	"github.com/bnema/photup/internal/quota"
)

// BatchResult aggregates one directory's outcomes.
type BatchResult struct {
	Uploaded int
	Skipped  int
	Failed   int
	// Halted is set when the batch stopped early on quota exhaustion or
	// cancellation; remaining files were left untouched.
	Halted bool
}

// UploadDirectory uploads every supported file directly inside dir, in
// sorted order, saving state after each file. The batch halts the moment a
// quota gate fails or the context is cancelled, leaving the remaining files
// for the next run.
func (u *Uploader) UploadDirectory(ctx context.Context, dir, albumID string) BatchResult {
	var res BatchResult

	// Batch-level messages go through the context logger so they carry the
	// caller's fields plus this directory.
	ctx = logging.WithComponent(logging.WithDirectory(ctx, dir), "uploader")
	log := logging.FromContext(ctx)

	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		log.Error().Msg("directory does not exist")
		res.Failed++
		return res
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error().Err(err).Msg("cannot read directory")
		res.Failed++
		return res
	}

	var files []string
	supported := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
			if config.IsSupportedFile(e.Name()) {
				supported++
			}
		}
	}
	sort.Strings(files)

	if supported == 0 {
		log.Info().Msg("no supported media files")
		res.Skipped = len(files)
		return res
	}
	log.Info().Int("files", supported).Msg("uploading directory")

	for _, path := range files {
		if ctx.Err() != nil {
			u.store.SetStopReason("Interrupted by user")
			res.Halted = true
			break
		}

		if ok, reason := u.quota.CanPerform(quota.OpUploadFile, 0); !ok {
			log.Warn().Str("reason", reason).Msg("stopping uploads")
			u.store.SetStopReason(reason)
			res.Halted = true
			break
		}

		switch r := u.UploadFile(ctx, path, albumID); r.Outcome {
		case Uploaded:
			res.Uploaded++
		case Skipped:
			log.Debug().Str("file", filepath.Base(path)).Str("reason", r.Reason).Msg("skipped")
			res.Skipped++
		case Failed:
			res.Failed++
		}

		u.store.Save()
	}

	log.Info().
		Int("uploaded", res.Uploaded).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Msg("directory complete")
	return res
}

// CountDirectoryMedia counts the regular files directly inside dir and how
// many of them are supported media.
func CountDirectoryMedia(dir string) (total, supported int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		total++
		if config.IsSupportedFile(e.Name()) {
			supported++
		}
	}
	return total, supported
}
