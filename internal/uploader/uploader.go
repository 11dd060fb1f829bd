// Package uploader drives per-file uploads through a small state machine:
// validate, dedup against persisted state, quota gate, byte transfer, and
// media-item creation. Every file lands in exactly one terminal outcome.
package uploader

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/photos"
	"github.com/bnema/photup/internal/quota"
	"github.com/bnema/photup/internal/state"
)

// Outcome is a file's terminal state.
type Outcome int

const (
	// Uploaded means the file now exists in the remote library.
	Uploaded Outcome = iota
	// Skipped means no upload was needed or possible without error:
	// already uploaded, unsupported, empty, or oversized. Skips are never
	// retried and never counted as errors.
	Skipped
	// Failed means the upload was attempted and did not complete. The path
	// is recorded for a later retry.
	Failed
)

// Result describes one file's outcome. Reason carries the skip cause or the
// failure message.
type Result struct {
	Outcome     Outcome
	MediaItemID string
	Reason      string
}

// Uploader uploads single files and directory batches sequentially.
type Uploader struct {
	svc   photos.Service
	store *state.Store
	quota *quota.Tracker
	cfg   *config.Config
	log   zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error

	totalFiles int
}

// New builds an Uploader.
func New(svc photos.Service, store *state.Store, tracker *quota.Tracker, cfg *config.Config, logger zerolog.Logger) *Uploader {
	return &Uploader{
		svc:   svc,
		store: store,
		quota: tracker,
		cfg:   cfg,
		log:   logger.With().Str("component", "uploader").Logger(),
		sleep: sleepCtx,
	}
}

// SetTotalFiles sets the run-wide file count used for progress logging.
func (u *Uploader) SetTotalFiles(n int) { u.totalFiles = n }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (u *Uploader) backoff(attempt int) time.Duration {
	return time.Duration(float64(u.cfg.Upload.RetryDelay) * math.Pow(u.cfg.Upload.BackoffFactor, float64(attempt)))
}

// UploadFile runs the full state machine for one file and records the
// outcome in the state store. albumID may be empty for library-only uploads.
func (u *Uploader) UploadFile(ctx context.Context, path, albumID string) Result {
	if res, terminal := u.validate(path); terminal {
		return u.record(path, albumID, res)
	}

	if u.store.IsUploaded(path) {
		u.log.Debug().Str("file", path).Msg("already uploaded, skipping")
		return u.record(path, albumID, Result{Outcome: Skipped, Reason: "already uploaded"})
	}

	if ok, reason := u.quota.CanPerform(quota.OpUploadFile, 0); !ok {
		return u.record(path, albumID, Result{Outcome: Failed, Reason: "quota limit: " + reason})
	}

	u.logProgress(path)

	token, err := u.uploadBytes(ctx, path)
	if err != nil {
		return u.record(path, albumID, Result{Outcome: Failed, Reason: "failed to upload file bytes: " + err.Error()})
	}

	mediaItemID, err := u.createMediaItem(ctx, path, token, albumID)
	if err != nil {
		return u.record(path, albumID, Result{Outcome: Failed, Reason: "failed to create media item: " + err.Error()})
	}

	u.log.Info().Str("file", filepath.Base(path)).Str("media_item", mediaItemID).Msg("uploaded")
	return u.record(path, albumID, Result{Outcome: Uploaded, MediaItemID: mediaItemID})
}

// record writes the outcome into the state store, keeping the success and
// failure maps mutually exclusive.
func (u *Uploader) record(path, albumID string, res Result) Result {
	switch res.Outcome {
	case Uploaded:
		u.store.MarkFileUploaded(path, res.MediaItemID, albumID)
	case Failed:
		u.log.Error().Str("file", filepath.Base(path)).Str("reason", res.Reason).Msg("upload failed")
		u.store.MarkFileFailed(path, res.Reason)
	case Skipped:
		u.store.MarkFileSkipped()
	}
	return res
}

// validate checks existence, regularity, extension, and the type-specific
// size ceiling. The second return reports whether the result is terminal.
func (u *Uploader) validate(path string) (Result, bool) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Outcome: Failed, Reason: "file does not exist"}, true
		}
		return Result{Outcome: Failed, Reason: "cannot access file: " + err.Error()}, true
	}
	if !fi.Mode().IsRegular() {
		return Result{Outcome: Failed, Reason: "path is not a regular file"}, true
	}
	if !config.IsSupportedFile(path) {
		return Result{Outcome: Skipped, Reason: "unsupported file format"}, true
	}
	if fi.Size() == 0 {
		return Result{Outcome: Skipped, Reason: "empty file"}, true
	}
	if max := u.cfg.MaxFileSize(path); fi.Size() > max {
		return Result{
			Outcome: Skipped,
			Reason:  fmt.Sprintf("file too large: %s > %s", formatSize(fi.Size()), formatSize(max)),
		}, true
	}
	return Result{}, false
}

// uploadBytes transfers the raw bytes with bounded exponential backoff. The
// transfer does not consume quota; only media-item creation does.
func (u *Uploader) uploadBytes(ctx context.Context, path string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= u.cfg.Upload.MaxRetries; attempt++ {
		token, err := u.svc.UploadBytes(ctx, path)
		if err == nil {
			return token, nil
		}
		lastErr = err

		// A 401 here means the client already refreshed the token once and
		// the replay still failed; more attempts cannot help.
		if photos.IsUnauthorized(err) {
			return "", fmt.Errorf("authorization expired: %w", err)
		}
		if photos.IsRateLimited(err) {
			u.log.Warn().Str("file", filepath.Base(path)).Dur("wait", u.backoff(attempt)).Msg("rate limited uploading bytes")
		} else {
			u.log.Error().Err(err).Str("file", filepath.Base(path)).Int("attempt", attempt+1).Msg("byte upload failed")
		}
		if attempt < u.cfg.Upload.MaxRetries {
			if err := u.sleep(ctx, u.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", u.cfg.Upload.MaxRetries+1, lastErr)
}

// createMediaItem turns the upload token into a library item. The API call
// consumes one quota unit, recorded after the call returns; an exhausted
// budget aborts the file even when the item was created.
func (u *Uploader) createMediaItem(ctx context.Context, path, token, albumID string) (string, error) {
	filename := filepath.Base(path)

	var lastErr error
	for attempt := 0; attempt <= u.cfg.Upload.MaxRetries; attempt++ {
		resp, err := u.svc.CreateMediaItem(ctx, token, filename, albumID)
		if err == nil {
			if !u.quota.RecordRequests(1) {
				return "", fmt.Errorf("quota exhausted during media item creation")
			}
			if id := extractMediaItemID(resp); id != "" {
				return id, nil
			}
			lastErr = fmt.Errorf("no successful media item in response")
			u.log.Error().Str("file", filename).Msg(lastErr.Error())
		} else {
			lastErr = err
			if photos.IsUnauthorized(err) {
				return "", fmt.Errorf("authorization expired: %w", err)
			}
			if photos.IsRateLimited(err) {
				u.log.Warn().Str("file", filename).Dur("wait", u.backoff(attempt)).Msg("rate limited creating media item")
			} else {
				u.log.Error().Err(err).Str("file", filename).Int("attempt", attempt+1).Msg("media item creation failed")
			}
		}

		if attempt < u.cfg.Upload.MaxRetries {
			if err := u.sleep(ctx, u.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", u.cfg.Upload.MaxRetries+1, lastErr)
}

func extractMediaItemID(resp *photos.BatchCreateResponse) string {
	for i := range resp.NewMediaItemResults {
		r := &resp.NewMediaItemResults[i]
		if r.Succeeded() && r.MediaItem != nil && r.MediaItem.ID != "" {
			return r.MediaItem.ID
		}
	}
	return ""
}

func (u *Uploader) logProgress(path string) {
	ev := u.log.Info().Str("file", filepath.Base(path))
	if u.totalFiles > 0 {
		remaining := u.totalFiles - u.store.UploadedCount()
		if remaining < 0 {
			remaining = 0
		}
		ev = ev.Int("remaining", remaining)
	}
	if fi, err := os.Stat(path); err == nil {
		ev = ev.Str("size", formatSize(fi.Size()))
	}
	ev.Msg("uploading")
}

func formatSize(size int64) string {
	s := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if s < 1024 {
			return fmt.Sprintf("%.1f%s", s, unit)
		}
		s /= 1024
	}
	return fmt.Sprintf("%.1fTB", s)
}
