package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/clock"
	"github.com/bnema/photup/internal/config"
)

const (
	dirPerm  = 0755
	filePerm = 0644
)

// Store owns the state document for one backup target. It loads the document
// on open, mutates it in memory, and persists it atomically on Save. A Store
// is not safe for concurrent use; the engine is strictly sequential.
type Store struct {
	path    string
	baseDir string
	clk     clock.Clock
	log     zerolog.Logger
	data    *BackupState
}

// Open resolves the state file for baseDir under stateDir and loads it.
// A missing, unreadable, corrupt, version-mismatched, or foreign document
// (different base directory) yields a fresh state; existing progress is
// only reused when the document validates cleanly.
func Open(stateDir, baseDir string, clk clock.Clock, logger zerolog.Logger) (*Store, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory: %w", err)
	}

	s := &Store{
		path:    filepath.Join(stateDir, config.StateFilename(abs)),
		baseDir: abs,
		clk:     clk,
		log:     logger.With().Str("component", "state").Logger(),
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("state file unreadable, starting fresh")
		}
		s.data = s.fresh()
		return
	}

	var loaded BackupState
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("state file corrupt, starting fresh")
		s.data = s.fresh()
		return
	}
	if !loaded.valid(s.baseDir) {
		s.log.Warn().
			Str("path", s.path).
			Str("version", loaded.StateVersion).
			Str("base_directory", loaded.BaseDirectory).
			Msg("state file invalid or for another directory, starting fresh")
		s.data = s.fresh()
		return
	}

	s.data = &loaded
	s.log.Debug().
		Str("path", s.path).
		Int("uploaded", len(loaded.UploadedFiles)).
		Int("failed", len(loaded.FailedUploads)).
		Msg("resumed existing state")
}

func (s *Store) fresh() *BackupState {
	now := s.clk.NowUTC()
	return &BackupState{
		BaseDirectory: s.baseDir,
		StateVersion:  Version,
		CreatedAt:     now,
		LastUpdated:   now,
		CurrentSession: Session{
			StartTime: now,
		},
		DailyQuota: DailyQuota{
			Date:     s.clk.Today(),
			ResetAt:  s.clk.NextMidnight(),
			Timezone: s.clk.Zone(),
		},
		UploadedFiles: make(map[string]UploadedFile),
		FailedUploads: make(map[string]FailedUpload),
		CreatedAlbums: make(map[string]string),
	}
}

// Save writes the document atomically via a temp file in the same directory
// followed by a rename. Save never fails the caller: on any I/O error it
// logs, removes the temp file, and leaves the previous document untouched.
func (s *Store) Save() {
	s.data.LastUpdated = s.clk.NowUTC()

	if err := os.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("cannot create state directory")
		return
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("cannot marshal state")
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, filePerm); err != nil {
		s.log.Error().Err(err).Str("path", tmp).Msg("cannot write state temp file")
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("cannot replace state file")
		os.Remove(tmp)
		return
	}
}

// Path returns the on-disk location of the state document.
func (s *Store) Path() string { return s.path }

// BaseDirectory returns the absolute backup target directory.
func (s *Store) BaseDirectory() string { return s.baseDir }

// StartNewSession resets the per-session counters while preserving all
// cumulative progress and the daily quota.
func (s *Store) StartNewSession() {
	s.data.CurrentSession = Session{
		StartTime: s.clk.NowUTC(),
	}
}

// Session returns a copy of the current session counters.
func (s *Store) Session() Session { return s.data.CurrentSession }

// DailyQuota returns a copy of the daily quota record.
func (s *Store) DailyQuota() DailyQuota {
	q := s.data.DailyQuota
	q.ResetLog = append([]QuotaReset(nil), q.ResetLog...)
	return q
}

// AddAPIRequests adds count to both the session and daily counters and
// returns the new totals.
func (s *Store) AddAPIRequests(count int) (session, daily int) {
	s.data.CurrentSession.APIRequestsCount += count
	s.data.DailyQuota.TotalRequests += count
	return s.data.CurrentSession.APIRequestsCount, s.data.DailyQuota.TotalRequests
}

// SetStopReason records why the session halted. Passing the empty string
// clears it.
func (s *Store) SetStopReason(reason string) {
	s.data.CurrentSession.StopReason = reason
}

// SetLastProcessedDirectory records the directory currently being walked so
// an interrupted run shows where it stopped.
func (s *Store) SetLastProcessedDirectory(dir string) {
	s.data.CurrentSession.LastProcessedDirectory = dir
}

// IsUploaded reports whether path already succeeded in a previous run.
func (s *Store) IsUploaded(path string) bool {
	_, ok := s.data.UploadedFiles[path]
	return ok
}

// MarkFileUploaded records a successful upload and clears any prior failure
// for the same path. Session counters are advanced.
func (s *Store) MarkFileUploaded(path, mediaItemID, albumID string) {
	s.data.UploadedFiles[path] = UploadedFile{
		UploadedAt:  s.clk.NowUTC(),
		MediaItemID: mediaItemID,
		AlbumID:     albumID,
	}
	delete(s.data.FailedUploads, path)
	s.data.CurrentSession.FilesProcessed++
	s.data.CurrentSession.FilesUploaded++
}

// MarkFileFailed records or updates the failure entry for path, bumping the
// attempt count and keeping the first-attempt timestamp.
func (s *Store) MarkFileFailed(path, reason string) {
	now := s.clk.NowUTC()
	entry, ok := s.data.FailedUploads[path]
	if !ok {
		entry = FailedUpload{FirstAttempt: now}
	}
	entry.Error = reason
	entry.Attempts++
	entry.LastAttempt = now
	s.data.FailedUploads[path] = entry
	s.data.CurrentSession.FilesProcessed++
	s.data.CurrentSession.FilesFailed++
}

// MarkFileSkipped counts a file that needed no upload.
func (s *Store) MarkFileSkipped() {
	s.data.CurrentSession.FilesProcessed++
}

// FailedUpload returns the failure entry for path, if any.
func (s *Store) FailedUpload(path string) (FailedUpload, bool) {
	f, ok := s.data.FailedUploads[path]
	return f, ok
}

// FailedUploads returns a copy of all standing failure entries.
func (s *Store) FailedUploads() map[string]FailedUpload {
	out := make(map[string]FailedUpload, len(s.data.FailedUploads))
	for k, v := range s.data.FailedUploads {
		out[k] = v
	}
	return out
}

// ClearFailedUploads drops all failure entries so the next run retries them
// without the accumulated attempt counts.
func (s *Store) ClearFailedUploads() {
	s.data.FailedUploads = make(map[string]FailedUpload)
}

// LastProcessedDirectory returns the directory the previous session stopped
// in, or the empty string.
func (s *Store) LastProcessedDirectory() string {
	return s.data.CurrentSession.LastProcessedDirectory
}

// AlbumID returns the recorded album ID for title, if this tool created or
// adopted it before.
func (s *Store) AlbumID(title string) (string, bool) {
	id, ok := s.data.CreatedAlbums[title]
	return id, ok
}

// AddCreatedAlbum records an album this run created or adopted.
func (s *Store) AddCreatedAlbum(title, id string) {
	s.data.CreatedAlbums[title] = id
}

// CreatedAlbums returns a copy of the title-to-ID album map.
func (s *Store) CreatedAlbums() map[string]string {
	out := make(map[string]string, len(s.data.CreatedAlbums))
	for k, v := range s.data.CreatedAlbums {
		out[k] = v
	}
	return out
}

// RollDailyQuota archives the current daily counter and starts a new day
// when the reference-timezone date has advanced past the stored one. It
// returns true when a rollover happened.
func (s *Store) RollDailyQuota() bool {
	changed, today := s.clk.DateChanged(s.data.DailyQuota.Date)
	if !changed {
		return false
	}

	now := s.clk.NowUTC()
	s.data.DailyQuota.ResetLog = append(s.data.DailyQuota.ResetLog, QuotaReset{
		PreviousDate:    s.data.DailyQuota.Date,
		NewDate:         today,
		RequestsAtReset: s.data.DailyQuota.TotalRequests,
		ResetAtUTC:      now,
		ResetAtLocal:    s.clk.FormatLocal(now),
	})
	s.log.Info().
		Str("previous_date", s.data.DailyQuota.Date).
		Str("new_date", today).
		Int("requests_at_reset", s.data.DailyQuota.TotalRequests).
		Msg("daily quota rolled over")

	s.data.DailyQuota.Date = today
	s.data.DailyQuota.TotalRequests = 0
	s.data.DailyQuota.ResetAt = s.clk.NextMidnight()
	s.data.DailyQuota.Timezone = s.clk.Zone()
	return true
}

// ResetQuotaCounters zeroes both session and daily request counters without
// touching upload progress. Used by the quota-only reset flag.
func (s *Store) ResetQuotaCounters() {
	s.data.CurrentSession.APIRequestsCount = 0
	s.data.CurrentSession.StopReason = ""
	s.data.DailyQuota.TotalRequests = 0
	s.data.DailyQuota.Date = s.clk.Today()
	s.data.DailyQuota.ResetAt = s.clk.NextMidnight()
}

// SetDailyUsage overrides the daily counter, for reconciling with usage
// reported by the console. The session counter is left alone.
func (s *Store) SetDailyUsage(n int) {
	s.data.DailyQuota.TotalRequests = n
}

// Reset discards the entire document and starts fresh, erasing all progress.
func (s *Store) Reset() {
	s.data = s.fresh()
}

// Delete removes the state file from disk. The in-memory document is reset
// so a subsequent Save writes a fresh one.
func (s *Store) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	s.data = s.fresh()
	return nil
}

// Summary renders a plain-text overview of the document for log output and
// the states command.
func (s *Store) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Directory: %s\n", s.baseDir)
	fmt.Fprintf(&b, "Uploaded: %d files\n", len(s.data.UploadedFiles))
	fmt.Fprintf(&b, "Failed: %d files\n", len(s.data.FailedUploads))
	fmt.Fprintf(&b, "Albums: %d\n", len(s.data.CreatedAlbums))
	fmt.Fprintf(&b, "Daily requests: %d (%s, %s)\n",
		s.data.DailyQuota.TotalRequests, s.data.DailyQuota.Date, s.data.DailyQuota.Timezone)
	if r := s.data.CurrentSession.StopReason; r != "" {
		fmt.Fprintf(&b, "Last stop: %s\n", r)
	}
	return b.String()
}

// UploadedCount returns the cumulative number of uploaded files.
func (s *Store) UploadedCount() int { return len(s.data.UploadedFiles) }

// FailedCount returns the number of paths with a standing failure entry.
func (s *Store) FailedCount() int { return len(s.data.FailedUploads) }

// CreatedAt returns when this state document was first created.
func (s *Store) CreatedAt() time.Time { return s.data.CreatedAt }

// LastUpdated returns the last persisted modification time.
func (s *Store) LastUpdated() time.Time { return s.data.LastUpdated }
