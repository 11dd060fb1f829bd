// Package state persists per-target backup progress as a single versioned
// JSON document. The document is the single source of truth for uploaded
// files, failures, created albums, and quota counters; every other component
// reads and writes it through the Store.
package state

import (
	"time"
)

// Version is the current state document schema version. Documents carrying
// any other version are rejected and replaced with a fresh state.
const Version = "1.0"

// Session holds counters for one invocation of the tool. It is overwritten
// on every new session, never appended.
type Session struct {
	StartTime              time.Time `json:"start_time"`
	APIRequestsCount       int       `json:"api_requests_count"`
	LastProcessedDirectory string    `json:"last_processed_directory,omitempty"`
	StopReason             string    `json:"stop_reason,omitempty"`
	FilesProcessed         int       `json:"files_processed"`
	FilesUploaded          int       `json:"files_uploaded"`
	FilesFailed            int       `json:"files_failed"`
}

// QuotaReset records one daily-quota rollover.
type QuotaReset struct {
	PreviousDate    string    `json:"previous_date"`
	NewDate         string    `json:"new_date"`
	RequestsAtReset int       `json:"requests_at_reset"`
	ResetAtUTC      time.Time `json:"reset_at_utc"`
	ResetAtLocal    string    `json:"reset_at_local"`
}

// DailyQuota counts API requests against a reference-timezone calendar date.
// The date string always reflects the reference timezone, never UTC or the
// host's local zone.
type DailyQuota struct {
	Date          string       `json:"date"`
	TotalRequests int          `json:"total_requests"`
	ResetAt       time.Time    `json:"reset_at"`
	Timezone      string       `json:"timezone"`
	ResetLog      []QuotaReset `json:"reset_log,omitempty"`
}

// UploadedFile records one successful upload, keyed by absolute path in the
// document's uploaded_files map. Written once, never mutated.
type UploadedFile struct {
	UploadedAt  time.Time `json:"uploaded_at"`
	MediaItemID string    `json:"media_item_id"`
	AlbumID     string    `json:"album_id,omitempty"`
}

// FailedUpload records the latest failure for a path. Updated in place on
// repeated failure; deleted when the path later succeeds.
type FailedUpload struct {
	Error        string    `json:"error"`
	Attempts     int       `json:"attempts"`
	FirstAttempt time.Time `json:"first_attempt"`
	LastAttempt  time.Time `json:"last_attempt"`
}

// BackupState is the persisted aggregate for one backup target.
type BackupState struct {
	BaseDirectory  string                  `json:"base_directory"`
	StateVersion   string                  `json:"state_version"`
	CreatedAt      time.Time               `json:"created_at"`
	LastUpdated    time.Time               `json:"last_updated"`
	CurrentSession Session                 `json:"current_session"`
	DailyQuota     DailyQuota              `json:"daily_quota"`
	UploadedFiles  map[string]UploadedFile `json:"uploaded_files"`
	FailedUploads  map[string]FailedUpload `json:"failed_uploads"`
	CreatedAlbums  map[string]string       `json:"created_albums"`
}

// valid reports whether a loaded document carries every required field, the
// current schema version, and the expected base directory.
func (s *BackupState) valid(baseDir string) bool {
	if s.BaseDirectory == "" || s.StateVersion == "" || s.CreatedAt.IsZero() {
		return false
	}
	if s.StateVersion != Version {
		return false
	}
	if s.UploadedFiles == nil || s.FailedUploads == nil || s.CreatedAlbums == nil {
		return false
	}
	return s.BaseDirectory == baseDir
}
