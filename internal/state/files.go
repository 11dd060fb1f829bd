package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bnema/photup/internal/config"
)

// Info is a read-only summary of one state file, for listing saved backups
// without opening a Store.
type Info struct {
	Path          string
	BaseDirectory string
	StateVersion  string
	LastUpdated   time.Time
	UploadedCount int
	FailedCount   int
	AlbumCount    int
	DailyRequests int
	DailyDate     string
	StopReason    string
}

// ListFiles returns the state files under stateDir, sorted by name. A
// missing directory yields an empty list.
func ListFiles(stateDir string) ([]string, error) {
	entries, err := os.ReadDir(stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !config.IsStateFilename(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(stateDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// ReadInfo parses a state file into a summary without validating it against
// any base directory.
func ReadInfo(path string) (Info, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("reading state file: %w", err)
	}

	var doc BackupState
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Info{}, fmt.Errorf("parsing state file: %w", err)
	}

	return Info{
		Path:          path,
		BaseDirectory: doc.BaseDirectory,
		StateVersion:  doc.StateVersion,
		LastUpdated:   doc.LastUpdated,
		UploadedCount: len(doc.UploadedFiles),
		FailedCount:   len(doc.FailedUploads),
		AlbumCount:    len(doc.CreatedAlbums),
		DailyRequests: doc.DailyQuota.TotalRequests,
		DailyDate:     doc.DailyQuota.Date,
		StopReason:    doc.CurrentSession.StopReason,
	}, nil
}
