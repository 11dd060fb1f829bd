package cli

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/photup/internal/backup"
	"github.com/bnema/photup/internal/clock"
	"github.com/bnema/photup/internal/state"
)

func TestNamingFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags rootFlags
		want  backup.NamingStrategy
	}{
		{"default is relative", rootFlags{}, backup.NamingRelative},
		{"full path", rootFlags{albumFull: true}, backup.NamingFull},
		{"leaf only", rootFlags{albumLeaf: true}, backup.NamingLeaf},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.naming())
		})
	}
}

func TestOptionsMapFlags(t *testing.T) {
	flags := rootFlags{
		skipExisting: true,
		albumName:    "Holiday",
		dryRun:       true,
	}
	opts := flags.options()

	assert.True(t, opts.SkipExisting)
	assert.False(t, opts.MergeExisting)
	assert.Equal(t, "Holiday", opts.AlbumName)
	assert.True(t, opts.DryRun)
}

func newResetTestStore(t *testing.T) *state.Store {
	t.Helper()

	clk, err := clock.NewFixed("America/Los_Angeles", func() time.Time {
		return time.Date(2023, 6, 15, 18, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)

	store, err := state.Open(t.TempDir(), t.TempDir(), clk, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestApplyResetsStateStartsFreshAndRunContinues(t *testing.T) {
	store := newResetTestStore(t)
	store.MarkFileUploaded("/photos/a.jpg", "media-1", "album-1")
	store.Save()
	require.FileExists(t, store.Path())

	applyResets(store, &rootFlags{resetState: true, setQuotaUsage: -1}, zerolog.Nop())

	// History is gone but the store stays open for the run that follows.
	assert.Equal(t, 0, store.UploadedCount())
	require.FileExists(t, store.Path())

	store.MarkFileUploaded("/photos/b.jpg", "media-2", "album-1")
	assert.Equal(t, 1, store.UploadedCount())
}

func TestApplyResetsQuotaOnlyKeepsHistory(t *testing.T) {
	store := newResetTestStore(t)
	store.MarkFileUploaded("/photos/a.jpg", "media-1", "album-1")
	store.AddAPIRequests(42)

	applyResets(store, &rootFlags{resetQuotaOnly: true, setQuotaUsage: -1}, zerolog.Nop())

	assert.Equal(t, 0, store.DailyQuota().TotalRequests)
	assert.Equal(t, 0, store.Session().APIRequestsCount)
	assert.Equal(t, 1, store.UploadedCount())
}

func TestApplyResetsSetQuotaUsage(t *testing.T) {
	store := newResetTestStore(t)
	store.AddAPIRequests(10)

	applyResets(store, &rootFlags{setQuotaUsage: 5000}, zerolog.Nop())
	assert.Equal(t, 5000, store.DailyQuota().TotalRequests)
}

func TestApplyResetsClearFailures(t *testing.T) {
	store := newResetTestStore(t)
	store.MarkFileFailed("/photos/bad.jpg", "boom")
	store.MarkFileUploaded("/photos/a.jpg", "media-1", "album-1")

	applyResets(store, &rootFlags{clearFailures: true, setQuotaUsage: -1}, zerolog.Nop())

	assert.Equal(t, 0, store.FailedCount())
	assert.Equal(t, 1, store.UploadedCount())
}

func TestApplyResetsNoFlagsTouchesNothing(t *testing.T) {
	store := newResetTestStore(t)
	store.MarkFileUploaded("/photos/a.jpg", "media-1", "album-1")
	store.AddAPIRequests(7)

	applyResets(store, &rootFlags{setQuotaUsage: -1}, zerolog.Nop())

	assert.Equal(t, 1, store.UploadedCount())
	assert.Equal(t, 7, store.DailyQuota().TotalRequests)
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "no-op reset should not write the state file")
}

func TestExitStatusInterruptionBeatsFailures(t *testing.T) {
	assert.NoError(t, exitStatus(&backup.Summary{Interrupted: true, Failed: 3}))
	assert.ErrorIs(t, exitStatus(&backup.Summary{Failed: 3}), ErrUploadsFailed)
	assert.NoError(t, exitStatus(&backup.Summary{Uploaded: 5}))
}

func TestQuotaLine(t *testing.T) {
	assert.Equal(t, "-", quotaLine(0, ""))
	assert.Equal(t, "120 on 2023-06-15", quotaLine(120, "2023-06-15"))
}
