package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSupportedFile(t *testing.T) {
	tests := []struct {
		path      string
		supported bool
	}{
		{"/photos/trip/IMG_0001.jpg", true},
		{"/photos/trip/IMG_0001.JPEG", true},
		{"/photos/trip/clip.mov", true},
		{"/photos/trip/clip.MP4", true},
		{"/photos/trip/pano.heic", true},
		{"/photos/trip/notes.txt", false},
		{"/photos/trip/raw.cr2", false},
		{"/photos/trip/noext", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.supported, IsSupportedFile(tt.path), tt.path)
	}
}

func TestMaxFileSize(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, cfg.Upload.MaxImageSize, cfg.MaxFileSize("a.jpg"))
	assert.Equal(t, cfg.Upload.MaxVideoSize, cfg.MaxFileSize("a.mkv"))
	assert.Equal(t, int64(0), cfg.MaxFileSize("a.pdf"))
}

func TestSanitizeAlbumName(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Summer 2023", "Summer 2023"},
		{"invalid chars", `trip<to>the:sea`, "trip to the sea"},
		{"path separators", `2023/holiday\photos`, "2023 holiday photos"},
		{"whitespace collapsed", "a   b\t c", "a b c"},
		{"empty after strip", `???`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.SanitizeAlbumName(tt.in))
		})
	}
}

func TestSanitizeAlbumNameTruncates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Albums.MaxNameLength = 10

	got := cfg.SanitizeAlbumName("a very long album name")
	assert.LessOrEqual(t, len(got), 10)
	assert.Equal(t, "a very lon", got)
}

func TestStateFilename(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"/Users/photos/vacation", "state_users-photos-vacation.json"},
		{"/home/me/Pics/2023//trip/", "state_home-me-pics-2023-trip.json"},
		{"/a?b*c", "state_a-b-c.json"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StateFilename(tt.dir), tt.dir)
	}
}

func TestIsStateFilename(t *testing.T) {
	assert.True(t, IsStateFilename("state_users-photos.json"))
	assert.False(t, IsStateFilename("config.json"))
	assert.False(t, IsStateFilename("state_partial.tmp"))
}
