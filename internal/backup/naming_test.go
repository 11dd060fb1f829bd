package backup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlbumName(t *testing.T) {
	base := filepath.Join("/home/user", "pics")
	nested := filepath.Join(base, "south-america", "brazil")

	tests := []struct {
		name     string
		dir      string
		strategy NamingStrategy
		want     string
	}{
		{"relative nested", nested, NamingRelative, "south-america-brazil"},
		{"relative base itself", base, NamingRelative, "pics"},
		{"full nested", nested, NamingFull, "pics-south-america-brazil"},
		{"full base itself", base, NamingFull, "pics"},
		{"leaf nested", nested, NamingLeaf, "brazil"},
		{"leaf base itself", base, NamingLeaf, "pics"},
		{"empty strategy defaults to relative", nested, NamingStrategy(""), "south-america-brazil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AlbumName(base, tt.dir, tt.strategy))
		})
	}
}

func TestAlbumNameRootFallback(t *testing.T) {
	assert.Equal(t, "Root", AlbumName("/", "/", NamingLeaf))
}

func TestShouldSkipDir(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photos", false},
		{"2023", false},
		{".hidden", true},
		{"$RECYCLE.BIN", true},
		{"System Volume Information", true},
		{"@eaDir", true},
		{".picasaoriginals", true},
		{"Thumbs.db", true},
		{"@synology", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldSkipDir(tt.name), tt.name)
	}
}
