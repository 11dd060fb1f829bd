// Package backup orchestrates a whole run: walk the tree, resolve album
// names, and drive the album manager and uploader directory by directory.
package backup

import (
	"path/filepath"
	"strings"
)

// NamingStrategy maps a directory to an album name.
type NamingStrategy string

const (
	// NamingRelative names albums after the path below the base directory,
	// with dashes: pics/south-america/brazil becomes "south-america-brazil".
	NamingRelative NamingStrategy = "relative"
	// NamingFull includes the base directory itself:
	// "pics-south-america-brazil".
	NamingFull NamingStrategy = "full"
	// NamingLeaf uses only the innermost directory name: "brazil".
	NamingLeaf NamingStrategy = "leaf"
)

// rootAlbumName is the fallback when a directory name resolves empty.
const rootAlbumName = "Root"

// AlbumName derives the album name for dir under baseDir.
func AlbumName(baseDir, dir string, strategy NamingStrategy) string {
	switch strategy {
	case NamingLeaf:
		return orRoot(filepath.Base(dir))
	case NamingFull:
		base := filepath.Base(strings.TrimRight(baseDir, string(filepath.Separator)))
		rel, err := filepath.Rel(baseDir, dir)
		if err != nil {
			return orRoot(filepath.Base(dir))
		}
		if rel == "." {
			return orRoot(base)
		}
		return base + "-" + dashed(rel)
	default:
		rel, err := filepath.Rel(baseDir, dir)
		if err != nil {
			return orRoot(filepath.Base(dir))
		}
		if rel == "." {
			return orRoot(filepath.Base(baseDir))
		}
		return dashed(rel)
	}
}

func dashed(rel string) string {
	return strings.ReplaceAll(rel, string(filepath.Separator), "-")
}

func orRoot(name string) string {
	if name == "" || name == "." || name == string(filepath.Separator) {
		return rootAlbumName
	}
	return name
}
