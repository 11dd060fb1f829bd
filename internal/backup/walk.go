package backup

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bnema/photup/internal/uploader"
)

// skipDirectories are system and cache folders never worth uploading.
var skipDirectories = map[string]struct{}{
	".aux":                      {},
	".tmp":                      {},
	".temp":                     {},
	"$recycle.bin":              {},
	"system volume information": {},
	".trashes":                  {},
	".ds_store":                 {},
	"thumbs.db":                 {},
	"@eadir":                    {},
	".@__thumb":                 {},
	".picasa":                   {},
	".picasaoriginals":          {},
}

// shouldSkipDir reports whether a directory name is a system or hidden
// folder. Hidden means a leading dot; Windows and NAS system folders start
// with $ or @.
func shouldSkipDir(name string) bool {
	lower := strings.ToLower(name)
	if _, ok := skipDirectories[lower]; ok {
		return true
	}
	if strings.HasPrefix(lower, ".") && len(lower) > 1 {
		return true
	}
	return strings.HasPrefix(lower, "$") || strings.HasPrefix(lower, "@")
}

// MediaDirectories walks base and returns every non-system directory that
// directly contains supported media, deepest first so leaf albums are
// processed before their parents.
func MediaDirectories(base string) ([]string, error) {
	var dirs []string

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			if path == base {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != base && shouldSkipDir(d.Name()) {
			return fs.SkipDir
		}
		if _, supported := uploader.CountDirectoryMedia(path); supported > 0 {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sep := string(filepath.Separator)
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], sep), strings.Count(dirs[j], sep)
		if di != dj {
			return di > dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs, nil
}

// EstimateScope counts the supported files and media-bearing directories
// under base.
func EstimateScope(base string) (files, dirs int) {
	found, err := MediaDirectories(base)
	if err != nil {
		return 0, 0
	}
	for _, d := range found {
		_, supported := uploader.CountDirectoryMedia(d)
		files += supported
	}
	return files, len(found)
}
