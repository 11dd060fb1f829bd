// Package config provides media-type classification and naming rules for photup.
package config

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Supported media extensions, keyed lowercase with the leading dot.
var (
	supportedImageFormats = map[string]struct{}{
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {},
		".heic": {}, ".heif": {}, ".webp": {},
	}

	supportedVideoFormats = map[string]struct{}{
		".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".m4v": {},
		".webm": {}, ".3gp": {},
	}
)

// Characters the remote service rejects in album titles.
const albumNameInvalidChars = `<>:"/\|?*`

// IsSupportedFile reports whether the file has a supported media extension.
func IsSupportedFile(path string) bool {
	return IsImageFile(path) || IsVideoFile(path)
}

// IsImageFile reports whether the file has a supported image extension.
func IsImageFile(path string) bool {
	_, ok := supportedImageFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsVideoFile reports whether the file has a supported video extension.
func IsVideoFile(path string) bool {
	_, ok := supportedVideoFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MaxFileSize returns the size ceiling for the file's media type, or 0 for
// unsupported types.
func (c *Config) MaxFileSize(path string) int64 {
	switch {
	case IsImageFile(path):
		return c.Upload.MaxImageSize
	case IsVideoFile(path):
		return c.Upload.MaxVideoSize
	default:
		return 0
	}
}

// MimeType returns the MIME type for a supported media file, falling back to
// application/octet-stream.
func MimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	case ".heic", ".heif":
		return "image/heic"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".m4v":
		return "video/x-m4v"
	case ".webm":
		return "video/webm"
	case ".3gp":
		return "video/3gpp"
	default:
		return "application/octet-stream"
	}
}

// SanitizeAlbumName strips characters the remote service rejects, collapses
// whitespace, and truncates to the configured maximum length.
func (c *Config) SanitizeAlbumName(name string) string {
	sanitized := name
	for _, ch := range albumNameInvalidChars {
		sanitized = strings.ReplaceAll(sanitized, string(ch), " ")
	}

	// Collapse runs of whitespace
	sanitized = strings.Join(strings.Fields(sanitized), " ")

	if len(sanitized) > c.Albums.MaxNameLength {
		sanitized = strings.TrimSpace(sanitized[:c.Albums.MaxNameLength])
	}

	return sanitized
}

const (
	stateFilePrefix = "state_"
	stateFileSuffix = ".json"
)

var hyphenRuns = regexp.MustCompile(`-+`)

// StateFilename converts an absolute directory path to a deterministic,
// filesystem-safe state filename.
// Example: '/Users/photos/vacation' -> 'state_users-photos-vacation.json'
func StateFilename(directory string) string {
	normalized := strings.Trim(filepath.Clean(directory), string(filepath.Separator))

	sanitized := strings.ReplaceAll(normalized, string(filepath.Separator), "-")
	sanitized = strings.ReplaceAll(sanitized, "/", "-")
	sanitized = strings.ReplaceAll(sanitized, `\`, "-")

	for _, ch := range `<>:"|?*` {
		sanitized = strings.ReplaceAll(sanitized, string(ch), "-")
	}

	sanitized = hyphenRuns.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-")
	sanitized = strings.ToLower(sanitized)

	return stateFilePrefix + sanitized + stateFileSuffix
}

// IsStateFilename reports whether a filename looks like a photup state document.
func IsStateFilename(name string) bool {
	return strings.HasPrefix(name, stateFilePrefix) && strings.HasSuffix(name, stateFileSuffix)
}
