// Package config provides default configuration values for photup.
package config

import (
	"time"
)

// Default configuration constants
const (
	// Quota defaults. The remote service allows 10,000 requests per day;
	// the session ceiling leaves headroom below that so a long run never
	// burns the whole daily budget in one invocation.
	defaultMaxSessionRequests = 9500
	defaultMaxDailyRequests   = 10000

	// The remote service resets its daily quota at midnight Pacific time.
	defaultResetTimezone = "America/Los_Angeles"

	// Upload retry defaults
	defaultMaxRetries    = 3
	defaultRetryDelaySec = 2
	defaultBackoffFactor = 2.0

	// Remote size ceilings per media type
	defaultMaxImageSize = 200 * 1024 * 1024        // 200 MiB
	defaultMaxVideoSize = 10 * 1024 * 1024 * 1024  // 10 GiB

	// Album naming
	defaultMaxAlbumNameLength = 500

	// Remote endpoints
	defaultBaseURL   = "https://photoslibrary.googleapis.com/v1"
	defaultUploadURL = "https://photoslibrary.googleapis.com/v1/uploads"
)

// getDefaultLogDir returns the default log directory, falls back to empty string on error
func getDefaultLogDir() string {
	logDir, err := GetLogDir()
	if err != nil {
		return ""
	}
	return logDir
}

// DefaultConfig returns the default configuration values for photup.
func DefaultConfig() *Config {
	return &Config{
		Quota: QuotaConfig{
			MaxSessionRequests: defaultMaxSessionRequests,
			MaxDailyRequests:   defaultMaxDailyRequests,
			ResetTimezone:      defaultResetTimezone,
		},
		Upload: UploadConfig{
			MaxRetries:    defaultMaxRetries,
			RetryDelay:    time.Second * defaultRetryDelaySec,
			BackoffFactor: defaultBackoffFactor,
			MaxImageSize:  defaultMaxImageSize,
			MaxVideoSize:  defaultMaxVideoSize,
		},
		Albums: AlbumsConfig{
			MaxNameLength: defaultMaxAlbumNameLength,
		},
		Service: ServiceConfig{
			BaseURL:   defaultBaseURL,
			UploadURL: defaultUploadURL,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "console", // console or json
			LogDir:        getDefaultLogDir(),
			EnableFileLog: true,
		},
	}
}
