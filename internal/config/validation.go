// Package config provides validation utilities for configuration values.
package config

import (
	"fmt"
	"strings"
	"time"
)

// validateConfig performs comprehensive validation of configuration values
func validateConfig(config *Config) error {
	var validationErrors []string

	if config.Quota.MaxSessionRequests <= 0 {
		validationErrors = append(validationErrors, "quota.max_session_requests must be positive")
	}
	if config.Quota.MaxDailyRequests <= 0 {
		validationErrors = append(validationErrors, "quota.max_daily_requests must be positive")
	}
	if config.Quota.MaxSessionRequests > config.Quota.MaxDailyRequests {
		validationErrors = append(validationErrors, "quota.max_session_requests must not exceed quota.max_daily_requests")
	}

	if config.Quota.ResetTimezone == "" {
		validationErrors = append(validationErrors, "quota.reset_timezone cannot be empty")
	} else if _, err := time.LoadLocation(config.Quota.ResetTimezone); err != nil {
		validationErrors = append(validationErrors, fmt.Sprintf("quota.reset_timezone is not a valid IANA zone (got: %s)", config.Quota.ResetTimezone))
	}

	if config.Upload.MaxRetries < 0 {
		validationErrors = append(validationErrors, "upload.max_retries must be non-negative")
	}
	if config.Upload.RetryDelay < 0 {
		validationErrors = append(validationErrors, "upload.retry_delay must be non-negative")
	}
	if config.Upload.BackoffFactor < 1 {
		validationErrors = append(validationErrors, "upload.backoff_factor must be at least 1")
	}
	if config.Upload.MaxImageSize <= 0 {
		validationErrors = append(validationErrors, "upload.max_image_size must be positive")
	}
	if config.Upload.MaxVideoSize <= 0 {
		validationErrors = append(validationErrors, "upload.max_video_size must be positive")
	}

	if config.Albums.MaxNameLength <= 0 {
		validationErrors = append(validationErrors, "albums.max_name_length must be positive")
	}

	if config.Service.BaseURL == "" {
		validationErrors = append(validationErrors, "service.base_url cannot be empty")
	}
	if config.Service.UploadURL == "" {
		validationErrors = append(validationErrors, "service.upload_url cannot be empty")
	}

	switch config.Logging.Level {
	case "", "trace", "debug", "info", "warn", "error":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.level must be one of: trace, debug, info, warn, error (got: %s)", config.Logging.Level))
	}

	switch config.Logging.Format {
	case "", "console", "json":
		// Valid
	default:
		validationErrors = append(validationErrors, fmt.Sprintf("logging.format must be one of: console, json (got: %s)", config.Logging.Format))
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}

	return nil
}
