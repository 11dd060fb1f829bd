// Package config provides configuration management for photup with Viper integration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// File permission constants
const (
	dirPerm  = 0755 // Standard directory permissions (rwxr-xr-x)
	filePerm = 0644 // Standard file permissions (rw-r--r--)
)

// Config represents the complete configuration for photup.
type Config struct {
	Quota   QuotaConfig   `mapstructure:"quota" yaml:"quota" json:"quota"`
	Upload  UploadConfig  `mapstructure:"upload" yaml:"upload" json:"upload"`
	Albums  AlbumsConfig  `mapstructure:"albums" yaml:"albums" json:"albums"`
	Service ServiceConfig `mapstructure:"service" yaml:"service" json:"service"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// StateDir is the directory holding per-target backup state documents.
	StateDir string `mapstructure:"state_dir" yaml:"state_dir" json:"state_dir"`
}

// QuotaConfig holds the two-tier API request budget.
type QuotaConfig struct {
	MaxSessionRequests int `mapstructure:"max_session_requests" yaml:"max_session_requests" json:"max_session_requests"`
	MaxDailyRequests   int `mapstructure:"max_daily_requests" yaml:"max_daily_requests" json:"max_daily_requests"`

	// ResetTimezone is the IANA zone whose midnight resets the daily quota.
	ResetTimezone string `mapstructure:"reset_timezone" yaml:"reset_timezone" json:"reset_timezone"`
}

// UploadConfig holds retry and size-limit settings for file uploads.
type UploadConfig struct {
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay" json:"retry_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor" yaml:"backoff_factor" json:"backoff_factor"`
	MaxImageSize  int64         `mapstructure:"max_image_size" yaml:"max_image_size" json:"max_image_size"`
	MaxVideoSize  int64         `mapstructure:"max_video_size" yaml:"max_video_size" json:"max_video_size"`
}

// AlbumsConfig holds album naming rules.
type AlbumsConfig struct {
	MaxNameLength int `mapstructure:"max_name_length" yaml:"max_name_length" json:"max_name_length"`
}

// ServiceConfig holds endpoints and credential locations for the remote
// photo-library service.
type ServiceConfig struct {
	BaseURL         string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	UploadURL       string `mapstructure:"upload_url" yaml:"upload_url" json:"upload_url"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file" json:"credentials_file"`
	TokenFile       string `mapstructure:"token_file" yaml:"token_file" json:"token_file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level         string `mapstructure:"level" yaml:"level" json:"level"`
	Format        string `mapstructure:"format" yaml:"format" json:"format"`
	LogDir        string `mapstructure:"log_dir" yaml:"log_dir" json:"log_dir"`
	EnableFileLog bool   `mapstructure:"enable_file_log" yaml:"enable_file_log" json:"enable_file_log"`
}

// Manager handles configuration loading.
type Manager struct {
	config *Config
	viper  *viper.Viper
	mu     sync.RWMutex
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	v := viper.New()

	// Configure Viper - supports yaml, json, toml automatically
	v.SetConfigName("config") // Will find config.yaml, config.json, config.toml, etc.

	configDir, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	v.AddConfigPath(configDir)
	v.AddConfigPath(".") // Current directory for development

	v.SetEnvPrefix("PHOTUP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"quota.max_session_requests": "QUOTA_MAX_SESSION_REQUESTS",
		"quota.max_daily_requests":   "QUOTA_MAX_DAILY_REQUESTS",
		"quota.reset_timezone":       "QUOTA_RESET_TIMEZONE",
		"upload.max_retries":         "UPLOAD_MAX_RETRIES",
		"upload.retry_delay":         "UPLOAD_RETRY_DELAY",
		"upload.backoff_factor":      "UPLOAD_BACKOFF_FACTOR",
		"service.base_url":           "SERVICE_BASE_URL",
		"service.upload_url":         "SERVICE_UPLOAD_URL",
		"service.credentials_file":   "SERVICE_CREDENTIALS_FILE",
		"service.token_file":         "SERVICE_TOKEN_FILE",
		"logging.level":              "LOGGING_LEVEL",
		"logging.format":             "LOGGING_FORMAT",
		"state_dir":                  "STATE_DIR",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, "PHOTUP_"+env); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", env, err)
		}
	}

	return &Manager{viper: v}, nil
}

// Load loads the configuration from file and environment variables.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Ensure directories exist
	if err := EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Set defaults
	m.setDefaults()

	// Read config file if it exists
	if err := m.viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create default one
			if err := m.createDefaultConfig(); err != nil {
				return fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := m.applyPathDefaults(config); err != nil {
		return err
	}

	if err := validateConfig(config); err != nil {
		return err
	}

	m.config = config
	return nil
}

// applyPathDefaults resolves empty path fields to their XDG locations.
func (m *Manager) applyPathDefaults(config *Config) error {
	if config.StateDir == "" {
		stateDir, err := GetBackupStateDir()
		if err != nil {
			return fmt.Errorf("failed to get state directory: %w", err)
		}
		config.StateDir = stateDir
	}
	if config.Service.CredentialsFile == "" {
		credFile, err := GetCredentialsFile()
		if err != nil {
			return fmt.Errorf("failed to get credentials path: %w", err)
		}
		config.Service.CredentialsFile = credFile
	}
	if config.Service.TokenFile == "" {
		tokenFile, err := GetTokenFile()
		if err != nil {
			return fmt.Errorf("failed to get token path: %w", err)
		}
		config.Service.TokenFile = tokenFile
	}
	if config.Logging.LogDir == "" {
		logDir, err := GetLogDir()
		if err != nil {
			return fmt.Errorf("failed to get log directory: %w", err)
		}
		config.Logging.LogDir = logDir
	}
	return nil
}

// Get returns the current configuration (thread-safe).
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to prevent external modification
	configCopy := *m.config
	return &configCopy
}

// setDefaults sets default configuration values in Viper.
func (m *Manager) setDefaults() {
	defaults := DefaultConfig()

	m.viper.SetDefault("quota.max_session_requests", defaults.Quota.MaxSessionRequests)
	m.viper.SetDefault("quota.max_daily_requests", defaults.Quota.MaxDailyRequests)
	m.viper.SetDefault("quota.reset_timezone", defaults.Quota.ResetTimezone)

	m.viper.SetDefault("upload.max_retries", defaults.Upload.MaxRetries)
	m.viper.SetDefault("upload.retry_delay", defaults.Upload.RetryDelay)
	m.viper.SetDefault("upload.backoff_factor", defaults.Upload.BackoffFactor)
	m.viper.SetDefault("upload.max_image_size", defaults.Upload.MaxImageSize)
	m.viper.SetDefault("upload.max_video_size", defaults.Upload.MaxVideoSize)

	m.viper.SetDefault("albums.max_name_length", defaults.Albums.MaxNameLength)

	m.viper.SetDefault("service.base_url", defaults.Service.BaseURL)
	m.viper.SetDefault("service.upload_url", defaults.Service.UploadURL)

	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.enable_file_log", defaults.Logging.EnableFileLog)
}

// createDefaultConfig creates a default configuration file.
func (m *Manager) createDefaultConfig() error {
	configFile, err := GetConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFile), dirPerm); err != nil {
		return err
	}

	defaultConfig := DefaultConfig()

	configData, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configFile, configData, filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created default configuration file: %s\n", configFile)
	return nil
}

// GetConfigFile returns the path to the configuration file being used.
func (m *Manager) GetConfigFile() string {
	return m.viper.ConfigFileUsed()
}

// Global configuration manager instance
var globalManager *Manager
var globalManagerOnce sync.Once

// Init initializes the global configuration manager.
func Init() error {
	var err error
	globalManagerOnce.Do(func() {
		globalManager, err = NewManager()
		if err != nil {
			return
		}
		err = globalManager.Load()
	})
	return err
}

// Get returns the global configuration.
func Get() *Config {
	if globalManager == nil {
		// Return defaults if not initialized
		return DefaultConfig()
	}
	return globalManager.Get()
}
