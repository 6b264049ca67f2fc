package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete chatcore configuration
type Config struct {
	// DataDir holds the account set, logs and event recordings.
	// Empty means DefaultDataDir(). Supports ~ for home directory expansion.
	DataDir string        `mapstructure:"data_dir"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Logging LoggingConfig `mapstructure:"logging"`
	I18n    I18nConfig    `mapstructure:"i18n"`
}

// EngineConfig controls how the account set is driven
type EngineConfig struct {
	// BackgroundFetchTimeoutSeconds bounds one background fetch pass (default: 30)
	BackgroundFetchTimeoutSeconds int `mapstructure:"background_fetch_timeout_seconds"`
	// StartIOOnLaunch starts network IO as soon as the account set is open (default: true)
	StartIOOnLaunch bool `mapstructure:"start_io_on_launch"`
	// ReadOnly opens the account set without write access (default: false)
	ReadOnly bool `mapstructure:"read_only"`
}

// BridgeConfig controls the event bridge
type BridgeConfig struct {
	// QueueSize is how many notifications may wait for delivery (default: 256)
	QueueSize int `mapstructure:"queue_size"`
	// RecordPath, when set, records every raw engine event to this file.
	// A ".zst" suffix compresses the recording. Relative paths are
	// resolved against the data directory.
	RecordPath string `mapstructure:"record_path"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging to a file is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
	// Compress gzips rotated backups (default: true)
	Compress bool `mapstructure:"compress"`
}

// I18nConfig controls stock string translation
type I18nConfig struct {
	// Language is a BCP 47 tag or Accept-Language list. Empty means $LANG.
	Language string `mapstructure:"language"`
	// CatalogDir holds extra YAML catalogs that override the built-in ones
	CatalogDir string `mapstructure:"catalog_dir"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		DataDir: "",
		Engine: EngineConfig{
			BackgroundFetchTimeoutSeconds: 30,
			StartIOOnLaunch:               true,
			ReadOnly:                      false,
		},
		Bridge: BridgeConfig{
			QueueSize:  256,
			RecordPath: "",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   true,
		},
		I18n: I18nConfig{
			Language:   "",
			CatalogDir: "",
		},
	}
}

// BackgroundFetchTimeout returns the background fetch bound as a time.Duration
func (c *EngineConfig) BackgroundFetchTimeout() time.Duration {
	return time.Duration(c.BackgroundFetchTimeoutSeconds) * time.Second
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("data_dir", defaults.DataDir)

	// Engine defaults
	viper.SetDefault("engine.background_fetch_timeout_seconds", defaults.Engine.BackgroundFetchTimeoutSeconds)
	viper.SetDefault("engine.start_io_on_launch", defaults.Engine.StartIOOnLaunch)
	viper.SetDefault("engine.read_only", defaults.Engine.ReadOnly)

	// Bridge defaults
	viper.SetDefault("bridge.queue_size", defaults.Bridge.QueueSize)
	viper.SetDefault("bridge.record_path", defaults.Bridge.RecordPath)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// I18n defaults
	viper.SetDefault("i18n.language", defaults.I18n.Language)
	viper.SetDefault("i18n.catalog_dir", defaults.I18n.CatalogDir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatcore")
	}
	// Fall back to ~/.config/chatcore
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatcore"
	}
	return filepath.Join(home, ".config", "chatcore")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultDataDir returns where account data lives when data_dir is unset
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "chatcore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatcore"
	}
	return filepath.Join(home, ".local", "share", "chatcore")
}

// ResolveDataDir returns the effective data directory with ~ expanded
func (c *Config) ResolveDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDir()
	}
	return expandHome(c.DataDir)
}

// AccountsDir returns the directory of the engine's account set
func (c *Config) AccountsDir() string {
	return filepath.Join(c.ResolveDataDir(), "accounts")
}

// LogDir returns the directory log files are written to
func (c *Config) LogDir() string {
	return filepath.Join(c.ResolveDataDir(), "logs")
}

// ResolveRecordPath returns the event recording path, or "" when recording
// is off
func (c *Config) ResolveRecordPath() string {
	p := c.Bridge.RecordPath
	if p == "" {
		return ""
	}
	p = expandHome(p)
	if !filepath.IsAbs(p) {
		p = filepath.Join(c.ResolveDataDir(), p)
	}
	return p
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
