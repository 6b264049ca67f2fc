package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "bridge.queue_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidRecordExtensions returns the file extensions accepted for event recordings
func ValidRecordExtensions() []string {
	return []string{".cbor", ".cbor.zst"}
}

// maxPathLength is a reasonable path length limit (most filesystems have limits around 4096)
const maxPathLength = 4096

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, validatePath("data_dir", c.DataDir)...)
	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateBridge()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateI18n()...)

	return errors
}

func validatePath(field, path string) []ValidationError {
	if path == "" {
		return nil
	}
	var errors []ValidationError
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}
	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	var errors []ValidationError

	const maxFetchTimeout = 3600 // 1 hour
	if c.Engine.BackgroundFetchTimeoutSeconds <= 0 || c.Engine.BackgroundFetchTimeoutSeconds > maxFetchTimeout {
		errors = append(errors, ValidationError{
			Field:   "engine.background_fetch_timeout_seconds",
			Value:   c.Engine.BackgroundFetchTimeoutSeconds,
			Message: fmt.Sprintf("must be between 1 and %d", maxFetchTimeout),
		})
	}

	if c.Engine.ReadOnly && c.Engine.StartIOOnLaunch {
		errors = append(errors, ValidationError{
			Field:   "engine.start_io_on_launch",
			Value:   c.Engine.StartIOOnLaunch,
			Message: "cannot start IO on a read-only account set",
		})
	}

	return errors
}

// validateBridge validates the BridgeConfig
func (c *Config) validateBridge() []ValidationError {
	var errors []ValidationError

	const maxQueueSize = 65536
	if c.Bridge.QueueSize <= 0 || c.Bridge.QueueSize > maxQueueSize {
		errors = append(errors, ValidationError{
			Field:   "bridge.queue_size",
			Value:   c.Bridge.QueueSize,
			Message: fmt.Sprintf("must be between 1 and %d", maxQueueSize),
		})
	}

	if p := c.Bridge.RecordPath; p != "" {
		errors = append(errors, validatePath("bridge.record_path", p)...)
		name := filepath.Base(p)
		if !slices.ContainsFunc(ValidRecordExtensions(), func(ext string) bool {
			return strings.HasSuffix(name, ext)
		}) {
			errors = append(errors, ValidationError{
				Field:   "bridge.record_path",
				Value:   p,
				Message: fmt.Sprintf("must end in one of: %s", strings.Join(ValidRecordExtensions(), ", ")),
			})
		}
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	// Max size must be positive
	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateI18n validates the I18nConfig
func (c *Config) validateI18n() []ValidationError {
	var errors []ValidationError

	if c.I18n.Language != "" {
		if _, _, err := language.ParseAcceptLanguage(c.I18n.Language); err != nil {
			errors = append(errors, ValidationError{
				Field:   "i18n.language",
				Value:   c.I18n.Language,
				Message: "must be a BCP 47 tag or an Accept-Language list",
			})
		}
	}
	errors = append(errors, validatePath("i18n.catalog_dir", c.I18n.CatalogDir)...)

	return errors
}
