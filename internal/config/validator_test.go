package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate_Engine(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"valid timeout", func(c *Config) { c.Engine.BackgroundFetchTimeoutSeconds = 60 }, ""},
		{"zero timeout", func(c *Config) { c.Engine.BackgroundFetchTimeoutSeconds = 0 }, "engine.background_fetch_timeout_seconds"},
		{"negative timeout", func(c *Config) { c.Engine.BackgroundFetchTimeoutSeconds = -5 }, "engine.background_fetch_timeout_seconds"},
		{"timeout too long", func(c *Config) { c.Engine.BackgroundFetchTimeoutSeconds = 7200 }, "engine.background_fetch_timeout_seconds"},
		{"read only without io", func(c *Config) {
			c.Engine.ReadOnly = true
			c.Engine.StartIOOnLaunch = false
		}, ""},
		{"read only with io", func(c *Config) { c.Engine.ReadOnly = true }, "engine.start_io_on_launch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			checkSingleField(t, cfg.Validate(), tt.wantField)
		})
	}
}

func TestConfig_Validate_Bridge(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"small queue", func(c *Config) { c.Bridge.QueueSize = 1 }, ""},
		{"zero queue", func(c *Config) { c.Bridge.QueueSize = 0 }, "bridge.queue_size"},
		{"huge queue", func(c *Config) { c.Bridge.QueueSize = 1 << 20 }, "bridge.queue_size"},
		{"plain recording", func(c *Config) { c.Bridge.RecordPath = "events.cbor" }, ""},
		{"compressed recording", func(c *Config) { c.Bridge.RecordPath = "/tmp/events.cbor.zst" }, ""},
		{"wrong extension", func(c *Config) { c.Bridge.RecordPath = "events.json" }, "bridge.record_path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			checkSingleField(t, cfg.Validate(), tt.wantField)
		})
	}
}

func TestConfig_Validate_Logging(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"debug level", func(c *Config) { c.Logging.Level = "debug" }, ""},
		{"error level", func(c *Config) { c.Logging.Level = "error" }, ""},
		{"empty level", func(c *Config) { c.Logging.Level = "" }, ""},
		{"unknown level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"zero max size", func(c *Config) { c.Logging.MaxSizeMB = 0 }, "logging.max_size_mb"},
		{"max size too big", func(c *Config) { c.Logging.MaxSizeMB = 5000 }, "logging.max_size_mb"},
		{"zero backups", func(c *Config) { c.Logging.MaxBackups = 0 }, ""},
		{"negative backups", func(c *Config) { c.Logging.MaxBackups = -1 }, "logging.max_backups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			checkSingleField(t, cfg.Validate(), tt.wantField)
		})
	}
}

func TestConfig_Validate_I18n(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{"simple tag", func(c *Config) { c.I18n.Language = "de" }, ""},
		{"region tag", func(c *Config) { c.I18n.Language = "pt-BR" }, ""},
		{"accept list", func(c *Config) { c.I18n.Language = "fr-CH, fr;q=0.9, en;q=0.8" }, ""},
		{"garbage", func(c *Config) { c.I18n.Language = "???" }, "i18n.language"},
		{"catalog dir with null", func(c *Config) { c.I18n.CatalogDir = "/tmp/\x00bad" }, "i18n.catalog_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			checkSingleField(t, cfg.Validate(), tt.wantField)
		})
	}
}

func TestConfig_Validate_Paths(t *testing.T) {
	t.Run("null character", func(t *testing.T) {
		cfg := Default()
		cfg.DataDir = "/path/with\x00null"
		checkSingleField(t, cfg.Validate(), "data_dir")
	})

	t.Run("path too long", func(t *testing.T) {
		cfg := Default()
		cfg.DataDir = "/" + strings.Repeat("a", maxPathLength+1)
		checkSingleField(t, cfg.Validate(), "data_dir")
	})

	t.Run("home relative", func(t *testing.T) {
		cfg := Default()
		cfg.DataDir = "~/chat"
		checkSingleField(t, cfg.Validate(), "")
	})
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "invalid"
	cfg.Logging.MaxSizeMB = -1
	cfg.Bridge.QueueSize = 0
	cfg.I18n.Language = "!!"

	errs := cfg.Validate()
	if len(errs) < 4 {
		t.Errorf("Expected at least 4 errors, got %d: %v", len(errs), errs)
	}
}

// checkSingleField asserts that errs is empty when want is "" and otherwise
// holds exactly one error for want.
func checkSingleField(t *testing.T, errs []ValidationError, want string) {
	t.Helper()
	if want == "" {
		if len(errs) != 0 {
			t.Errorf("expected no errors, got %v", errs)
		}
		return
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for %s, got %d: %v", want, len(errs), errs)
	}
	if errs[0].Field != want {
		t.Errorf("error field = %q, want %q", errs[0].Field, want)
	}
}
