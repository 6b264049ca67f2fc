package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Engine.BackgroundFetchTimeoutSeconds != 30 {
		t.Errorf("Engine.BackgroundFetchTimeoutSeconds = %d, want 30", cfg.Engine.BackgroundFetchTimeoutSeconds)
	}
	if !cfg.Engine.StartIOOnLaunch {
		t.Error("Engine.StartIOOnLaunch should be true by default")
	}
	if cfg.Engine.ReadOnly {
		t.Error("Engine.ReadOnly should be false by default")
	}

	if cfg.Bridge.QueueSize != 256 {
		t.Errorf("Bridge.QueueSize = %d, want 256", cfg.Bridge.QueueSize)
	}
	if cfg.Bridge.RecordPath != "" {
		t.Errorf("Bridge.RecordPath = %q, want empty", cfg.Bridge.RecordPath)
	}

	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Errorf("Logging.MaxBackups = %d, want 3", cfg.Logging.MaxBackups)
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default() should be valid, got %v", ValidationErrors(errs))
	}
}

func TestBackgroundFetchTimeout(t *testing.T) {
	cfg := Default()
	if got := cfg.Engine.BackgroundFetchTimeout(); got != 30*time.Second {
		t.Errorf("BackgroundFetchTimeout() = %v, want 30s", got)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("uses XDG_CONFIG_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")

		dir := ConfigDir()
		expected := filepath.Join("/custom/config", "chatcore")
		if dir != expected {
			t.Errorf("ConfigDir() = %q, want %q", dir, expected)
		}
	})

	t.Run("falls back to ~/.config/chatcore", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")

		dir := ConfigDir()
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("cannot determine home directory")
		}
		expected := filepath.Join(home, ".config", "chatcore")
		if dir != expected {
			t.Errorf("ConfigDir() = %q, want %q", dir, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/test/config")

	file := ConfigFile()
	expected := filepath.Join("/test/config", "chatcore", "config.yaml")
	if file != expected {
		t.Errorf("ConfigFile() = %q, want %q", file, expected)
	}
}

func TestDataDirs(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/test/data")

	cfg := Default()
	if got, want := cfg.ResolveDataDir(), filepath.Join("/test/data", "chatcore"); got != want {
		t.Errorf("ResolveDataDir() = %q, want %q", got, want)
	}
	if got, want := cfg.AccountsDir(), filepath.Join("/test/data", "chatcore", "accounts"); got != want {
		t.Errorf("AccountsDir() = %q, want %q", got, want)
	}
	if got, want := cfg.LogDir(), filepath.Join("/test/data", "chatcore", "logs"); got != want {
		t.Errorf("LogDir() = %q, want %q", got, want)
	}

	cfg.DataDir = "/srv/chat"
	if got := cfg.ResolveDataDir(); got != "/srv/chat" {
		t.Errorf("ResolveDataDir() = %q, want %q", got, "/srv/chat")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}
	cfg.DataDir = "~/chat"
	if got, want := cfg.ResolveDataDir(), filepath.Join(home, "chat"); got != want {
		t.Errorf("ResolveDataDir() = %q, want %q", got, want)
	}
}

func TestResolveRecordPath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/srv/chat"

	if got := cfg.ResolveRecordPath(); got != "" {
		t.Errorf("ResolveRecordPath() = %q, want empty when recording is off", got)
	}

	cfg.Bridge.RecordPath = "events.cbor.zst"
	if got, want := cfg.ResolveRecordPath(), filepath.Join("/srv/chat", "events.cbor.zst"); got != want {
		t.Errorf("ResolveRecordPath() = %q, want %q", got, want)
	}

	cfg.Bridge.RecordPath = "/var/log/events.cbor"
	if got := cfg.ResolveRecordPath(); got != "/var/log/events.cbor" {
		t.Errorf("ResolveRecordPath() = %q, want absolute path unchanged", got)
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	cfg := Get()
	if cfg.Bridge.QueueSize != 256 {
		t.Errorf("Get().Bridge.QueueSize = %d, want 256", cfg.Bridge.QueueSize)
	}

	// An invalid value makes Get fall back to defaults
	viper.Set("bridge.queue_size", -1)
	cfg = Get()
	if cfg.Bridge.QueueSize != 256 {
		t.Errorf("Get() with invalid config: QueueSize = %d, want default 256", cfg.Bridge.QueueSize)
	}
}

func TestLoad(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "bridge:\n  queue_size: 32\nlogging:\n  level: debug\ni18n:\n  language: de-AT\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	SetDefaults()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bridge.QueueSize != 32 {
		t.Errorf("Bridge.QueueSize = %d, want 32", cfg.Bridge.QueueSize)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.I18n.Language != "de-AT" {
		t.Errorf("I18n.Language = %q, want de-AT", cfg.I18n.Language)
	}
	// Unset keys keep their defaults
	if cfg.Engine.BackgroundFetchTimeoutSeconds != 30 {
		t.Errorf("Engine.BackgroundFetchTimeoutSeconds = %d, want 30", cfg.Engine.BackgroundFetchTimeoutSeconds)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	SetDefaults()
	viper.Set("logging.level", "verbose")
	viper.Set("bridge.queue_size", 0)

	_, err := Load()
	if err == nil {
		t.Fatal("Load() should fail on invalid values")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("Load() error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Errorf("got %d validation errors, want 2: %v", len(verrs), verrs)
	}
}

func TestWatcherHandle(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	var changed *Config
	var failed error
	w := Watcher{
		OnChange: func(c *Config) { changed = c },
		OnError:  func(err error) { failed = err },
	}

	viper.Set("logging.level", "warn")
	w.handle(fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write})
	if changed == nil || changed.Logging.Level != "warn" {
		t.Fatalf("OnChange got %+v, want level warn", changed)
	}

	changed = nil
	viper.Set("logging.level", "loud")
	w.handle(fsnotify.Event{Name: "config.yaml", Op: fsnotify.Write})
	if changed != nil {
		t.Error("OnChange should not be called for an invalid config")
	}
	if failed == nil || !strings.Contains(failed.Error(), "logging.level") {
		t.Errorf("OnError got %v, want a logging.level error", failed)
	}

	failed = nil
	w.handle(fsnotify.Event{Name: "config.yaml", Op: fsnotify.Chmod})
	if failed != nil || changed != nil {
		t.Error("chmod events should be ignored")
	}
}
