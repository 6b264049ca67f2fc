package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func readLines(t *testing.T, dir string) []map[string]any {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := t.TempDir()
		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("log file was not created: %v", err)
		}
	})

	t.Run("stderr logger closes cleanly", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		if err := logger.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	})

	t.Run("invalid level defaults to INFO", func(t *testing.T) {
		logger, err := NewLogger(t.TempDir(), "invalid")
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()
		if got := logger.Level(); got != LevelInfo {
			t.Errorf("Level() = %q, want %q", got, LevelInfo)
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
	logger.Close()

	lines := readLines(t, dir)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["msg"] != "warn" || lines[1]["msg"] != "error" {
		t.Errorf("unexpected messages: %v, %v", lines[0]["msg"], lines[1]["msg"])
	}
}

func TestSetLevelAffectsChildren(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelError)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	child := logger.WithComponent("bridge")

	child.Info("dropped")
	logger.SetLevel("debug")
	if !child.Enabled(LevelDebug) {
		t.Error("child should see the new level")
	}
	child.Debug("kept")
	logger.Close()

	lines := readLines(t, dir)
	if len(lines) != 1 || lines[0]["msg"] != "kept" {
		t.Fatalf("unexpected lines: %v", lines)
	}
	if logger.Level() != LevelDebug {
		t.Errorf("Level() = %q", logger.Level())
	}
}

func TestScopedAttributes(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	scoped := logger.WithComponent("accounts").WithAccount(7).WithPhase("configure")
	scoped.Info("progress", "permille", 500)
	logger.Info("plain")
	logger.Close()

	lines := readLines(t, dir)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	first := lines[0]
	if first["component"] != "accounts" {
		t.Errorf("component = %v", first["component"])
	}
	if first["account_id"] != float64(7) {
		t.Errorf("account_id = %v", first["account_id"])
	}
	if first["phase"] != "configure" {
		t.Errorf("phase = %v", first["phase"])
	}
	if first["permille"] != float64(500) {
		t.Errorf("permille = %v", first["permille"])
	}
	if _, ok := lines[1]["component"]; ok {
		t.Error("parent logger must not inherit child attributes")
	}
}

func TestWith(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if logger.With() != logger {
		t.Error("With() without args should return the receiver")
	}
	logger.With("kind", "incoming_msg", 42, "ignored").Info("event")
	logger.Close()

	lines := readLines(t, dir)
	if lines[0]["kind"] != "incoming_msg" {
		t.Errorf("kind = %v", lines[0]["kind"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("discarded")
	logger.WithAccount(1).Info("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	if len(ValidLevels()) != 4 {
		t.Errorf("ValidLevels() = %v", ValidLevels())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	logger, err := NewLogger(t.TempDir(), LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	child := logger.WithComponent("rpc")
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := child.Close(); err != nil {
		t.Errorf("Close() on a child of a closed logger = %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	const goroutines, perG = 8, 50
	var wg sync.WaitGroup
	for g := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := logger.WithAccount(uint32(g + 1))
			for i := range perG {
				l.Info("msg", "i", i)
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if got := len(readLines(t, dir)); got != goroutines*perG {
		t.Errorf("expected %d lines, got %d", goroutines*perG, got)
	}
}
