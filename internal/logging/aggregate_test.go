package logging

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

func TestAggregateLogs(t *testing.T) {
	t.Run("parses entries written by the logger", func(t *testing.T) {
		dir := t.TempDir()
		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		logger.WithComponent("bridge").WithAccount(3).Info("message 1", "extra", "data")
		logger.WithPhase("configure").Debug("message 2")
		logger.Error("message 3", "code", 500)
		logger.Close()

		entries, err := AggregateLogs(dir)
		if err != nil {
			t.Fatalf("AggregateLogs failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		first := entries[0]
		if first.Message != "message 1" || first.Level != LevelInfo {
			t.Errorf("unexpected first entry: %+v", first)
		}
		if first.Component != "bridge" || first.AccountID != 3 {
			t.Errorf("scope not parsed: %+v", first)
		}
		if first.Attrs["extra"] != "data" {
			t.Errorf("extra = %v", first.Attrs["extra"])
		}
		if entries[1].Phase != "configure" {
			t.Errorf("phase = %q", entries[1].Phase)
		}
	})

	t.Run("missing log file", func(t *testing.T) {
		_, err := AggregateLogs(t.TempDir())
		if err == nil || !strings.Contains(err.Error(), "no log file found") {
			t.Errorf("expected 'no log file found' error, got %v", err)
		}
	})

	t.Run("skips malformed lines and sorts", func(t *testing.T) {
		dir := t.TempDir()
		content := `{"time":"2024-01-01T12:00:02Z","level":"INFO","msg":"third"}
not json
{"time":"2024-01-01T12:00:00Z","level":"INFO","msg":"first"}

{"time":"2024-01-01T12:00:01Z","level":"ERROR","msg":"second"}
`
		if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		entries, err := AggregateLogs(dir)
		if err != nil {
			t.Fatalf("AggregateLogs failed: %v", err)
		}
		var got []string
		for _, e := range entries {
			got = append(got, e.Message)
		}
		if strings.Join(got, ",") != "first,second,third" {
			t.Errorf("order = %v", got)
		}
	})

	t.Run("includes rotated backups", func(t *testing.T) {
		dir := t.TempDir()
		current := filepath.Join(dir, FileName)
		os.WriteFile(current, []byte(`{"time":"2024-01-01T12:00:02Z","level":"INFO","msg":"current"}`+"\n"), 0644)
		os.WriteFile(current+".2", []byte(`{"time":"2024-01-01T12:00:00Z","level":"INFO","msg":"oldest"}`+"\n"), 0644)

		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(`{"time":"2024-01-01T12:00:01Z","level":"INFO","msg":"gzipped"}` + "\n"))
		zw.Close()
		os.WriteFile(current+".1.gz", buf.Bytes(), 0644)

		entries, err := AggregateLogs(dir)
		if err != nil {
			t.Fatalf("AggregateLogs failed: %v", err)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(entries))
		}
		if entries[0].Message != "oldest" || entries[1].Message != "gzipped" || entries[2].Message != "current" {
			t.Errorf("unexpected order: %+v", entries)
		}
	})
}

func TestFilterLogs(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []LogEntry{
		{Timestamp: base, Level: LevelDebug, Message: "debug", Component: "rpc"},
		{Timestamp: base.Add(time.Second), Level: LevelInfo, Message: "incoming msg", AccountID: 1, Component: "bridge"},
		{Timestamp: base.Add(2 * time.Second), Level: LevelWarn, Message: "warning", AccountID: 2, Phase: "configure"},
		{Timestamp: base.Add(3 * time.Second), Level: LevelError, Message: "failure", AccountID: 1},
	}

	tests := []struct {
		name   string
		filter LogFilter
		want   []string
	}{
		{"empty filter", LogFilter{}, []string{"debug", "incoming msg", "warning", "failure"}},
		{"level", LogFilter{Level: "warn"}, []string{"warning", "failure"}},
		{"account", LogFilter{AccountID: 1}, []string{"incoming msg", "failure"}},
		{"component", LogFilter{Component: "bridge"}, []string{"incoming msg"}},
		{"phase", LogFilter{Phase: "configure"}, []string{"warning"}},
		{"time window", LogFilter{StartTime: base.Add(time.Second), EndTime: base.Add(2 * time.Second)}, []string{"incoming msg", "warning"}},
		{"message", LogFilter{MessageContains: "msg"}, []string{"incoming msg"}},
		{"combined", LogFilter{AccountID: 1, Level: LevelError}, []string{"failure"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range FilterLogs(entries, tt.filter) {
				got = append(got, e.Message)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("FilterLogs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExportLogEntries(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []LogEntry{
		{Timestamp: ts, Level: LevelInfo, Message: "hello", AccountID: 2, Component: "bridge", Attrs: map[string]any{"kind": "info"}},
		{Timestamp: ts.Add(time.Second), Level: LevelError, Message: "boom"},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportLogEntries(&buf, entries, "JSON"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		var decoded []LogEntry
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON output: %v", err)
		}
		if len(decoded) != 2 || decoded[0].AccountID != 2 {
			t.Errorf("decoded = %+v", decoded)
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportLogEntries(&buf, entries, "text"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		want := `[2024-01-01 12:00:00.000] INFO - hello (account=2, component=bridge) {"kind":"info"}`
		if lines[0] != want {
			t.Errorf("line = %q, want %q", lines[0], want)
		}
		if lines[1] != "[2024-01-01 12:00:01.000] ERROR - boom" {
			t.Errorf("line = %q", lines[1])
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportLogEntries(&buf, entries, "csv"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d", len(records))
		}
		if records[1][3] != "2" || records[2][3] != "" {
			t.Errorf("account column = %q, %q", records[1][3], records[2][3])
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if err := ExportLogEntries(&bytes.Buffer{}, entries, "xml"); err == nil {
			t.Error("expected error for unsupported format")
		}
	})
}
