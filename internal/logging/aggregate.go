package logging

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// LogEntry is one parsed line of chatcore.log.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	AccountID uint32         `json:"account_id,omitempty"`
	Component string         `json:"component,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects log entries. Zero-valued fields do not filter.
type LogFilter struct {
	// Level keeps entries at or above this level.
	Level     string
	StartTime time.Time
	EndTime   time.Time
	AccountID uint32
	Component string
	Phase     string
	// MessageContains is a case-sensitive substring match on the message.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var standardFields = map[string]bool{
	"time":       true,
	"level":      true,
	"msg":        true,
	"account_id": true,
	"component":  true,
	"phase":      true,
}

// AggregateLogs reads chatcore.log in dir together with its rotated backups
// (plain or gzipped) and returns the entries sorted by time. Lines that are
// not valid JSON are skipped.
func AggregateLogs(dir string) ([]LogEntry, error) {
	current := filepath.Join(dir, FileName)
	if _, err := os.Stat(current); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in %s: %w", dir, err)
		}
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	paths, err := filepath.Glob(current + ".*")
	if err != nil {
		return nil, err
	}
	paths = append(paths, current)

	var entries []LogEntry
	for _, p := range paths {
		fileEntries, err := readLogFile(p)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

func readLogFile(path string) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed log %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	var entries []LogEntry
	scanner := bufio.NewScanner(r)
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file %s: %w", path, err)
	}
	return entries, nil
}

func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	if s, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			entry.Timestamp = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.Component, _ = raw["component"].(string)
	entry.Phase, _ = raw["phase"].(string)
	if id, ok := raw["account_id"].(float64); ok && id >= 0 {
		entry.AccountID = uint32(id)
	}

	for k, v := range raw {
		if !standardFields[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries matching every criterion of filter.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}
	var filtered []LogEntry
	for _, entry := range entries {
		if filter.matches(entry) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func (f LogFilter) matches(entry LogEntry) bool {
	if f.Level != "" {
		want, wantOK := levelOrder[strings.ToUpper(f.Level)]
		got, gotOK := levelOrder[entry.Level]
		if wantOK && gotOK && got < want {
			return false
		}
	}
	if !f.StartTime.IsZero() && entry.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && entry.Timestamp.After(f.EndTime) {
		return false
	}
	if f.AccountID != 0 && entry.AccountID != f.AccountID {
		return false
	}
	if f.Component != "" && entry.Component != f.Component {
		return false
	}
	if f.Phase != "" && entry.Phase != f.Phase {
		return false
	}
	if f.MessageContains != "" && !strings.Contains(entry.Message, f.MessageContains) {
		return false
	}
	return true
}

// ExportLogEntries writes entries to w as "json", "text" or "csv".
func ExportLogEntries(w io.Writer, entries []LogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "text":
		return exportText(w, entries)
	case "csv":
		return exportCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, text, csv)", format)
	}
}

// FormatText renders one entry as a single human-readable line:
//
//	[2006-01-02 15:04:05.000] INFO - msg (account=2, component=bridge) {"k":"v"}
func FormatText(entry LogEntry) string {
	parts := []string{
		"[" + entry.Timestamp.Format("2006-01-02 15:04:05.000") + "]",
		entry.Level,
		"-",
		entry.Message,
	}

	var scope []string
	if entry.AccountID != 0 {
		scope = append(scope, "account="+strconv.FormatUint(uint64(entry.AccountID), 10))
	}
	if entry.Component != "" {
		scope = append(scope, "component="+entry.Component)
	}
	if entry.Phase != "" {
		scope = append(scope, "phase="+entry.Phase)
	}
	if len(scope) > 0 {
		parts = append(parts, "("+strings.Join(scope, ", ")+")")
	}
	if len(entry.Attrs) > 0 {
		attrs, _ := json.Marshal(entry.Attrs)
		parts = append(parts, string(attrs))
	}
	return strings.Join(parts, " ")
}

func exportText(w io.Writer, entries []LogEntry) error {
	for _, entry := range entries {
		if _, err := io.WriteString(w, FormatText(entry)+"\n"); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func exportCSV(w io.Writer, entries []LogEntry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"timestamp", "level", "message", "account_id", "component", "phase", "attrs"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, entry := range entries {
		attrs := ""
		if len(entry.Attrs) > 0 {
			if b, err := json.Marshal(entry.Attrs); err == nil {
				attrs = string(b)
			}
		}
		account := ""
		if entry.AccountID != 0 {
			account = strconv.FormatUint(uint64(entry.AccountID), 10)
		}
		record := []string{
			entry.Timestamp.Format(time.RFC3339Nano),
			entry.Level,
			entry.Message,
			account,
			entry.Component,
			entry.Phase,
			attrs,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
