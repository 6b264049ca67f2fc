package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestRotatingWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("existing\n"), 0644); err != nil {
		t.Fatal(err)
	}

	rw, err := NewRotatingWriter(path, RotationConfig{})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	if rw.CurrentSize() != int64(len("existing\n")) {
		t.Errorf("CurrentSize() = %d", rw.CurrentSize())
	}
	if _, err := rw.Write([]byte("more\n")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync() = %v", err)
	}
	rw.Close()

	content, _ := os.ReadFile(path)
	if string(content) != "existing\nmore\n" {
		t.Errorf("content = %q", content)
	}
	if rw.FilePath() != path {
		t.Errorf("FilePath() = %q", rw.FilePath())
	}
}

func TestRotatingWriterRotatesBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	chunk := []byte(strings.Repeat("x", 600*1024))
	for range 4 {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}
	rw.Close()

	for _, name := range []string{"app.log", "app.log.1", "app.log.2"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "app.log.3")); !os.IsNotExist(err) {
		t.Error("backups beyond MaxBackups must be removed")
	}
}

func TestRotatingWriterWithoutBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.Write([]byte("old\n"))
	if err := rw.Rotate(); err != nil {
		t.Fatalf("Rotate() = %v", err)
	}
	rw.Write([]byte("new\n"))
	rw.Close()

	content, _ := os.ReadFile(path)
	if string(content) != "new\n" {
		t.Errorf("content = %q", content)
	}
	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("no backup expected")
	}
}

func TestRotatingWriterCompression(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 1, Compress: true})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	rw.Write([]byte("rotated line\n"))
	if err := rw.Rotate(); err != nil {
		t.Fatalf("Rotate() = %v", err)
	}
	// Close waits for the background compression.
	rw.Close()

	if _, err := os.Stat(path + ".1"); !os.IsNotExist(err) {
		t.Error("uncompressed backup should be removed")
	}
	f, err := os.Open(path + ".1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "rotated line\n" {
		t.Errorf("decompressed = %q", data)
	}
}

func TestRotatingWriterClosed(t *testing.T) {
	rw, err := NewRotatingWriter(filepath.Join(t.TempDir(), "app.log"), RotationConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if err := rw.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if _, err := rw.Write([]byte("x")); err == nil {
		t.Error("Write after Close should fail")
	}
	if err := rw.Rotate(); err == nil {
		t.Error("Rotate after Close should fail")
	}
}

func TestRotatingWriterConcurrency(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	rw, err := NewRotatingWriter(path, RotationConfig{MaxSizeMB: 1, MaxBackups: 5})
	if err != nil {
		t.Fatal(err)
	}
	line := []byte(strings.Repeat("y", 1023) + "\n")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				rw.Write(line)
			}
		}()
	}
	wg.Wait()
	rw.Close()

	var total int64
	for _, name := range []string{"app.log", "app.log.1", "app.log.2"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil {
			total += info.Size()
		}
	}
	if total != int64(8*200*len(line)) {
		t.Errorf("total bytes = %d, want %d", total, 8*200*len(line))
	}
}

func TestNewLoggerWithRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLoggerWithRotation(dir, LevelInfo, RotationConfig{MaxSizeMB: 1, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewLoggerWithRotation failed: %v", err)
	}
	payload := strings.Repeat("z", 4096)
	for i := range 400 {
		logger.Info("filler", "i", i, "payload", payload)
	}
	logger.Close()

	if _, err := os.Stat(filepath.Join(dir, FileName+".1")); err != nil {
		t.Errorf("expected a rotated backup: %v", err)
	}
}

func TestDefaultRotationConfig(t *testing.T) {
	cfg := DefaultRotationConfig()
	if cfg.MaxSizeMB != 10 || cfg.MaxBackups != 3 || !cfg.Compress {
		t.Errorf("DefaultRotationConfig() = %+v", cfg)
	}
}
