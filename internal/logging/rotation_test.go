package logging

import (
	"bytes"
	"compress/gzip"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
)

const logPath = "/var/dossier/logs/debug.log"

// chunk returns n bytes ending in a newline.
func chunk(n int) []byte {
	b := bytes.Repeat([]byte("x"), n-1)
	return append(b, '\n')
}

func TestNewRotatingWriter(t *testing.T) {
	t.Run("creates log file and directories", func(t *testing.T) {
		fs := afero.NewMemMapFs()

		rw, err := NewRotatingWriter(fs, logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		if ok, _ := afero.Exists(fs, logPath); !ok {
			t.Errorf("log file was not created at %s", logPath)
		}
		if rw.FilePath() != logPath {
			t.Errorf("FilePath() = %q, want %q", rw.FilePath(), logPath)
		}
	})

	t.Run("appends to existing file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, logPath, []byte("initial content\n"), 0o644); err != nil {
			t.Fatalf("failed to seed log file: %v", err)
		}

		rw, err := NewRotatingWriter(fs, logPath, DefaultRotationConfig())
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		if rw.CurrentSize() != int64(len("initial content\n")) {
			t.Errorf("CurrentSize() = %d, want existing file size", rw.CurrentSize())
		}
		if _, err := rw.Write([]byte("appended content\n")); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		_ = rw.Close()

		content, _ := afero.ReadFile(fs, logPath)
		if string(content) != "initial content\nappended content\n" {
			t.Errorf("content = %q", content)
		}
	})
}

func TestRotatingWriterRotation(t *testing.T) {
	const half = 600 * 1024

	t.Run("rotates when size exceeds max", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		rw, err := NewRotatingWriter(fs, logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		_, _ = rw.Write(chunk(half))
		_, _ = rw.Write(chunk(half))

		if ok, _ := afero.Exists(fs, logPath+".1"); !ok {
			t.Fatal("expected backup .1 after exceeding max size")
		}
		if rw.CurrentSize() != half {
			t.Errorf("CurrentSize() after rotation = %d, want %d", rw.CurrentSize(), half)
		}
	})

	t.Run("keeps at most MaxBackups", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		rw, err := NewRotatingWriter(fs, logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 2})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		for i := 0; i < 5; i++ {
			_, _ = rw.Write(chunk(half))
			_, _ = rw.Write(chunk(half))
		}

		for _, p := range []string{logPath + ".1", logPath + ".2"} {
			if ok, _ := afero.Exists(fs, p); !ok {
				t.Errorf("expected %s to exist", p)
			}
		}
		if ok, _ := afero.Exists(fs, logPath+".3"); ok {
			t.Error("backup .3 exceeds MaxBackups")
		}
	})

	t.Run("zero size disables rotation", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		rw, err := NewRotatingWriter(fs, logPath, RotationConfig{MaxSizeMB: 0, MaxBackups: 2})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		for i := 0; i < 4; i++ {
			_, _ = rw.Write(chunk(half))
		}
		if ok, _ := afero.Exists(fs, logPath+".1"); ok {
			t.Error("rotation happened with MaxSizeMB = 0")
		}
	})

	t.Run("zero backups truncates", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		rw, err := NewRotatingWriter(fs, logPath, RotationConfig{MaxSizeMB: 1})
		if err != nil {
			t.Fatalf("NewRotatingWriter failed: %v", err)
		}
		defer func() { _ = rw.Close() }()

		_, _ = rw.Write(chunk(half))
		_, _ = rw.Write(chunk(half))
		if ok, _ := afero.Exists(fs, logPath+".1"); ok {
			t.Error("backup written with MaxBackups = 0")
		}
		if rw.CurrentSize() != half {
			t.Errorf("CurrentSize() = %d, want %d", rw.CurrentSize(), half)
		}
	})
}

func TestRotatingWriterCompression(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, logPath, RotationConfig{MaxSizeMB: 1, MaxBackups: 1, Compress: true})
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	first := chunk(600 * 1024)
	_, _ = rw.Write(first)
	_, _ = rw.Write(chunk(600 * 1024))
	// Close waits for the background compression.
	_ = rw.Close()

	if ok, _ := afero.Exists(fs, logPath+".1"); ok {
		t.Error("uncompressed backup should be removed after compression")
	}
	f, err := fs.Open(logPath + ".1.gz")
	if err != nil {
		t.Fatalf("compressed backup missing: %v", err)
	}
	defer func() { _ = f.Close() }()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading gzip: %v", err)
	}
	if !bytes.Equal(data, first) {
		t.Errorf("decompressed backup length = %d, want %d", len(data), len(first))
	}
}

func TestRotatingWriterConcurrency(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = rw.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	_ = rw.Close()

	content, _ := afero.ReadFile(fs, logPath)
	if got := strings.Count(string(content), "line\n"); got != 400 {
		t.Errorf("wrote %d lines, want 400", got)
	}
}

func TestRotatingWriterClose(t *testing.T) {
	fs := afero.NewMemMapFs()
	rw, err := NewRotatingWriter(fs, logPath, DefaultRotationConfig())
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}

	if err := rw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rw.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := rw.Write([]byte("late\n")); err == nil {
		t.Error("Write after Close should fail")
	}
	if err := rw.Sync(); err != nil {
		t.Errorf("Sync after Close error = %v", err)
	}
}

func TestDefaultRotationConfig(t *testing.T) {
	cfg := DefaultRotationConfig()
	if cfg.MaxSizeMB != 10 {
		t.Errorf("MaxSizeMB = %d, want 10", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups != 3 {
		t.Errorf("MaxBackups = %d, want 3", cfg.MaxBackups)
	}
	if cfg.Compress {
		t.Error("Compress should default to false")
	}
}
