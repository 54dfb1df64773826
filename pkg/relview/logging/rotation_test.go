package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriter_WritesAndGrows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "relview.log")
	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 1024})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	if _, err := w.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("log content = %q", data)
	}
}

func TestRotatingWriter_RotatesOnSize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "relview.log")
	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 32})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	line := []byte(strings.Repeat("x", 24) + "\n")
	for i := 0; i < 3; i++ {
		if _, err := w.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) < 2 {
		t.Errorf("expected rotated files, found %d entries", len(entries))
	}
}

func TestRotatingWriter_CleanupKeepsBackupLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "relview.log")

	// Seed more rotated files than the backup limit allows.
	for _, name := range []string{
		"relview.2024-01-01-000000.log",
		"relview.2024-01-02-000000.log",
		"relview.2024-01-03-000000.log",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 1024, MaxBackups: 1})
	if err != nil {
		t.Fatalf("NewRotatingWriter() error = %v", err)
	}
	defer w.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	var rotated int
	for _, e := range entries {
		if e.Name() != "relview.log" {
			rotated++
		}
	}
	if rotated != 1 {
		t.Errorf("rotated backups = %d, want 1", rotated)
	}
}
