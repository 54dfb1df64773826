package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
)

// Note: tests here share the package's global state and must not run
// in parallel with each other.

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    logging.Level
		wantErr bool
	}{
		{in: "debug", want: logging.LevelDebug},
		{in: "info", want: logging.LevelInfo},
		{in: "WARN", want: logging.LevelWarn},
		{in: "warning", want: logging.LevelWarn},
		{in: "error", want: logging.LevelError},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit_RejectsInvalidLevel(t *testing.T) {
	err := logging.Init(logging.Config{
		Level: "shout",
		Path:  filepath.Join(t.TempDir(), "relview.log"),
	})
	if err == nil {
		t.Fatal("Init() accepted an invalid level")
	}
}

func TestLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relview.log")
	if err := logging.Init(logging.Config{Level: "debug", Path: path}); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer logging.Close()

	logger := logging.Get("mirror")
	logger.Info("sync complete", "add", 2, "remove", 1)

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "sync complete") {
		t.Errorf("log file missing message, got: %s", content)
	}
	if !strings.Contains(content, "mirror") {
		t.Errorf("log file missing component prefix, got: %s", content)
	}
}

func TestLogger_ComponentLevelOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relview.log")
	err := logging.Init(logging.Config{
		Level:      "error",
		Path:       path,
		Components: map[string]string{"fetch": "debug"},
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer logging.Close()

	logging.Get("fetch").Debug("chatty component")
	logging.Get("mirror").Debug("quiet component")

	if err := logging.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "chatty component") {
		t.Error("debug override for fetch not applied")
	}
	if strings.Contains(content, "quiet component") {
		t.Error("default level not applied to mirror")
	}
}

func TestGet_BeforeInitIsSilent(t *testing.T) {
	// Must not panic or write anywhere.
	logger := logging.Get("early")
	logger.Info("dropped")
	logger.With("k", "v").Error("also dropped")
}
