// Package workdir manages the per-run staging directory: a uniquely
// named temporary tree that holds downloaded files before they are
// relocated into the mirror target, reclaimed exactly once on every
// exit path.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Dir is a scoped staging directory for one pipeline run. The directory
// name embeds a random run ID, so concurrent runs never share staging
// state. Cleanup is safe to call from multiple exit paths; the removal
// happens once.
type Dir struct {
	root  string
	runID string

	cleanupOnce sync.Once
	cleanupErr  error
}

// New creates a staging directory under base (the OS temp directory
// when base is empty) named "<prefix>-<uuid>".
func New(base, prefix string) (*Dir, error) {
	if base == "" {
		base = os.TempDir()
	}
	runID := uuid.NewString()

	root := filepath.Join(base, fmt.Sprintf("%s-%s", prefix, runID))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &Dir{root: root, runID: runID}, nil
}

// Root returns the absolute path of the staging directory.
func (d *Dir) Root() string {
	return d.root
}

// RunID returns the unique identifier of this run.
func (d *Dir) RunID() string {
	return d.runID
}

// Path returns the staging path for the given elements, creating the
// parent directories. The first element is the operation kind, so
// staged files never collide across fix/add/modify buckets.
func (d *Dir) Path(elem ...string) (string, error) {
	p := filepath.Join(append([]string{d.root}, elem...)...)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging path: %w", err)
	}
	return p, nil
}

// Subtree returns the staging directory for one operation kind. It may
// not exist yet when nothing was staged under that kind.
func (d *Dir) Subtree(kind string) string {
	return filepath.Join(d.root, kind)
}

// Cleanup removes the staging directory tree. Repeated calls return
// the first result.
func (d *Dir) Cleanup() error {
	d.cleanupOnce.Do(func() {
		if err := os.RemoveAll(d.root); err != nil {
			d.cleanupErr = fmt.Errorf("failed to remove staging directory: %w", err)
		}
	})
	return d.cleanupErr
}
