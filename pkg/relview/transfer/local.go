package transfer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/Cnily03/release-viewer/pkg/relview/logging"
)

// local is the filesystem backend, used when the target spec is a
// plain directory path.
type local struct {
	root string
}

func newLocal(root string) *local {
	return &local{root: root}
}

// walkFiles lists the regular files under dir as root-relative slash
// paths. A missing dir yields an empty set.
func walkFiles(dir string) (map[string]struct{}, error) {
	files := make(map[string]struct{})
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return files, nil
	}

	var mu sync.Mutex
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		mu.Lock()
		files[filepath.ToSlash(rel)] = struct{}{}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	return files, nil
}

// copyFile copies src to dest, creating parent directories.
func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to copy to %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dest, err)
	}
	return nil
}

func (l *local) Copy(ctx context.Context, src string) error {
	files, err := walkFiles(src)
	if err != nil {
		return err
	}
	for rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(filepath.Join(src, filepath.FromSlash(rel)), filepath.Join(l.root, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

func (l *local) Move(ctx context.Context, src, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := filepath.Join(l.root, filepath.FromSlash(rel))
	if err := copyFile(src, dest); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("failed to remove source %s: %w", src, err)
	}
	return nil
}

func (l *local) Mirror(ctx context.Context, src string) error {
	want, err := walkFiles(src)
	if err != nil {
		return err
	}
	have, err := walkFiles(l.root)
	if err != nil {
		return err
	}

	// Delete extraneous files, then prune emptied directories.
	for rel := range have {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := want[rel]; ok {
			continue
		}
		path := filepath.Join(l.root, filepath.FromSlash(rel))
		logging.Get("transfer").Debug("removing extraneous file", "path", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return l.pruneEmptyDirs()
}

// pruneEmptyDirs removes directories left empty by deletions, deepest
// first, keeping the target root itself.
func (l *local) pruneEmptyDirs() error {
	var dirs []string
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != l.root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to walk %s: %w", l.root, err)
	}

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		if len(entries) == 0 {
			if err := os.Remove(dir); err != nil {
				return fmt.Errorf("failed to prune %s: %w", dir, err)
			}
		}
	}
	return nil
}

func (l *local) Exists(ctx context.Context, rel string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(l.root, filepath.FromSlash(rel)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", rel, err)
}
