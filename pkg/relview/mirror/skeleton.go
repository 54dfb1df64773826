package mirror

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Cnily03/release-viewer/pkg/relview/types"
	"github.com/Cnily03/release-viewer/pkg/relview/workdir"
)

// skeletonKind is the staging subtree holding the expected-tree
// skeleton, separate from the download buckets.
const skeletonKind = "skeleton"

// BuildSkeleton writes a zero-byte placeholder for every file the
// snapshot expects on the target: tag/asset for each asset and
// tag/archive/<synthetic> for each present archive slot. Mirroring the
// target against this tree deletes exactly the files the snapshot no
// longer claims.
func BuildSkeleton(staging *workdir.Dir, cfg *types.Config) (string, error) {
	repo := cfg.RepoName()
	for _, rel := range cfg.Releases {
		tag := rel.Tag.Name
		for _, a := range rel.Assets {
			if err := touch(staging, tag, a.Name); err != nil {
				return "", err
			}
		}
		if rel.ZipURL != "" {
			if err := touch(staging, tag, types.ArchiveFilename(repo, tag, types.ArchiveExtZip)); err != nil {
				return "", err
			}
		}
		if rel.TarURL != "" {
			if err := touch(staging, tag, types.ArchiveFilename(repo, tag, types.ArchiveExtTar)); err != nil {
				return "", err
			}
		}
	}

	root := staging.Subtree(skeletonKind)
	// A snapshot with no files still needs the (empty) skeleton root
	// to exist for the mirror call.
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create skeleton root: %w", err)
	}
	return root, nil
}

// touch creates an empty placeholder in the skeleton subtree.
func touch(staging *workdir.Dir, tag, filename string) error {
	p, err := staging.Path(skeletonKind, tag, filename)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create placeholder %s/%s: %w", tag, filename, err)
	}
	return f.Close()
}

// stagedCount counts the regular files under dir; a missing dir counts
// as zero.
func stagedCount(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			count++
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to walk staging tree %s: %w", dir, err)
	}
	return count, nil
}
