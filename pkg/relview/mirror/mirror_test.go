package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cnily03/release-viewer/pkg/relview/reconcile"
	"github.com/Cnily03/release-viewer/pkg/relview/transfer"
	"github.com/Cnily03/release-viewer/pkg/relview/types"
	"github.com/Cnily03/release-viewer/pkg/relview/workdir"
)

// fakeDownloader writes the URL as file content, or fails for URLs in
// the fail set.
type fakeDownloader struct {
	mu    sync.Mutex
	fail  map[string]bool
	calls []string
}

func (d *fakeDownloader) Fetch(ctx context.Context, url, destPath string) error {
	d.mu.Lock()
	d.calls = append(d.calls, url)
	failed := d.fail[url]
	d.mu.Unlock()

	if failed {
		return fmt.Errorf("download of %s refused", url)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte(url), 0o644)
}

// recordingTarget wraps the local backend and records operation order.
type recordingTarget struct {
	transfer.Transferrer
	mu  sync.Mutex
	ops []string
}

func (r *recordingTarget) record(op string) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *recordingTarget) Copy(ctx context.Context, src string) error {
	r.record("copy:" + filepath.Base(src))
	return r.Transferrer.Copy(ctx, src)
}

func (r *recordingTarget) Move(ctx context.Context, src, rel string) error {
	r.record("move:" + rel)
	return r.Transferrer.Move(ctx, src, rel)
}

func (r *recordingTarget) Mirror(ctx context.Context, src string) error {
	r.record("mirror")
	return r.Transferrer.Mirror(ctx, src)
}

// recordingPublisher notes that publish ran.
type recordingPublisher struct {
	record func(op string)
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, cfg *types.Config) error {
	p.record("publish")
	return p.err
}

func newStaging(t *testing.T) *workdir.Dir {
	t.Helper()
	d, err := workdir.New(t.TempDir(), "relview")
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Cleanup() })
	return d
}

func targetTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestRun_StagesAndRelocates(t *testing.T) {
	t.Parallel()

	rec := reconcile.NewRecord()
	rec.Add["v1.1"] = []reconcile.Item{{DownloadURL: "url://b.zip", Filename: "b.zip"}}
	rec.Modify["v1.0"] = []reconcile.Item{{DownloadURL: "url://a2.zip", Filename: "a.zip"}}
	rec.Fix["v0.9"] = []reconcile.Item{{DownloadURL: "url://old.bin", Filename: "old.bin"}}

	targetDir := t.TempDir()
	target := &recordingTarget{Transferrer: mustResolve(t, targetDir)}
	dl := &fakeDownloader{}
	pub := &recordingPublisher{record: target.record}

	s := New(target, dl, pub, newStaging(t), Options{Concurrency: 2})
	current := &types.Config{Name: "acme/widget"}

	res, err := s.Run(context.Background(), rec, current, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Downloaded)
	assert.Empty(t, res.Failed)
	assert.True(t, res.Published)

	assert.Equal(t, map[string]string{
		"v0.9/old.bin": "url://old.bin",
		"v1.0/a.zip":   "url://a2.zip",
		"v1.1/b.zip":   "url://b.zip",
	}, targetTree(t, targetDir))

	// Relocation order: fix before add before modify, publish after.
	assert.Equal(t, []string{"copy:fix", "copy:add", "copy:modify", "publish"}, target.ops)
}

func TestRun_FailureOmitsItemAndContinues(t *testing.T) {
	t.Parallel()

	rec := reconcile.NewRecord()
	rec.Add["v1.0"] = []reconcile.Item{
		{DownloadURL: "url://bad.zip", Filename: "bad.zip"},
		{DownloadURL: "url://good.zip", Filename: "good.zip"},
	}

	targetDir := t.TempDir()
	dl := &fakeDownloader{fail: map[string]bool{"url://bad.zip": true}}
	s := New(mustResolve(t, targetDir), dl, nil, newStaging(t), Options{Concurrency: 1})

	res, err := s.Run(context.Background(), rec, &types.Config{Name: "acme/widget"}, nil)
	require.NoError(t, err, "stage failures are non-fatal without fail-fast")

	assert.Equal(t, 1, res.Downloaded)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "bad.zip", res.Failed[0].Filename)
	assert.Equal(t, "add", res.Failed[0].Kind)

	assert.Equal(t, map[string]string{"v1.0/good.zip": "url://good.zip"}, targetTree(t, targetDir))
}

func TestRun_FailFastAborts(t *testing.T) {
	t.Parallel()

	rec := reconcile.NewRecord()
	rec.Add["v1.0"] = []reconcile.Item{{DownloadURL: "url://bad.zip", Filename: "bad.zip"}}

	dl := &fakeDownloader{fail: map[string]bool{"url://bad.zip": true}}
	s := New(mustResolve(t, t.TempDir()), dl, nil, newStaging(t), Options{Concurrency: 1, FailFast: true})

	_, err := s.Run(context.Background(), rec, &types.Config{Name: "acme/widget"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailFast)
}

// blockingDownloader stalls the configured URL until its context is
// canceled; every other URL succeeds immediately.
type blockingDownloader struct {
	fakeDownloader
	block string
}

func (d *blockingDownloader) Fetch(ctx context.Context, url, destPath string) error {
	if url == d.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return d.fakeDownloader.Fetch(ctx, url, destPath)
}

func TestRun_FailFastDrainsInFlightDownloads(t *testing.T) {
	t.Parallel()

	rec := reconcile.NewRecord()
	// The blocked item is scheduled first so it is already in flight
	// when the second item fails and cancels the run.
	rec.Add["v1.0"] = []reconcile.Item{
		{DownloadURL: "url://slow.zip", Filename: "slow.zip"},
		{DownloadURL: "url://bad.zip", Filename: "bad.zip"},
	}

	dl := &blockingDownloader{
		fakeDownloader: fakeDownloader{fail: map[string]bool{"url://bad.zip": true}},
		block:          "url://slow.zip",
	}
	s := New(mustResolve(t, t.TempDir()), dl, nil, newStaging(t), Options{Concurrency: 2, FailFast: true})

	res, err := s.Run(context.Background(), rec, &types.Config{Name: "acme/widget"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailFast)

	// Run must not return while a download is still in flight: the
	// slow item's outcome is accounted before the result is read.
	require.NotNil(t, res)
	assert.Len(t, res.Failed, 2)
	assert.Zero(t, res.Downloaded)
}

func TestRun_FastSyncRelocatesInline(t *testing.T) {
	t.Parallel()

	rec := reconcile.NewRecord()
	rec.Add["v1.0"] = []reconcile.Item{{DownloadURL: "url://a.zip", Filename: "a.zip"}}

	targetDir := t.TempDir()
	target := &recordingTarget{Transferrer: mustResolve(t, targetDir)}
	s := New(target, &fakeDownloader{}, nil, newStaging(t), Options{Concurrency: 1, FastSync: true})

	_, err := s.Run(context.Background(), rec, &types.Config{Name: "acme/widget"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"move:v1.0/a.zip"}, target.ops, "no bulk copy under fast-sync")
	assert.Equal(t, map[string]string{"v1.0/a.zip": "url://a.zip"}, targetTree(t, targetDir))
}

func TestRun_PublishRunsWhenNothingChanged(t *testing.T) {
	t.Parallel()

	targetDir := t.TempDir()
	target := &recordingTarget{Transferrer: mustResolve(t, targetDir)}
	pub := &recordingPublisher{record: target.record}
	dl := &fakeDownloader{}
	s := New(target, dl, pub, newStaging(t), Options{Concurrency: 1})

	res, err := s.Run(context.Background(), reconcile.NewRecord(), &types.Config{Name: "acme/widget"}, nil)
	require.NoError(t, err)

	assert.True(t, res.Published)
	assert.Empty(t, dl.calls, "no downloads when in sync")
	assert.Equal(t, []string{"publish"}, target.ops)
}

func TestRun_RemoveMirrorsAgainstSkeleton(t *testing.T) {
	t.Parallel()

	targetDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(targetDir, "v0.9"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "v0.9", "old.bin"), []byte("old"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(targetDir, "v1.0"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(targetDir, "v1.0", "a.zip"), []byte("keep"), 0o644))

	rec := reconcile.NewRecord()
	rec.Remove["v0.9"] = reconcile.RemoveTag()

	current := &types.Config{Name: "acme/widget", Releases: []types.Release{{
		Tag:    types.Tag{Name: "v1.0"},
		Assets: []types.Asset{{Name: "a.zip", DownloadURL: "url://a.zip"}},
	}}}
	previous := &types.Config{Name: "acme/widget", Releases: []types.Release{
		current.Releases[0],
		{Tag: types.Tag{Name: "v0.9"}, Assets: []types.Asset{{Name: "old.bin"}}},
	}}

	s := New(mustResolve(t, targetDir), &fakeDownloader{}, nil, newStaging(t), Options{Concurrency: 1})
	res, err := s.Run(context.Background(), rec, current, previous)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Summary.Remove)
	assert.Equal(t, map[string]string{"v1.0/a.zip": "keep"}, targetTree(t, targetDir))
}

func TestRun_PublishFailureIsFatal(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{record: func(string) {}, err: errors.New("build exploded")}
	s := New(nil, &fakeDownloader{}, pub, newStaging(t), Options{Concurrency: 1})

	_, err := s.Run(context.Background(), reconcile.NewRecord(), &types.Config{Name: "acme/widget"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish failed")
}

func TestBuildSkeleton(t *testing.T) {
	t.Parallel()

	staging := newStaging(t)
	cfg := &types.Config{Name: "acme/widget", Releases: []types.Release{
		{
			Tag:    types.Tag{Name: "v1.0"},
			Assets: []types.Asset{{Name: "a.zip"}, {Name: "b.bin"}},
			ZipURL: "url://zip",
		},
		{
			Tag:    types.Tag{Name: "v1.1"},
			TarURL: "url://tar",
		},
	}}

	root, err := BuildSkeleton(staging, cfg)
	require.NoError(t, err)

	var got []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		got = append(got, filepath.ToSlash(rel))
		info, statErr := d.Info()
		require.NoError(t, statErr)
		assert.Zero(t, info.Size(), "placeholders must be empty")
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)

	assert.Equal(t, []string{
		"v1.0/a.zip",
		"v1.0/archive/widget-v1.0.zip",
		"v1.0/b.bin",
		"v1.1/archive/widget-v1.1.tar.gz",
	}, got)
}

func TestBuildSkeleton_EmptySnapshotStillHasRoot(t *testing.T) {
	t.Parallel()

	root, err := BuildSkeleton(newStaging(t), &types.Config{Name: "acme/widget"})
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, strings.HasSuffix(root, "skeleton"))
}

func mustResolve(t *testing.T, dir string) transfer.Transferrer {
	t.Helper()
	tr, err := transfer.Resolve(dir, transfer.Options{})
	require.NoError(t, err)
	return tr
}
