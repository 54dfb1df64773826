// Package mirror executes a reconciliation record against the download
// target: it stages new and changed files under bounded concurrency,
// relocates them into the target tree in fix/add/modify order,
// republishes the site, and finally deletes files the current snapshot
// no longer claims.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Cnily03/release-viewer/pkg/relview/fetch"
	"github.com/Cnily03/release-viewer/pkg/relview/gate"
	"github.com/Cnily03/release-viewer/pkg/relview/logging"
	"github.com/Cnily03/release-viewer/pkg/relview/reconcile"
	"github.com/Cnily03/release-viewer/pkg/relview/transfer"
	"github.com/Cnily03/release-viewer/pkg/relview/types"
	"github.com/Cnily03/release-viewer/pkg/relview/workdir"
)

// ErrFailFast aborts a run on the first failed download.
var ErrFailFast = errors.New("download failed under fail-fast")

// Operation kinds, in relocation order. Fix first restores files that
// should already exist, add introduces new ones, modify overwrites
// last, so an interruption never leaves an added file missing a later
// change.
var kinds = []string{"fix", "add", "modify"}

// Options controls a sync run.
type Options struct {
	// FailFast aborts the whole run on the first download failure
	// instead of carrying on with the remaining items.
	FailFast bool

	// FastSync relocates each file right after its own download
	// finishes instead of waiting for the batch. Lower latency per
	// file, no batch atomicity; safe because relocation is idempotent
	// per file.
	FastSync bool

	// Concurrency bounds in-flight downloads. Values below 1 mean 1.
	Concurrency int
}

// Downloader is the reliable file-fetch primitive; *fetch.Fetcher
// implements it.
type Downloader interface {
	Fetch(ctx context.Context, url, destPath string) error
}

// Publisher regenerates the published site from a snapshot.
type Publisher interface {
	Publish(ctx context.Context, cfg *types.Config) error
}

// FailedItem records one download that did not make it this run.
type FailedItem struct {
	// Kind is the operation bucket the item came from.
	Kind string `json:"kind"`

	// Tag is the release tag.
	Tag string `json:"tag"`

	// Filename is the tag-relative file path.
	Filename string `json:"filename"`

	// Error is the failure message.
	Error string `json:"error"`
}

// Result is what one sync run did.
type Result struct {
	// Repo is the repository full name.
	Repo string `json:"repo"`

	// Summary holds the per-kind counters of the reconciliation.
	Summary reconcile.Summary `json:"summary"`

	// Downloaded is the number of files staged successfully.
	Downloaded int `json:"downloaded"`

	// DownloadedBytes is the total size of staged files.
	DownloadedBytes int64 `json:"downloaded_bytes"`

	// Failed lists downloads that failed this run. They stay eligible
	// for the fix pass next run.
	Failed []FailedItem `json:"failed,omitempty"`

	// Published reports whether the site build ran.
	Published bool `json:"published"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`
}

// Syncer drives the transfer phases of the pipeline.
type Syncer struct {
	target     transfer.Transferrer // nil when no download target is configured
	downloader Downloader
	publisher  Publisher // nil when no build step is configured
	staging    *workdir.Dir
	opts       Options
}

// New assembles a Syncer. target and publisher may be nil; the
// corresponding phases are skipped.
func New(target transfer.Transferrer, downloader Downloader, publisher Publisher, staging *workdir.Dir, opts Options) *Syncer {
	if downloader == nil {
		downloader = fetch.New()
	}
	return &Syncer{
		target:     target,
		downloader: downloader,
		publisher:  publisher,
		staging:    staging,
		opts:       opts,
	}
}

// Run executes the record against the target. previous is the compare
// snapshot, consulted only to expand whole-tag removal counts; it may
// be nil. Stage failures are collected in the result; relocation,
// publish and removal failures are returned as errors.
func (s *Syncer) Run(ctx context.Context, rec *reconcile.Record, current, previous *types.Config) (*Result, error) {
	start := time.Now()
	res := &Result{
		Repo:    current.Name,
		Summary: rec.Summarize(previous),
	}

	needSync := res.Summary.NeedSync() && s.target != nil
	if needSync {
		if err := s.stage(ctx, rec, res); err != nil {
			return res, err
		}
		if !s.opts.FastSync {
			if err := s.relocate(ctx); err != nil {
				return res, err
			}
		}
	} else {
		logging.Get("mirror").Info("target in sync, skipping transfer phases", "repo", current.Name)
	}

	// Publish runs even when nothing changed, so the site metadata
	// always tracks the current snapshot.
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, current); err != nil {
			return res, fmt.Errorf("publish failed: %w", err)
		}
		res.Published = true
	}

	if needSync && res.Summary.Remove > 0 {
		if err := s.remove(ctx, current); err != nil {
			return res, err
		}
	}

	res.Duration = time.Since(start)
	logging.Get("mirror").Info("sync run complete",
		"repo", current.Name,
		"downloaded", res.Downloaded,
		"failed", len(res.Failed),
		"duration", res.Duration)
	return res, nil
}

// stage downloads every fix, add and modify item into the staging
// tree, bounded by the gate. Under FastSync each file moves to its
// final location as soon as its own download completes.
func (s *Syncer) stage(ctx context.Context, rec *reconcile.Record, res *Result) error {
	g := gate.New(s.opts.Concurrency)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex

	for _, kind := range kinds {
		bucket := bucketFor(rec, kind)
		for _, tag := range sortedTags(bucket) {
			for _, item := range bucket[tag] {
				if err := g.Acquire(runCtx); err != nil {
					break
				}
				go func(kind, tag string, item reconcile.Item) {
					defer g.Release()

					size, err := s.stageOne(runCtx, kind, tag, item)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						res.Failed = append(res.Failed, FailedItem{
							Kind:     kind,
							Tag:      tag,
							Filename: item.Filename,
							Error:    err.Error(),
						})
						if s.opts.FailFast {
							cancel()
						}
						return
					}
					res.Downloaded++
					res.DownloadedBytes += size
				}(kind, tag, item)
			}
		}
	}

	// Drain: every launched download acquired its slot up front, so an
	// idle gate means the last one has released. Draining with a
	// background context keeps cancellation from returning while
	// goroutines still update the result.
	_ = g.Wait(context.Background())

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.opts.FailFast && len(res.Failed) > 0 {
		f := res.Failed[0]
		return fmt.Errorf("%w: %s/%s: %s", ErrFailFast, f.Tag, f.Filename, f.Error)
	}
	return nil
}

// stageOne downloads a single item, and relocates it inline under
// FastSync. It returns the downloaded size.
func (s *Syncer) stageOne(ctx context.Context, kind, tag string, item reconcile.Item) (int64, error) {
	dest, err := s.staging.Path(kind, tag, item.Filename)
	if err != nil {
		return 0, err
	}
	logging.Get("mirror").Debug("staging file", "kind", kind, "tag", tag, "file", item.Filename)
	if err := s.downloader.Fetch(ctx, item.DownloadURL, dest); err != nil {
		return 0, err
	}
	var size int64
	if info, err := os.Stat(dest); err == nil {
		size = info.Size()
	}
	if s.opts.FastSync {
		if err := s.target.Move(ctx, dest, tag+"/"+item.Filename); err != nil {
			return size, fmt.Errorf("failed to relocate %s/%s: %w", tag, item.Filename, err)
		}
	}
	return size, nil
}

// relocate bulk-copies the staged subtrees into the target, fix first,
// then add, then modify.
func (s *Syncer) relocate(ctx context.Context) error {
	for _, kind := range kinds {
		subtree := s.staging.Subtree(kind)
		files, err := stagedCount(subtree)
		if err != nil {
			return err
		}
		if files == 0 {
			continue
		}
		logging.Get("mirror").Info("relocating staged files", "kind", kind, "files", files)
		if err := s.target.Copy(ctx, subtree); err != nil {
			return fmt.Errorf("failed to relocate %s files: %w", kind, err)
		}
	}
	return nil
}

// remove deletes target files the current snapshot no longer claims,
// by mirroring against a skeleton of the expected tree.
func (s *Syncer) remove(ctx context.Context, current *types.Config) error {
	skeleton, err := BuildSkeleton(s.staging, current)
	if err != nil {
		return err
	}
	logging.Get("mirror").Info("removing files absent from snapshot", "repo", current.Name)
	if err := s.target.Mirror(ctx, skeleton); err != nil {
		return fmt.Errorf("failed to remove extraneous files: %w", err)
	}
	return nil
}

// bucketFor maps an operation kind to its record bucket.
func bucketFor(rec *reconcile.Record, kind string) map[string][]reconcile.Item {
	switch kind {
	case "fix":
		return rec.Fix
	case "add":
		return rec.Add
	default:
		return rec.Modify
	}
}

// sortedTags returns the bucket's tags in stable order. Order across
// tags carries no correctness weight; sorting just keeps logs and
// retries deterministic.
func sortedTags(bucket map[string][]reconcile.Item) []string {
	tags := make([]string, 0, len(bucket))
	for tag := range bucket {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
