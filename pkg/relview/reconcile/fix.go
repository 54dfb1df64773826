package reconcile

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Prober reports whether the mirror target already holds the file at
// tag/filename. It must be safe for concurrent use.
type Prober func(ctx context.Context, tag, filename string) (bool, error)

// DeriveFix probes every unchanged file against the live target and
// promotes the missing ones into Fix, healing holes left by interrupted
// or partial runs. Files already scheduled under Add or Modify for their
// tag are never probed. Probes run concurrently, at most limit at a time.
//
// DeriveFix only checks existence; it never compares content.
func (r *Record) DeriveFix(ctx context.Context, probe Prober, limit int) error {
	type task struct {
		tag  string
		item Item
	}

	tags := make([]string, 0, len(r.PassedModify))
	for tag := range r.PassedModify {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	var tasks []task
	for _, tag := range tags {
		for _, it := range r.PassedModify[tag] {
			if contains(r.Add, tag, it.Filename) || contains(r.Modify, tag, it.Filename) {
				continue
			}
			tasks = append(tasks, task{tag: tag, item: it})
		}
	}
	if len(tasks) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}

	missing := make([]bool, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, tk := range tasks {
		g.Go(func() error {
			exists, err := probe(gctx, tk.tag, tk.item.Filename)
			if err != nil {
				return fmt.Errorf("failed to probe %s/%s: %w", tk.tag, tk.item.Filename, err)
			}
			missing[i] = !exists
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, tk := range tasks {
		if missing[i] {
			r.Fix[tk.tag] = append(r.Fix[tk.tag], tk.item)
		}
	}
	return nil
}
