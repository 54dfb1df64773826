// Package reconcile computes the work needed to bring a mirrored release
// tree in line with a fresh snapshot. It diffs the current snapshot
// against the previous one into per-tag add, modify and remove sets,
// and derives a fix set by probing unchanged files against the live
// target.
package reconcile

import (
	"github.com/Cnily03/release-viewer/pkg/relview/types"
)

// Compute diffs current against previous. Asset identity is the filename
// within a tag; an asset is unchanged only when its name, download URL,
// size and digest all match. Archive slots join the diff as pseudo-assets
// keyed by their synthetic filename, compared by URL alone.
//
// A nil or empty previous snapshot marks every file as an add and
// schedules no removals.
func Compute(current, previous *types.Config) *Record {
	rec := NewRecord()
	repo := current.RepoName()

	for i := range current.Releases {
		rel := &current.Releases[i]
		tag := rel.Tag.Name

		var prev *types.Release
		if previous != nil {
			if p, ok := previous.Release(tag); ok {
				prev = p
			}
		}
		if prev == nil {
			rec.Add[tag] = releaseItems(repo, rel)
			continue
		}
		diffShared(rec, repo, rel, prev)
	}

	if previous == nil {
		return rec
	}
	for i := range previous.Releases {
		prev := &previous.Releases[i]
		tag := prev.Tag.Name

		cur, ok := current.Release(tag)
		if !ok {
			rec.Remove[tag] = RemoveTag()
			continue
		}
		if gone := removedFiles(repo, cur, prev); len(gone) > 0 {
			rec.Remove[tag] = RemoveFiles(gone...)
		}
	}
	return rec
}

// releaseItems lists every file of a release as transfer items: assets in
// snapshot order, then the zip and tar archive slots.
func releaseItems(repo string, rel *types.Release) []Item {
	items := make([]Item, 0, rel.FileCount())
	for _, a := range rel.Assets {
		items = append(items, Item{DownloadURL: a.DownloadURL, Filename: a.Name})
	}
	tag := rel.Tag.Name
	if rel.ZipURL != "" {
		items = append(items, Item{
			DownloadURL: rel.ZipURL,
			Filename:    types.ArchiveFilename(repo, tag, types.ArchiveExtZip),
		})
	}
	if rel.TarURL != "" {
		items = append(items, Item{
			DownloadURL: rel.TarURL,
			Filename:    types.ArchiveFilename(repo, tag, types.ArchiveExtTar),
		})
	}
	return items
}

// diffShared classifies the files of a tag present in both snapshots.
// Every current file lands in exactly one of Add, Modify or PassedModify.
func diffShared(rec *Record, repo string, rel, prev *types.Release) {
	tag := rel.Tag.Name
	for _, a := range rel.Assets {
		item := Item{DownloadURL: a.DownloadURL, Filename: a.Name}
		old, ok := prev.Asset(a.Name)
		switch {
		case !ok:
			rec.Add[tag] = append(rec.Add[tag], item)
		case a.Same(old):
			rec.PassedModify[tag] = append(rec.PassedModify[tag], item)
		default:
			rec.Modify[tag] = append(rec.Modify[tag], item)
		}
	}
	diffArchive(rec, tag, rel.ZipURL, prev.ZipURL, types.ArchiveFilename(repo, tag, types.ArchiveExtZip))
	diffArchive(rec, tag, rel.TarURL, prev.TarURL, types.ArchiveFilename(repo, tag, types.ArchiveExtTar))
}

// diffArchive classifies one archive slot. Removal of a vanished slot is
// handled by removedFiles.
func diffArchive(rec *Record, tag, curURL, prevURL, filename string) {
	if curURL == "" {
		return
	}
	item := Item{DownloadURL: curURL, Filename: filename}
	switch {
	case prevURL == "":
		rec.Add[tag] = append(rec.Add[tag], item)
	case curURL == prevURL:
		rec.PassedModify[tag] = append(rec.PassedModify[tag], item)
	default:
		rec.Modify[tag] = append(rec.Modify[tag], item)
	}
}

// removedFiles lists the files of a shared tag that the previous snapshot
// had and the current one no longer does.
func removedFiles(repo string, cur, prev *types.Release) []string {
	var gone []string
	for _, a := range prev.Assets {
		if _, ok := cur.Asset(a.Name); !ok {
			gone = append(gone, a.Name)
		}
	}
	tag := prev.Tag.Name
	if prev.ZipURL != "" && cur.ZipURL == "" {
		gone = append(gone, types.ArchiveFilename(repo, tag, types.ArchiveExtZip))
	}
	if prev.TarURL != "" && cur.TarURL == "" {
		gone = append(gone, types.ArchiveFilename(repo, tag, types.ArchiveExtTar))
	}
	return gone
}
