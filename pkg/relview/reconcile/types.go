package reconcile

import (
	"encoding/json"
	"fmt"

	"github.com/Cnily03/release-viewer/pkg/relview/types"
)

// Item is one file scheduled for transfer: where to fetch it from and the
// tag-relative path it lands at (the asset name, or "archive/<name>" for
// archive slots).
type Item struct {
	// DownloadURL is the upstream location of the file content.
	DownloadURL string `json:"download_url"`

	// Filename is the path of the file relative to its tag directory.
	Filename string `json:"filename"`
}

// WholeTag is the serialized form of a removal covering an entire tag
// directory.
const WholeTag = "*"

// Removal describes what to delete under one tag: either the whole tag
// directory, or a specific list of files. The two forms are mutually
// exclusive; a Removal is always one or the other.
type Removal struct {
	wholeTag bool
	files    []string
}

// RemoveTag returns a removal covering the entire tag directory.
func RemoveTag() Removal {
	return Removal{wholeTag: true}
}

// RemoveFiles returns a removal covering only the named files.
func RemoveFiles(names ...string) Removal {
	return Removal{files: names}
}

// IsWholeTag reports whether the removal covers the entire tag directory.
func (r Removal) IsWholeTag() bool {
	return r.wholeTag
}

// Files returns the files to remove. It is empty for whole-tag removals.
func (r Removal) Files() []string {
	return r.files
}

// MarshalJSON encodes a whole-tag removal as the string "*" and a file
// removal as an array of filenames.
func (r Removal) MarshalJSON() ([]byte, error) {
	if r.wholeTag {
		return json.Marshal(WholeTag)
	}
	return json.Marshal(r.files)
}

// UnmarshalJSON accepts either the "*" sentinel or an array of filenames.
func (r *Removal) UnmarshalJSON(data []byte) error {
	var sentinel string
	if err := json.Unmarshal(data, &sentinel); err == nil {
		if sentinel != WholeTag {
			return fmt.Errorf("invalid removal %q: only %q may stand for a whole tag", sentinel, WholeTag)
		}
		*r = RemoveTag()
		return nil
	}

	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return fmt.Errorf("invalid removal: want %q or a filename list: %w", WholeTag, err)
	}
	*r = RemoveFiles(files...)
	return nil
}

// Record is the outcome of comparing a current snapshot against a
// previous one. Every map is keyed by tag name. For any tag, a filename
// appears in at most one of Add, Modify and Fix.
type Record struct {
	// Add holds files present in the current snapshot but not mirrored
	// yet: new tags contribute all their files, shared tags the assets
	// that appeared since the previous snapshot.
	Add map[string][]Item `json:"add,omitempty"`

	// Modify holds files present in both snapshots whose upstream
	// content changed (URL, size or digest).
	Modify map[string][]Item `json:"modify,omitempty"`

	// PassedModify holds files present in both snapshots and unchanged.
	// They are not transferred, but the fix pass probes them against the
	// live target and promotes missing ones into Fix.
	PassedModify map[string][]Item `json:"passed_modify,omitempty"`

	// Fix holds unchanged files found missing on the live target. They
	// are relocated before adds and modifies.
	Fix map[string][]Item `json:"fix,omitempty"`

	// Remove holds deletions per tag: the whole-tag sentinel for tags
	// that vanished, or filename lists for assets dropped from a tag
	// that still exists.
	Remove map[string]Removal `json:"remove,omitempty"`
}

// NewRecord returns an empty record with all maps allocated.
func NewRecord() *Record {
	return &Record{
		Add:          make(map[string][]Item),
		Modify:       make(map[string][]Item),
		PassedModify: make(map[string][]Item),
		Fix:          make(map[string][]Item),
		Remove:       make(map[string]Removal),
	}
}

// contains reports whether the record already schedules filename under
// tag in the given bucket.
func contains(bucket map[string][]Item, tag, filename string) bool {
	for _, it := range bucket[tag] {
		if it.Filename == filename {
			return true
		}
	}
	return false
}

// Summary are the reconciliation counters shown to the user and used to
// decide whether a sync pass is needed at all.
type Summary struct {
	// Add is the number of files scheduled for first-time transfer.
	Add int `json:"add"`

	// Modify is the number of changed files scheduled for re-transfer.
	Modify int `json:"modify"`

	// Fix is the number of unchanged files found missing on the target.
	Fix int `json:"fix"`

	// Remove is the number of files scheduled for deletion. Whole-tag
	// removals count every file the previous snapshot recorded for that
	// tag.
	Remove int `json:"remove"`

	// Unchanged is the number of files needing no action.
	Unchanged int `json:"unchanged"`
}

// NeedSync reports whether any transfer, fix or removal work remains.
func (s Summary) NeedSync() bool {
	return s.Add > 0 || s.Modify > 0 || s.Fix > 0 || s.Remove > 0
}

// Summarize counts the record's work items. previous is consulted to
// expand whole-tag removals into file counts; it may be nil when no
// previous snapshot exists.
func (r *Record) Summarize(previous *types.Config) Summary {
	var s Summary
	for _, items := range r.Add {
		s.Add += len(items)
	}
	for _, items := range r.Modify {
		s.Modify += len(items)
	}
	for _, items := range r.Fix {
		s.Fix += len(items)
	}
	for tag, items := range r.PassedModify {
		s.Unchanged += len(items) - len(r.Fix[tag])
	}
	for tag, rm := range r.Remove {
		if !rm.IsWholeTag() {
			s.Remove += len(rm.Files())
			continue
		}
		if previous != nil {
			if rel, ok := previous.Release(tag); ok {
				s.Remove += rel.FileCount()
			}
		}
	}
	return s
}
