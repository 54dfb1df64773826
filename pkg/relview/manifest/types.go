package manifest

import (
	"time"

	"github.com/Cnily03/release-viewer/pkg/relview/reconcile"
)

// FailedRecord is one download that did not complete during a run.
type FailedRecord struct {
	// Kind is the operation bucket (fix, add, modify).
	Kind string `json:"kind"`

	// Tag is the release tag.
	Tag string `json:"tag"`

	// Filename is the tag-relative file path.
	Filename string `json:"filename"`

	// Error is the failure message.
	Error string `json:"error"`
}

// Entry is one journaled sync run.
type Entry struct {
	// ID uniquely identifies the run, e.g.
	// "sync-2024-06-15T10-30-00-abc123".
	ID string `json:"id"`

	// Timestamp is when the run was journaled (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Repo is the repository full name.
	Repo string `json:"repo"`

	// Summary holds the reconciliation counters of the run.
	Summary reconcile.Summary `json:"summary"`

	// Downloaded is how many files were staged successfully.
	Downloaded int `json:"downloaded"`

	// DownloadedBytes is the total size of staged files.
	DownloadedBytes int64 `json:"downloaded_bytes"`

	// Failed lists downloads that failed and stay eligible for the
	// next run's fix pass.
	Failed []FailedRecord `json:"failed,omitempty"`

	// Published reports whether the site build ran.
	Published bool `json:"published"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`
}
