package output

import (
	"bytes"
	"fmt"

	"github.com/Cnily03/release-viewer/pkg/relview/mirror"
)

// PlainFormatter renders an unstyled, grep-friendly summary.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *mirror.Result) error {
	fmt.Fprintf(w, "repo: %s\n", r.Repo)
	fmt.Fprintf(w, "add: %d\n", r.Summary.Add)
	fmt.Fprintf(w, "modify: %d\n", r.Summary.Modify)
	fmt.Fprintf(w, "fix: %d\n", r.Summary.Fix)
	fmt.Fprintf(w, "remove: %d\n", r.Summary.Remove)
	fmt.Fprintf(w, "unchanged: %d\n", r.Summary.Unchanged)
	fmt.Fprintf(w, "downloaded: %d\n", r.Downloaded)
	fmt.Fprintf(w, "published: %t\n", r.Published)
	fmt.Fprintf(w, "duration: %s\n", r.Duration)
	for _, item := range r.Failed {
		fmt.Fprintf(w, "failed: %s/%s (%s): %s\n", item.Tag, item.Filename, item.Kind, item.Error)
	}
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

var _ Formatter = (*PlainFormatter)(nil)
