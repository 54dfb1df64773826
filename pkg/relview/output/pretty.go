package output

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Cnily03/release-viewer/pkg/relview/mirror"
)

// PrettyFormatter renders a styled terminal summary using lipgloss.
type PrettyFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *mirror.Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")
	w.WriteString(f.formatCounts(r))
	if len(r.Failed) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatFailed(r))
	}
	return nil
}

// formatHeader builds the header box with run metadata.
func (f *PrettyFormatter) formatHeader(r *mirror.Result) string {
	var lines []string

	repoLabel := LabelStyle.Render("Repository:")
	repoValue := ValueStyle.Render(r.Repo)
	lines = append(lines, fmt.Sprintf("%s %s", repoLabel, repoValue))

	var infoParts []string
	if r.Downloaded > 0 {
		dlLabel := LabelStyle.Render("Downloaded:")
		dlValue := ValueStyle.Render(fmt.Sprintf("%d files (%s)",
			r.Downloaded, humanize.IBytes(uint64(r.DownloadedBytes))))
		infoParts = append(infoParts, fmt.Sprintf("%s %s", dlLabel, dlValue))
	}
	infoParts = append(infoParts, LabelStyle.Render("Took:")+" "+ValueStyle.Render(formatDuration(r.Duration)))
	infoParts = append(infoParts, f.formatStatus(r))
	lines = append(lines, strings.Join(infoParts, "  "))

	return HeaderBox.Render(strings.Join(lines, "\n"))
}

// formatStatus returns a styled one-word run status.
func (f *PrettyFormatter) formatStatus(r *mirror.Result) string {
	switch {
	case len(r.Failed) > 0:
		return WarningStyle.Render(fmt.Sprintf("%d failed", len(r.Failed)))
	case !r.Summary.NeedSync():
		return MutedStyle.Render("in sync")
	default:
		return SuccessStyle.Render("synced")
	}
}

// formatCounts builds the per-operation counter lines.
func (f *PrettyFormatter) formatCounts(r *mirror.Result) string {
	rows := []struct {
		label string
		count int
	}{
		{"added", r.Summary.Add},
		{"modified", r.Summary.Modify},
		{"fixed", r.Summary.Fix},
		{"removed", r.Summary.Remove},
		{"unchanged", r.Summary.Unchanged},
	}

	var sb strings.Builder
	for _, row := range rows {
		count := CountStyle.Render(fmt.Sprintf("%5d", row.count))
		if row.count == 0 {
			count = MutedStyle.Render(fmt.Sprintf("%5d", row.count))
		}
		sb.WriteString(fmt.Sprintf("  %s  %s\n", count, LabelStyle.Render(row.label)))
	}
	if r.Published {
		sb.WriteString("  " + SuccessStyle.Render("site published") + "\n")
	}
	return sb.String()
}

// formatFailed builds the failed-download block.
func (f *PrettyFormatter) formatFailed(r *mirror.Result) string {
	var sb strings.Builder
	sb.WriteString(WarningStyle.Bold(true).Render("Failed downloads:"))
	sb.WriteString("\n")
	for _, item := range r.Failed {
		sb.WriteString(WarningStyle.Render(fmt.Sprintf("  %s/%s: %s", item.Tag, item.Filename, item.Error)))
		sb.WriteString("\n")
	}
	sb.WriteString(MutedStyle.Render("  Failed files retry via the fix pass on the next run"))
	sb.WriteString("\n")
	return sb.String()
}

// formatDuration renders a duration human-first.
func formatDuration(d time.Duration) string {
	sec := d.Seconds()
	switch {
	case sec < 1:
		return fmt.Sprintf("%.0fms", sec*1000)
	case sec < 60:
		return fmt.Sprintf("%.1fs", sec)
	default:
		minutes := int(sec) / 60
		return fmt.Sprintf("%dm %ds", minutes, int(sec)%60)
	}
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

var _ Formatter = (*PrettyFormatter)(nil)
