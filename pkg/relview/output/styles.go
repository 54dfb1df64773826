package output

import "github.com/charmbracelet/lipgloss"

// Color constants using the ANSI 256-color palette, shared across
// formatters.
const (
	// ColorPrimary is used for headers and emphasized values (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess is used for positive status indicators (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for warnings and failed items (orange).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger is used for errors (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for secondary text (gray).
	ColorMuted = lipgloss.Color("245")
)

var (
	// HeaderBox frames the run header.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// LabelStyle renders field labels (e.g. "Repository:").
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// CountStyle renders operation counters.
	CountStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// SuccessStyle renders positive status text.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// WarningStyle renders warnings and failed downloads.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// MutedStyle renders secondary text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
