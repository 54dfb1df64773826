package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Cnily03/release-viewer/pkg/relview/config"
	"github.com/Cnily03/release-viewer/pkg/relview/manifest"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View past sync runs",
	Long: `View the journal of past sync runs.

Each run records what was added, modified, fixed and removed, along
with any downloads that failed and remain eligible for the next run's
fix pass.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show details of a specific run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove journal entries older than the retention period",
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func getJournal() (*manifest.Manifest, error) {
	cfg, err := config.Load()
	if err != nil {
		return manifest.New(config.DefaultJournalDir())
	}
	return manifest.New(cfg.Journal.Path)
}

func runHistory(cmd *cobra.Command, args []string) error {
	m, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list journal: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("No journal entries found.")
		cmd.Println("Run 'relview <owner>/<repo>' to sync a repository.")
		return nil
	}

	cmd.Printf("\n%-34s  %-24s  %-6s  %-6s  %-10s\n", "ID", "REPO", "FILES", "FAILED", "SIZE")
	cmd.Println(strings.Repeat("-", 90))

	for _, entry := range entries {
		cmd.Printf("%-34s  %-24s  %-6d  %-6d  %-10s\n",
			truncateString(entry.ID, 34),
			truncateString(entry.Repo, 24),
			entry.Downloaded,
			len(entry.Failed),
			humanize.IBytes(uint64(entry.DownloadedBytes)),
		)
	}

	cmd.Println(strings.Repeat("-", 90))
	cmd.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	cmd.Println("Use 'relview history show <id>' for details on a specific run.")

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	m, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	cmd.Println("\nSync Run")
	cmd.Println(strings.Repeat("=", 60))
	cmd.Printf("ID:         %s\n", entry.ID)
	cmd.Printf("Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	cmd.Printf("Repository: %s\n", entry.Repo)
	cmd.Printf("Downloaded: %d files (%s)\n", entry.Downloaded, humanize.IBytes(uint64(entry.DownloadedBytes)))
	cmd.Printf("Duration:   %s\n", entry.Duration)
	cmd.Printf("Published:  %v\n", entry.Published)
	cmd.Printf("Changes:    %d added, %d modified, %d fixed, %d removed, %d unchanged\n",
		entry.Summary.Add, entry.Summary.Modify, entry.Summary.Fix,
		entry.Summary.Remove, entry.Summary.Unchanged)

	if len(entry.Failed) > 0 {
		cmd.Println("\nFailed downloads:")
		cmd.Println(strings.Repeat("-", 60))
		for _, f := range entry.Failed {
			cmd.Printf("  %s/%s (%s): %s\n", f.Tag, f.Filename, f.Kind, f.Error)
		}
	}

	return nil
}

func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	m, err := manifest.New(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	retentionDays := cfg.Journal.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	cmd.Printf("Cleaning journal entries older than %d days...\n", retentionDays)

	if err := m.Cleanup(retentionDays); err != nil {
		return fmt.Errorf("failed to clean journal: %w", err)
	}

	cmd.Println("Journal cleanup complete.")
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
