package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Cnily03/release-viewer/pkg/relview/config"
	"github.com/Cnily03/release-viewer/pkg/relview/logging"
	"github.com/Cnily03/release-viewer/pkg/relview/reconcile"
	"github.com/Cnily03/release-viewer/pkg/relview/types"
)

var diffCmd = &cobra.Command{
	Use:   "diff <owner>/<repo>",
	Short: "Show what a sync would change without applying it",
	Long: `Diff fetches the repository's current releases, compares them against
a previous snapshot, and prints the resulting change record as JSON.
Nothing is downloaded or transferred.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringP("compare", "c", "", "previous snapshot to diff against")
	diffCmd.Flags().Bool("summary", false, "print counts instead of the full record")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	current, err := fetchCurrent(ctx, cfg, args[0])
	if err != nil {
		return err
	}

	comparePath, _ := cmd.Flags().GetString("compare")
	var previous *types.Config
	if comparePath != "" {
		previous, err = loadCompare(comparePath, logging.Get("diff"))
		if err != nil {
			return err
		}
	}

	rec := reconcile.Compute(current, previous)

	if summary, _ := cmd.Flags().GetBool("summary"); summary {
		s := rec.Summarize(previous)
		cmd.Printf("add: %d\nmodify: %d\nfix: %d\nremove: %d\nunchanged: %d\n",
			s.Add, s.Modify, s.Fix, s.Remove, s.Unchanged)
		return nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode record: %v", errInternal, err)
	}
	cmd.Println(string(data))
	return nil
}
