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
	"github.com/Cnily03/release-viewer/pkg/relview/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <owner>/<repo>",
	Short: "Fetch release metadata and write a snapshot document",
	Long: `Fetch ingests the repository's releases from the hosting API and
writes the normalized snapshot document, without diffing or
transferring anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringP("save", "o", "", "snapshot output path (default: stdout)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	savePath, _ := cmd.Flags().GetString("save")
	if savePath == "" {
		data, err := snapshotJSON(current)
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}
	if err := current.Save(savePath); err != nil {
		return fmt.Errorf("%w: %v", errInternal, err)
	}
	cmd.Printf("Saved %d releases of %s to %s\n", len(current.Releases), current.Name, savePath)
	return nil
}

func snapshotJSON(cfg *types.Config) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %v", errInternal, err)
	}
	return data, nil
}
