package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relview <owner>/<repo>",
	Short: "Mirror release assets and publish a release download site",
	Long: `Relview fetches release metadata from the hosting API, diffs it
against a previous snapshot, and incrementally downloads, publishes and
prunes the mirrored release files.

Examples:
  relview acme/widget -d /srv/releases                 # sync into a local tree
  relview acme/widget -d deploy@mirror:/srv/releases   # sync over rsync
  relview acme/widget -d s3://releases/widget          # sync into object storage
  relview acme/widget -c prev.json -o current.json     # incremental with snapshots
  relview fetch acme/widget -o snapshot.json           # ingestion only
  relview diff acme/widget -c prev.json                # inspect without applying`,
	Args:          cobra.ExactArgs(1),
	RunE:          runSync,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addSyncFlags(rootCmd)
}

// addSyncFlags registers the sync flag surface on cmd.
func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("download-target", "d", "", "directory or remote spec to mirror release files into")
	cmd.Flags().StringP("url-template", "t", "", "download URL template for published links ({tag} {name} {release} {url})")
	cmd.Flags().Bool("fast-fail", false, "abort the run on the first failed download")
	cmd.Flags().Bool("fast-sync", false, "relocate each file right after its download instead of batching")
	cmd.Flags().Int("concurrency", 0, "concurrent downloads (default from config, min 1)")
	cmd.Flags().StringP("build-base", "b", "", "base path the site is built under")
	cmd.Flags().String("www-root", "", "directory the site build writes into (empty skips the build)")
	cmd.Flags().StringP("save", "o", "", "write the fetched snapshot to this path")
	cmd.Flags().StringP("compare", "c", "", "previous snapshot to diff against")
	cmd.Flags().String("format", "pretty", "result format (pretty, plain, json)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
