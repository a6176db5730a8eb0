package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sparklepop/Code-Project-Review/internal/review"
	"github.com/sparklepop/Code-Project-Review/internal/source"
)

var cleanupMaxAge time.Duration

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove clone directories left behind by interrupted reviews",
	Long: `Remove repository clones older than cleanup.max_age from the clone
directory. Clones are normally deleted as soon as a review finishes; this
catches those left by a crashed or killed process. 'cpr serve' runs the
same sweep periodically.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cleanupRun()
	},
}

func init() {
	cleanupCmd.Flags().DurationVar(&cleanupMaxAge, "max-age", 0, "Minimum clone age to remove (default cleanup.max_age)")
	rootCmd.AddCommand(cleanupCmd)
}

func cleanupRun() error {
	cfg := review.DefaultConfig()
	maxAge := cfg.CleanupMaxAge
	if cleanupMaxAge > 0 {
		maxAge = cleanupMaxAge
	}
	root := cfg.Fetch.Root

	if dryRun {
		dirs, err := source.StaleClones(root, maxAge, time.Now())
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			ui.Info("No stale clones older than %s", maxAge)
			return nil
		}
		for _, d := range dirs {
			ui.DryRunMsg("Would remove %s", d)
		}
		return nil
	}

	n, err := source.Cleanup(root, maxAge, time.Now(), appLog)
	if err != nil {
		return err
	}
	if n == 0 {
		ui.Info("No stale clones older than %s", maxAge)
		return nil
	}
	ui.Success("Removed %d stale clone(s)", n)
	return nil
}
