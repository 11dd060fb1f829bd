// Package cli provides the command-line interface for photup.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/photup/internal/backup"
)

// rootFlags holds every flag of the root backup command.
type rootFlags struct {
	skipExisting  bool
	mergeExisting bool
	albumName     string
	albumFull     bool
	albumLeaf     bool
	dryRun        bool
	verbose       bool
	maxRequests   int

	resetState     bool
	resetQuotaOnly bool
	setQuotaUsage  int
	clearFailures  bool

	// maxRequestsSetExplicitly records whether --max-requests was passed,
	// so the flag default does not shadow the config file value.
	maxRequestsSetExplicitly bool
}

// NewRootCmd creates the root command for photup
func NewRootCmd(version, commit, buildDate string) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "photup <directory>",
		Short: "Resumable media backup to your photo library",
		Long: `photup uploads a directory tree of photos and videos to your photo
library, one album per directory. Progress is saved after every file, so an
interrupted or quota-limited run resumes where it left off.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.maxRequestsSetExplicitly = cmd.Flags().Changed("max-requests")
			return runBackup(cmd.Context(), args[0], flags)
		},
	}

	rootCmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "skip directories whose album already exists")
	rootCmd.Flags().BoolVar(&flags.mergeExisting, "merge-existing", false, "add new files to albums that already exist")
	rootCmd.Flags().StringVar(&flags.albumName, "album-name", "", "upload everything into one album with this name")
	rootCmd.Flags().BoolVar(&flags.albumFull, "album-name-full", false, "name albums after the full path below the base directory")
	rootCmd.Flags().BoolVar(&flags.albumLeaf, "album-name-leaf", false, "name albums after the directory name only")
	rootCmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "show what would be uploaded without making any requests")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().IntVar(&flags.maxRequests, "max-requests", 9500, "session request ceiling")
	rootCmd.Flags().BoolVar(&flags.resetState, "reset-state", false, "discard the saved state for this directory and back up from scratch")
	rootCmd.Flags().BoolVar(&flags.resetQuotaOnly, "reset-quota-only", false, "zero the quota counters before the run, keeping upload history")
	rootCmd.Flags().IntVar(&flags.setQuotaUsage, "set-quota-usage", -1, "set today's recorded request count before the run")
	rootCmd.Flags().BoolVar(&flags.clearFailures, "clear-failures", false, "forget failure records so failed files retry from scratch")

	rootCmd.MarkFlagsMutuallyExclusive("skip-existing", "merge-existing")
	rootCmd.MarkFlagsMutuallyExclusive("reset-state", "reset-quota-only")
	rootCmd.MarkFlagsMutuallyExclusive("reset-state", "set-quota-usage")
	rootCmd.MarkFlagsMutuallyExclusive("reset-quota-only", "set-quota-usage")
	rootCmd.MarkFlagsMutuallyExclusive("album-name-full", "album-name-leaf")
	rootCmd.MarkFlagsMutuallyExclusive("album-name", "album-name-full")
	rootCmd.MarkFlagsMutuallyExclusive("album-name", "album-name-leaf")

	rootCmd.AddCommand(newStatesCmd())
	rootCmd.AddCommand(newVersionCmd(version, commit, buildDate))

	return rootCmd
}

// naming maps the album naming flags onto a strategy.
func (f *rootFlags) naming() backup.NamingStrategy {
	switch {
	case f.albumFull:
		return backup.NamingFull
	case f.albumLeaf:
		return backup.NamingLeaf
	default:
		return backup.NamingRelative
	}
}

func (f *rootFlags) options() backup.Options {
	return backup.Options{
		SkipExisting:  f.skipExisting,
		MergeExisting: f.mergeExisting,
		AlbumName:     f.albumName,
		Naming:        f.naming(),
		DryRun:        f.dryRun,
	}
}

func newVersionCmd(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("photup %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
