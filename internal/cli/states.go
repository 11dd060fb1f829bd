package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bnema/photup/internal/cli/styles"
	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/state"
)

func newStatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List saved backup states",
		Long:  "Lists every saved backup state with its progress and quota usage, so you can see which directories have backups in flight.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(); err != nil {
				return fmt.Errorf("failed to initialize config: %w", err)
			}
			cfg := config.Get()

			files, err := state.ListFiles(cfg.StateDir)
			if err != nil {
				return err
			}

			theme := styles.NewTheme()
			if len(files) == 0 {
				fmt.Println(theme.Subtle.Render("No saved backup states."))
				return nil
			}

			table := styles.NewTable(theme, "Directory", "Uploaded", "Failed", "Albums", "Daily quota", "Last updated")
			for _, path := range files {
				info, err := state.ReadInfo(path)
				if err != nil {
					table.AddRow(path, "-", "-", "-", "-", "unreadable")
					continue
				}
				table.AddRow(
					info.BaseDirectory,
					strconv.Itoa(info.UploadedCount),
					strconv.Itoa(info.FailedCount),
					strconv.Itoa(info.AlbumCount),
					quotaLine(info.DailyRequests, info.DailyDate),
					info.LastUpdated.Format("2006-01-02 15:04"),
				)
			}
			fmt.Println(table.Render())
			return nil
		},
	}
}
