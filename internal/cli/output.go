package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/bnema/photup/internal/backup"
	"github.com/bnema/photup/internal/cli/styles"
	"github.com/bnema/photup/internal/quota"
)

func printSummary(summary *backup.Summary, tracker *quota.Tracker, dryRun bool) {
	theme := styles.NewTheme()

	title := "Backup complete"
	switch {
	case dryRun:
		title = "Dry run"
	case summary.Interrupted:
		title = "Backup interrupted"
	case summary.StopReason != "":
		title = "Backup paused"
	}
	fmt.Println(theme.Title.Render(title))

	pairs := [][2]string{
		{"Uploaded", strconv.Itoa(summary.Uploaded)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
		{"Failed", strconv.Itoa(summary.Failed)},
		{"Directories", strconv.Itoa(summary.Directories)},
	}
	fmt.Println(styles.KeyValues(theme, pairs))

	if dryRun && len(summary.AlbumPreview) > 0 {
		names := make([]string, 0, len(summary.AlbumPreview))
		for name := range summary.AlbumPreview {
			names = append(names, name)
		}
		sort.Strings(names)

		table := styles.NewTable(theme, "Album", "Files")
		for _, name := range names {
			table.AddRow(name, strconv.Itoa(summary.AlbumPreview[name]))
		}
		fmt.Println()
		fmt.Println(theme.Subtitle.Render("Albums that would be used:"))
		fmt.Println(table.Render())
	}

	if summary.StopReason != "" {
		fmt.Println(theme.WarningStyle.Render(summary.StopReason))
	}
	if summary.Failed > 0 {
		fmt.Println(theme.ErrorStyle.Render(fmt.Sprintf("%d file(s) failed; rerun to retry them", summary.Failed)))
	}

	if !dryRun {
		fmt.Println()
		fmt.Println(theme.Subtle.Render(tracker.Summary()))
		if warn, reason := tracker.ShouldWarn(); warn {
			fmt.Println(theme.WarningStyle.Render(reason))
		}
	}
}

// quotaLine is a compact single-line rendering used by the states listing.
func quotaLine(used int, date string) string {
	if date == "" {
		return "-"
	}
	return fmt.Sprintf("%d on %s", used, date)
}
