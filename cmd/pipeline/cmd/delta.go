package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var windowDays int

var deltaCmd = &cobra.Command{
	Use:   "delta",
	Short: "Trailing-window refresh",
	Long: `Re-syncs the last N days (7 by default) to pick up new and amended
records. An explicit --start-date overrides the trailing window.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, end := deltaWindow(startDate, endDate, windowDays, time.Now().UTC())
		return runSync(cmd.Context(), start, end)
	},
}

// deltaWindow resolves the sync window: explicit dates win, the trailing
// window fills in whatever was omitted.
func deltaWindow(start, end string, days int, now time.Time) (string, string) {
	if start == "" {
		start = now.AddDate(0, 0, -days).Format("2006-01-02")
	}
	if end == "" {
		end = now.Format("2006-01-02")
	}
	return start, end
}

func init() {
	deltaCmd.Flags().IntVar(&windowDays, "window-days", 7, "size of the trailing window in days")
	rootCmd.AddCommand(deltaCmd)
}
