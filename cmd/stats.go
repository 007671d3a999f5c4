package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pkgshield/pkgshield/db"
)

var statsHours int

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ingestion statistics",
	Long: `Shows how many packages were ingested, the mean scan duration and
how many scans failed over the given window.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		since := time.Now().UTC().Add(-time.Duration(statsHours) * time.Hour)
		stats, err := conn.GetScanStats(since)
		if err != nil {
			return err
		}

		db.PrintStats(stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().IntVar(&statsHours, "hours", 24, "Window size in hours")
}
