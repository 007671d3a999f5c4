package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pkgshield/pkgshield/db"
)

var (
	getPackageName    string
	getPackageVersion string
	getPackageSince   int64
)

// getPackagesCmd represents the get packages command
var getPackagesCmd = &cobra.Command{
	Use:     "packages",
	Aliases: []string{"package", "p"},
	Short:   "List scanned packages",
	Long: `Lists scan records, most recently queued first. Allowed filter
combinations are name+version, name+since, name and since. A name and
version together print the full scan detail.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		filter := db.ScanFilter{
			Pagination: &db.Pagination{Page: page, PageSize: pageSize},
		}
		if cmd.Flags().Changed("name") {
			filter.Name = &getPackageName
		}
		if cmd.Flags().Changed("version") {
			filter.Version = &getPackageVersion
		}
		if cmd.Flags().Changed("since") {
			since := time.Unix(getPackageSince, 0).UTC()
			filter.Since = &since
		}

		scans, err := conn.FindScans(filter)
		if err != nil {
			return err
		}

		if filter.Name != nil && filter.Version != nil && len(scans) == 1 {
			db.PrintScan(*scans[0])
			return nil
		}
		db.PrintScanTable(scans)
		return nil
	},
}

func init() {
	getCmd.AddCommand(getPackagesCmd)
	getPackagesCmd.Flags().StringVarP(&getPackageName, "name", "n", "", "Package name")
	getPackagesCmd.Flags().StringVarP(&getPackageVersion, "version", "v", "", "Package version")
	getPackagesCmd.Flags().Int64Var(&getPackageSince, "since", 0, "Unix timestamp to search from, matched against finish time")
}
