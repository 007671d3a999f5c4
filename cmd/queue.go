package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pkgshield/pkgshield/db"
	"github.com/pkgshield/pkgshield/pkg/lifecycle"
	"github.com/pkgshield/pkgshield/pkg/pypi"
)

var (
	queueName     string
	queueVersion  string
	queueQueuedBy string
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Queue a package for scanning",
	Long: `Resolves a release against PyPI and queues it for the next
available scanner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Connect()
		if err != nil {
			return err
		}
		defer conn.Close()

		service := lifecycle.NewService(lifecycle.Options{
			Store: conn,
			PyPI:  pypi.NewClient(viper.GetString("pypi.base_url"), nil),
		})

		scan, err := service.QueuePackage(context.Background(), queueName, queueVersion, queueQueuedBy)
		if err != nil {
			return err
		}

		log.Info().Str("scan_id", scan.ScanID.String()).Str("name", scan.Name).Str("version", scan.Version).Msg("Package queued")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().StringVarP(&queueName, "name", "n", "", "Package name")
	queueCmd.Flags().StringVarP(&queueVersion, "version", "v", "", "Package version")
	queueCmd.Flags().StringVar(&queueQueuedBy, "queued-by", "cli", "Subject recorded as the queuer")
	queueCmd.MarkFlagRequired("name")
	queueCmd.MarkFlagRequired("version")
}
