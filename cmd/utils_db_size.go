package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pkgshield/pkgshield/db"
)

// getDatabaseSizeCmd represents the getDatabaseSize command
var getDatabaseSizeCmd = &cobra.Command{
	Use:     "db_size",
	Short:   "Get the database size",
	Aliases: []string{"db-size", "db_s", "dbs"},
	Run: func(cmd *cobra.Command, args []string) {
		conn, err := db.Connect()
		if err != nil {
			log.Error().Err(err).Msg("Failed to connect to database")
			return
		}
		defer conn.Close()

		dbSize, err := conn.Size()
		if err != nil {
			log.Error().Err(err).Msg("Failed to get database size")
			return
		}
		fmt.Printf("Database size: %s\n", dbSize)
	},
}

func init() {
	utilsCmd.AddCommand(getDatabaseSizeCmd)
}
