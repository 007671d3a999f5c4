package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pkgshield/pkgshield/db"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Connects to the configured database and brings its schema up to
date with the current models.`,
	Run: func(cmd *cobra.Command, args []string) {
		conn, err := db.Connect()
		if err != nil {
			log.Fatal().Err(err).Msg("Database migration failed")
		}
		defer conn.Close()
		log.Info().Msg("Database schema is up to date")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
