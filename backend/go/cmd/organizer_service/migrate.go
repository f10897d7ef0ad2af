package main

import (
	"file-organizer/backend/go/internal/database/mysql"
	"file-organizer/backend/go/internal/organizer_service/app"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the relational schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		db, err := app.OpenDatabase(cfg.Database)
		if err != nil {
			return err
		}
		defer mysql.Close(db)
		log.WithField("driver", cfg.Database.Driver).Info("Database migration completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
