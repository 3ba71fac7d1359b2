package main

import (
	"github.com/spf13/cobra"

	"github.com/yukikurage/timesheet-management-api/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Connect(cfg); err != nil {
			return err
		}
		return database.Migrate()
	},
}
