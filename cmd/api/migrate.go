package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"assetapi/internal/database"
	"assetapi/internal/database/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the asset schema in Postgres if it is missing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e := loadEnv(cmd)
		defer e.log.Sync()

		db, err := database.NewPostgres(cmd.Context(), e.cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		return migration.EnsureMigrated(cmd.Context(), db, e.log, e.cfg.Database.Host)
	},
}
