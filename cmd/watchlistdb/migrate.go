package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/watchlistdb/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Migrate opens the configured database and applies any pending schema
migrations. Sync and export do this on their own as well; this command is
useful to prepare a PostgreSQL database ahead of the first run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		version, err := application.Migrate(cmd.Context())
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}

		fmt.Printf("Database schema at version %d\n", version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
