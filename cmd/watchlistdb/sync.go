package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/varoOP/watchlistdb/internal/app"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the database with the watchlist",
	Long: `Sync performs a complete reconciliation of the database:
1. Scrapes every page of the watchlist
2. Drops duplicate (title, year) entries
3. Enriches each title from TMDB, at most enrich_concurrency at a time
4. Inserts new movies and fills missing runtimes
5. Deletes movies that are no longer on the watchlist
6. Rebuilds the genre and provider tables

A page that cannot be fetched after scrape_retries attempts aborts the run
before anything is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if u, _ := cmd.Flags().GetString("url"); u != "" {
			viper.Set("watchlist_url", u)
		}
		if cmd.Flags().Changed("allow-empty") {
			allow, _ := cmd.Flags().GetBool("allow-empty")
			viper.Set("allow_empty_watchlist", allow)
		}

		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		if err := application.Sync(cmd.Context()); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}

		return nil
	},
}

func init() {
	syncCmd.Flags().String("url", "", "watchlist url, e.g. https://letterboxd.com/<user>/watchlist")
	syncCmd.Flags().Bool("allow-empty", false, "let an empty watchlist clear the database")
	rootCmd.AddCommand(syncCmd)
}
