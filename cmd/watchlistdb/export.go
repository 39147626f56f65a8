package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/watchlistdb/internal/app"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored watchlist to a JSON or YAML file",
	Long: `Export writes every stored movie with its genres and providers to a file.
The format follows the file extension: .yaml and .yml produce YAML, anything
else produces JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		application, err := app.NewApp()
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		count, err := application.Export(cmd.Context(), output)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Exported %d movies to %s\n", count, output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "watchlist.json", "output file")
	rootCmd.AddCommand(exportCmd)
}
