package main

import (
	"fmt"

	"file-organizer/backend/go/internal/organizer_service/app"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Re-embed every stored file into the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Service.Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d of %d files (%d failed)\n", report.Indexed, report.Total, report.Failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
