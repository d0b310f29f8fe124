package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultLegacyTable = "articles_history"

func newBackfillCmd() *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Imports a legacy flat article table into the normalized schema",
		Long: `Reads every row of a legacy flat table in the same SQLite database, keeps
the most recently crawled row per url, and upserts it into the normalized
schema, creating the category tree on the way. Requires the sqlite driver.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			res, err := appInstance.Backfill(cmd.Context(), table)
			if err != nil {
				return fmt.Errorf("backfill %s: %w", table, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backfilled %d articles from %s, %d failed\n", res.Saved, table, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "legacy-table", defaultLegacyTable, "name of the legacy table")
	return cmd
}
