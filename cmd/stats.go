package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Prints article totals per category and month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			st, err := appInstance.Repository().Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if format != formatTable {
				return encode(out, format, st)
			}
			fmt.Fprintf(out, "articles:      %d\n", st.Total)
			fmt.Fprintf(out, "with book:     %d\n", st.WithBook)
			last := "never"
			if st.LastCrawledAt != nil {
				last = st.LastCrawledAt.Format(time.RFC3339)
			}
			fmt.Fprintf(out, "last crawled:  %s\n\n", last)

			tw := newTable(out, "CATEGORY", "ARTICLES", "LATEST POST")
			for _, c := range st.Categories {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Category, c.Articles, c.LatestPost)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(st.Monthly) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			tw = newTable(out, "MONTH", "ARTICLES")
			for _, m := range st.Monthly {
				fmt.Fprintf(tw, "%s\t%d\n", m.Month, m.Articles)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json or yaml")
	return cmd
}
