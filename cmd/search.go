package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-crawler/internal/store"
)

const defaultSearchLimit = 20

type searchOptions struct {
	field   string
	keyword string
	limit   int
	format  string
}

func newSearchCmd() *cobra.Command {
	opts := searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Searches stored articles",
		Long: `Lists stored articles, newest first. With --keyword, only articles whose
--field contains the keyword (case-insensitive) are listed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSearch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.field, "field", "", "title, content, category, tag or date; empty searches everything")
	cmd.Flags().StringVar(&opts.keyword, "keyword", "", "substring to match")
	cmd.Flags().IntVar(&opts.limit, "limit", defaultSearchLimit, "maximum number of results")
	cmd.Flags().StringVar(&opts.format, "format", formatTable, "output format: table, json or yaml")
	return cmd
}

func runSearch(cmd *cobra.Command, opts searchOptions) error {
	if err := validFormat(opts.format); err != nil {
		return err
	}
	if opts.limit <= 0 {
		return fmt.Errorf("--limit must be > 0")
	}
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	records, err := appInstance.Repository().ListArticles(cmd.Context(), store.ArticleQuery{
		Keyword: opts.keyword,
		Field:   opts.field,
		Limit:   opts.limit,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.format != formatTable {
		return encode(out, opts.format, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "no matching articles")
		return nil
	}
	tw := newTable(out, "ID", "POSTED", "CATEGORY", "TITLE", "URL")
	for _, rec := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.PostDate,
			strings.Join(rec.CategoryPath, " > "),
			truncate(rec.Title, titleWidth),
			rec.URL,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d articles\n", len(records))
	return nil
}
