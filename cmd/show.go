package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/store"
)

func newShowCmd() *cobra.Command {
	var (
		id     int64
		format string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Prints one stored article in full",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validFormat(format); err != nil {
				return err
			}
			if id <= 0 {
				return fmt.Errorf("--id must be > 0")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := appInstance.Repository().GetArticle(cmd.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("article %d not found", id)
			}
			if err != nil {
				return fmt.Errorf("show: %w", err)
			}

			out := cmd.OutOrStdout()
			if format != formatTable {
				return encode(out, format, rec)
			}
			printArticle(out, rec)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "article id, as listed by search")
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, json or yaml")
	return cmd
}

func printArticle(out io.Writer, rec crawler.ArticleRecord) {
	fmt.Fprintf(out, "id:        %d\n", rec.ID)
	fmt.Fprintf(out, "title:     %s\n", rec.Title)
	fmt.Fprintf(out, "url:       %s\n", rec.URL)
	fmt.Fprintf(out, "posted:    %s\n", rec.PostDate)
	if rec.UpdatedDate != "" {
		fmt.Fprintf(out, "updated:   %s\n", rec.UpdatedDate)
	}
	fmt.Fprintf(out, "category:  %s\n", strings.Join(rec.CategoryPath, " > "))
	if len(rec.Tags) > 0 {
		fmt.Fprintf(out, "tags:      %s\n", strings.Join(rec.Tags, ", "))
	}
	fmt.Fprintf(out, "words:     %d\n", rec.WordCount)
	if rec.HasBook() {
		fmt.Fprintf(out, "book:      %s\n", rec.BookTitle)
		fmt.Fprintf(out, "author:    %s\n", rec.BookAuthor)
		fmt.Fprintf(out, "isbn:      %s\n", rec.BookISBN)
		fmt.Fprintf(out, "asin:      %s\n", rec.BookASIN)
	}
	if rec.ContentIntro != "" {
		fmt.Fprintf(out, "\n%s\n", rec.ContentIntro)
	}
	if len(rec.Headings) > 0 {
		fmt.Fprintln(out)
		for _, h := range rec.Headings {
			fmt.Fprintf(out, "%s  %s\n", h.Level, h.Text)
		}
	}
}
