package app

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/store"
)

var csvHeader = []string{
	"url", "title", "post_date", "updated_date", "category", "tags", "content_intro", "headings",
	"book_title", "book_author", "book_isbn", "book_asin", "word_count",
	"internal_links", "external_links", "frequent_words", "broken_links", "crawled_at",
}

// ExportCSV writes records as CSV with a header row. The category column
// holds the path joined with " > "; composite columns hold JSON.
func ExportCSV(w io.Writer, records []crawler.ArticleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row, err := store.EncodeRecord(rec)
		if err != nil {
			return err
		}
		line := []string{
			rec.URL, rec.Title, rec.PostDate, rec.UpdatedDate, strings.Join(rec.CategoryPath, " > "),
			row.Tags, rec.ContentIntro, row.Headings,
			rec.BookTitle, rec.BookAuthor, rec.BookISBN, rec.BookASIN, strconv.Itoa(rec.WordCount),
			row.InternalLinks, row.ExternalLinks, row.FrequentWords, row.BrokenLinks,
			rec.CrawledAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
