package sqlite

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// legacyColumns lists the flat-table columns read by Backfill, each with
// its accepted aliases. Missing columns read as empty.
var legacyColumns = []struct {
	name    string
	aliases []string
}{
	{"url", nil},
	{"title", nil},
	{"post_date", nil},
	{"updated_date", nil},
	{"category", []string{"category_path"}},
	{"tags", nil},
	{"content_intro", nil},
	{"headings", nil},
	{"book_title", nil},
	{"book_author", nil},
	{"book_isbn", nil},
	{"book_asin", nil},
	{"word_count", nil},
	{"internal_links", nil},
	{"external_links", nil},
	{"frequent_words", nil},
	{"broken_links", nil},
	{"crawled_at", nil},
}

// Backfill copies a legacy flat article table into the normalized schema.
// When a url appears more than once, the most recently crawled row wins.
// Rows without a usable url, title or post date are counted as failed.
func (s *Store) Backfill(ctx context.Context, table string) (crawler.BatchResult, error) {
	if !validTableName.MatchString(table) {
		return crawler.BatchResult{}, fmt.Errorf("invalid table name %q", table)
	}
	present, err := s.tableColumns(ctx, table)
	if err != nil {
		return crawler.BatchResult{}, err
	}
	if len(present) == 0 {
		return crawler.BatchResult{}, fmt.Errorf("legacy table %q not found", table)
	}
	if !present["url"] {
		return crawler.BatchResult{}, fmt.Errorf("legacy table %q has no url column", table)
	}

	exprs := make([]string, len(legacyColumns))
	for i, col := range legacyColumns {
		exprs[i] = "''"
		for _, name := range append([]string{col.name}, col.aliases...) {
			if present[name] {
				exprs[i] = fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '')", name)
				break
			}
		}
	}
	order := "rowid"
	if present["crawled_at"] {
		order = "crawled_at, rowid"
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(exprs, ", "), table, order)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return crawler.BatchResult{}, fmt.Errorf("read legacy table: %w", err)
	}
	defer rows.Close()

	var (
		res    crawler.BatchResult
		latest = map[string]int{}
		batch  []crawler.ArticleRecord
	)
	for rows.Next() {
		vals := make([]string, len(legacyColumns))
		dest := make([]any, len(vals))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return crawler.BatchResult{}, fmt.Errorf("scan legacy row: %w", err)
		}
		rec, err := s.legacyRecord(vals)
		if err != nil {
			s.logger.Warn("legacy row skipped", zap.String("url", vals[0]), zap.Error(err))
			res.Failed++
			continue
		}
		if idx, ok := latest[rec.URL]; ok {
			batch[idx] = rec
			continue
		}
		latest[rec.URL] = len(batch)
		batch = append(batch, rec)
	}
	if err := rows.Err(); err != nil {
		return crawler.BatchResult{}, fmt.Errorf("read legacy table: %w", err)
	}
	rows.Close()

	saved, err := s.UpsertBatch(ctx, batch)
	if err != nil {
		return crawler.BatchResult{}, err
	}
	res.Saved = saved.Saved
	res.Failed += saved.Failed
	s.logger.Info("legacy backfill finished",
		zap.String("table", table),
		zap.Int("saved", res.Saved),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *Store) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("inspect legacy table: %w", err)
	}
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, ctype      string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("inspect legacy table: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

// legacyRecord converts one flat row, in legacyColumns order.
func (s *Store) legacyRecord(v []string) (crawler.ArticleRecord, error) {
	url, err := crawler.NormalizeURL(strings.TrimSpace(v[0]))
	if err != nil {
		return crawler.ArticleRecord{}, err
	}
	rec := crawler.ArticleRecord{
		URL:          url,
		Title:        strings.TrimSpace(v[1]),
		PostDate:     crawler.NormalizeDay(v[2]),
		UpdatedDate:  crawler.NormalizeDay(v[3]),
		CategoryPath: legacyCategory(v[4]),
		ContentIntro: v[6],
		BookTitle:    strings.TrimSpace(v[8]),
		BookAuthor:   strings.TrimSpace(v[9]),
		BookISBN:     strings.TrimSpace(v[10]),
		BookASIN:     strings.TrimSpace(v[11]),
		CrawledAt:    s.legacyTime(v[17]),
	}
	if !rec.Acceptable() {
		return crawler.ArticleRecord{}, fmt.Errorf("missing title or post date")
	}
	if n, err := strconv.Atoi(strings.TrimSpace(v[12])); err == nil {
		rec.WordCount = n
	}

	warn := func(field string, err error) {
		s.logger.Warn("legacy field undecodable", zap.String("url", url), zap.String("field", field), zap.Error(err))
	}
	if rec.Tags, err = store.DecodeStrings(v[5]); err != nil {
		warn("tags", err)
	}
	if rec.Headings, err = store.DecodeHeadings(v[7]); err != nil {
		warn("headings", err)
	}
	if rec.InternalLinks, err = legacyLinks(v[13]); err != nil {
		warn("internal_links", err)
	}
	if rec.ExternalLinks, err = legacyLinks(v[14]); err != nil {
		warn("external_links", err)
	}
	if rec.FrequentWords, err = store.DecodeFrequentWords(v[15]); err != nil {
		warn("frequent_words", err)
	}
	if rec.BrokenLinks, err = store.DecodeStrings(v[16]); err != nil {
		warn("broken_links", err)
	}
	return rec, nil
}

// legacyCategory reads "A > B" text or a JSON label array.
func legacyCategory(raw string) []string {
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		if path, err := store.DecodeStrings(raw); err == nil {
			return store.CleanPath(path)
		}
	}
	return store.ParseLegacyCategory(raw)
}

// legacyLinks accepts link objects or a bare URL list.
func legacyLinks(raw string) ([]crawler.Link, error) {
	links, err := store.DecodeLinks(raw)
	if err == nil {
		return links, nil
	}
	urls, strErr := store.DecodeStrings(raw)
	if strErr != nil {
		return nil, err
	}
	out := make([]crawler.Link, 0, len(urls))
	for _, u := range urls {
		out = append(out, crawler.Link{URL: u})
	}
	return out, nil
}

func (s *Store) legacyTime(raw string) time.Time {
	if t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC); err == nil {
		return t.UTC()
	}
	return s.now()
}
