package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// Placeholder renders the nth (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// QuestionMark is the SQLite placeholder style.
func QuestionMark(int) string { return "?" }

// Dollar is the PostgreSQL placeholder style.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// ErrInvalidField reports an unsupported ArticleQuery.Field.
var ErrInvalidField = errors.New("invalid search field")

// ArticleColumns is the select list shared by every article read. The
// caller appends crawled_at in its driver's native type.
const ArticleColumns = `a.id, a.url, a.title, a.post_date, a.updated_date, a.category_id,
	a.tags, a.content_intro, a.headings, a.book_title, a.book_author, a.book_isbn, a.book_asin,
	a.word_count, a.internal_links, a.external_links, a.frequent_words, a.broken_links`

// ArticleFrom joins an article with its category and that category's parent.
const ArticleFrom = `articles a
	LEFT JOIN categories c ON c.id = a.category_id
	LEFT JOIN categories p ON p.id = c.parent_id`

// Row is an article in stored form: composite fields are JSON text.
type Row struct {
	ID            int64
	URL           string
	Title         string
	PostDate      string
	UpdatedDate   string
	CategoryID    *int64
	Tags          string
	ContentIntro  string
	Headings      string
	BookTitle     string
	BookAuthor    string
	BookISBN      string
	BookASIN      string
	WordCount     int
	InternalLinks string
	ExternalLinks string
	FrequentWords string
	BrokenLinks   string
	CrawledAt     time.Time
}

// ScanTargets returns pointers matching ArticleColumns, in order.
func (r *Row) ScanTargets() []any {
	return []any{
		&r.ID, &r.URL, &r.Title, &r.PostDate, &r.UpdatedDate, &r.CategoryID,
		&r.Tags, &r.ContentIntro, &r.Headings, &r.BookTitle, &r.BookAuthor, &r.BookISBN, &r.BookASIN,
		&r.WordCount, &r.InternalLinks, &r.ExternalLinks, &r.FrequentWords, &r.BrokenLinks,
	}
}

// EncodeRecord converts a record to its stored form.
func EncodeRecord(rec crawler.ArticleRecord) (Row, error) {
	row := Row{
		ID:           rec.ID,
		URL:          rec.URL,
		Title:        rec.Title,
		PostDate:     rec.PostDate,
		UpdatedDate:  rec.UpdatedDate,
		ContentIntro: rec.ContentIntro,
		BookTitle:    rec.BookTitle,
		BookAuthor:   rec.BookAuthor,
		BookISBN:     rec.BookISBN,
		BookASIN:     rec.BookASIN,
		WordCount:    rec.WordCount,
		CrawledAt:    rec.CrawledAt,
	}
	fields := []struct {
		dst *string
		src any
	}{
		{&row.Tags, rec.Tags},
		{&row.Headings, rec.Headings},
		{&row.InternalLinks, rec.InternalLinks},
		{&row.ExternalLinks, rec.ExternalLinks},
		{&row.FrequentWords, rec.FrequentWords},
		{&row.BrokenLinks, rec.BrokenLinks},
	}
	for _, f := range fields {
		enc, err := EncodeJSON(f.src)
		if err != nil {
			return Row{}, err
		}
		*f.dst = enc
	}
	return row, nil
}

// DecodeRow converts a stored row back to a record. A composite field that
// fails to decode is logged and left empty.
func DecodeRow(row Row, path []string, logger *zap.Logger) crawler.ArticleRecord {
	if logger == nil {
		logger = zap.NewNop()
	}
	rec := crawler.ArticleRecord{
		ID:           row.ID,
		URL:          row.URL,
		Title:        row.Title,
		PostDate:     row.PostDate,
		UpdatedDate:  row.UpdatedDate,
		CategoryPath: path,
		ContentIntro: row.ContentIntro,
		BookTitle:    row.BookTitle,
		BookAuthor:   row.BookAuthor,
		BookISBN:     row.BookISBN,
		BookASIN:     row.BookASIN,
		WordCount:    row.WordCount,
		CrawledAt:    row.CrawledAt,
	}
	warn := func(field string, err error) {
		logger.Warn("stored field undecodable", zap.String("url", row.URL), zap.String("field", field), zap.Error(err))
	}
	var err error
	if rec.Tags, err = DecodeStrings(row.Tags); err != nil {
		warn("tags", err)
	}
	if rec.Headings, err = DecodeHeadings(row.Headings); err != nil {
		warn("headings", err)
	}
	if rec.InternalLinks, err = DecodeLinks(row.InternalLinks); err != nil {
		warn("internal_links", err)
	}
	if rec.ExternalLinks, err = DecodeLinks(row.ExternalLinks); err != nil {
		warn("external_links", err)
	}
	if rec.FrequentWords, err = DecodeFrequentWords(row.FrequentWords); err != nil {
		warn("frequent_words", err)
	}
	if rec.BrokenLinks, err = DecodeStrings(row.BrokenLinks); err != nil {
		warn("broken_links", err)
	}
	return rec
}

// CategoryPaths rebuilds the root-to-leaf label path of every category by
// walking parent links. Cycles are cut at the first repeated id.
func CategoryPaths(categories []crawler.Category) map[int64][]string {
	byID := make(map[int64]crawler.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	out := make(map[int64][]string, len(categories))
	for _, c := range categories {
		var rev []string
		seen := map[int64]bool{}
		cur, ok := c, true
		for ok && !seen[cur.ID] {
			seen[cur.ID] = true
			rev = append(rev, cur.Name)
			if cur.ParentID == nil {
				break
			}
			cur, ok = byID[*cur.ParentID]
		}
		path := make([]string, len(rev))
		for i, name := range rev {
			path[len(rev)-1-i] = name
		}
		out[c.ID] = path
	}
	return out
}

// likeEscaper makes LIKE wildcards in a keyword match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Where renders the WHERE clause for q. Placeholders are numbered from 1.
func (q ArticleQuery) Where(ph Placeholder) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(kw)) + "%"
		var cols []string
		switch q.Field {
		case FieldAny:
			cols = []string{"a.title", "a.content_intro", "a.tags", "a.book_title", "a.book_author"}
		case FieldTitle:
			cols = []string{"a.title"}
		case FieldContent:
			cols = []string{"a.content_intro"}
		case FieldCategory:
			cols = []string{"c.name", "p.name"}
		case FieldTag:
			cols = []string{"a.tags"}
		case FieldDate:
			cols = []string{"a.post_date"}
		default:
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidField, q.Field)
		}
		ors := make([]string, 0, len(cols))
		for _, col := range cols {
			ors = append(ors, fmt.Sprintf("LOWER(COALESCE(%s, '')) LIKE %s ESCAPE '\\'", col, bind(pattern)))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}
	if cat := strings.TrimSpace(q.Category); cat != "" {
		clauses = append(clauses, fmt.Sprintf("(c.name = %s OR p.name = %s)", bind(cat), bind(cat)))
	}
	if q.HasBook {
		clauses = append(clauses, "(a.book_title <> '' OR a.book_isbn <> '' OR a.book_asin <> '')")
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// Paging renders LIMIT and OFFSET for q, or "" when unbounded.
func (q ArticleQuery) Paging() string {
	var b strings.Builder
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
		if q.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", q.Offset)
		}
	}
	return b.String()
}

// UpsertArticleSQL builds the article upsert for a dialect. Both SQLite and
// PostgreSQL accept the excluded pseudo-table, so only placeholders differ.
// The statement returns the row id.
func UpsertArticleSQL(ph Placeholder) string {
	cols := []string{
		"url", "title", "post_date", "updated_date", "category_id", "tags", "content_intro", "headings",
		"book_title", "book_author", "book_isbn", "book_asin", "word_count",
		"internal_links", "external_links", "frequent_words", "broken_links", "crawled_at",
	}
	vals := make([]string, len(cols))
	sets := make([]string, 0, len(cols)-1)
	for i, col := range cols {
		vals[i] = ph(i + 1)
		if col != "url" {
			sets = append(sets, col+" = excluded."+col)
		}
	}
	return "INSERT INTO articles (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") +
		") ON CONFLICT (url) DO UPDATE SET " + strings.Join(sets, ", ") + " RETURNING id"
}

// UpsertArgs returns the bind arguments for UpsertArticleSQL.
func (r Row) UpsertArgs(categoryID *int64, crawledAt any) []any {
	return []any{
		r.URL, r.Title, r.PostDate, r.UpdatedDate, categoryID, r.Tags, r.ContentIntro, r.Headings,
		r.BookTitle, r.BookAuthor, r.BookISBN, r.BookASIN, r.WordCount,
		r.InternalLinks, r.ExternalLinks, r.FrequentWords, r.BrokenLinks, crawledAt,
	}
}
