// Package sqlite persists article batches to a local SQLite database through
// the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/metrics"
	"github.com/JakeFAU/article-crawler/internal/store"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	parent_id  INTEGER REFERENCES categories(id),
	slug       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	url            TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL,
	post_date      TEXT NOT NULL DEFAULT '',
	updated_date   TEXT NOT NULL DEFAULT '',
	category_id    INTEGER REFERENCES categories(id),
	tags           TEXT NOT NULL DEFAULT '[]',
	content_intro  TEXT NOT NULL DEFAULT '',
	headings       TEXT NOT NULL DEFAULT '[]',
	book_title     TEXT NOT NULL DEFAULT '',
	book_author    TEXT NOT NULL DEFAULT '',
	book_isbn      TEXT NOT NULL DEFAULT '',
	book_asin      TEXT NOT NULL DEFAULT '',
	word_count     INTEGER NOT NULL DEFAULT 0,
	internal_links TEXT NOT NULL DEFAULT '[]',
	external_links TEXT NOT NULL DEFAULT '[]',
	frequent_words TEXT NOT NULL DEFAULT '[]',
	broken_links   TEXT NOT NULL DEFAULT '[]',
	crawled_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_post_date ON articles(post_date);
CREATE INDEX IF NOT EXISTS idx_articles_category_id ON articles(category_id);
CREATE INDEX IF NOT EXISTS idx_categories_parent_id ON categories(parent_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_parent ON categories(name, COALESCE(parent_id, 0));
`

const (
	savepoint         = "SAVEPOINT article_upsert"
	rollbackSavepoint = "ROLLBACK TO SAVEPOINT article_upsert"
	releaseSavepoint  = "RELEASE SAVEPOINT article_upsert"
)

const (
	findCategorySQL   = "SELECT id, slug FROM categories WHERE name = ? AND parent_id IS ?"
	slugTakenSQL      = "SELECT EXISTS (SELECT 1 FROM categories WHERE slug = ?)"
	insertCategorySQL = `INSERT INTO categories (name, parent_id, slug, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
RETURNING id`
)

// Config locates the database file.
type Config struct {
	// Path is the database file, or ":memory:" for a private in-memory database.
	Path string `mapstructure:"path"`
}

// Store is a SQLite-backed store.Repository.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Repository = (*Store)(nil)

// Open opens (creating if needed) the database and applies the schema.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("storage.sqlite.path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open(driverName, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertBatch persists records in one transaction. Each record runs inside
// its own savepoint so a bad record is rolled back and counted without
// aborting the rest of the batch.
func (s *Store) UpsertBatch(ctx context.Context, records []crawler.ArticleRecord) (crawler.BatchResult, error) {
	var res crawler.BatchResult
	if len(records) == 0 {
		return res, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := s.now()
	for _, rec := range records {
		if err := s.upsertOne(ctx, tx, rec, now); err != nil {
			if ctx.Err() != nil {
				return crawler.BatchResult{}, fmt.Errorf("upsert batch: %w", ctx.Err())
			}
			res.Failed++
			s.logger.Warn("article upsert failed", zap.String("url", rec.URL), zap.Error(err))
			continue
		}
		res.Saved++
	}
	if err := tx.Commit(); err != nil {
		return crawler.BatchResult{}, fmt.Errorf("commit batch: %w", err)
	}
	committed = true
	metrics.ObserveStoreRecords(driverName, "saved", res.Saved)
	metrics.ObserveStoreRecords(driverName, "failed", res.Failed)
	return res, nil
}

func (s *Store) upsertOne(ctx context.Context, tx *sql.Tx, rec crawler.ArticleRecord, now time.Time) error {
	if _, err := tx.ExecContext(ctx, savepoint); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := s.writeRecord(ctx, tx, rec, now); err != nil {
		if _, rbErr := tx.ExecContext(ctx, rollbackSavepoint); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		_, _ = tx.ExecContext(ctx, releaseSavepoint)
		return err
	}
	if _, err := tx.ExecContext(ctx, releaseSavepoint); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (s *Store) writeRecord(ctx context.Context, tx *sql.Tx, rec crawler.ArticleRecord, now time.Time) error {
	if strings.TrimSpace(rec.URL) == "" {
		return fmt.Errorf("record has no url")
	}
	row, err := store.EncodeRecord(rec)
	if err != nil {
		return err
	}
	categoryID, err := s.resolveCategory(ctx, tx, rec.CategoryPath, now)
	if err != nil {
		return err
	}
	crawledAt := rec.CrawledAt
	if crawledAt.IsZero() {
		crawledAt = now
	}
	var id int64
	err = tx.QueryRowContext(ctx, store.UpsertArticleSQL(store.QuestionMark),
		row.UpsertArgs(categoryID, formatTime(crawledAt))...).Scan(&id)
	if err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	return nil
}

// resolveCategory finds or creates every level of path and returns the leaf
// id, or nil for an uncategorized record. A level is identified by its name
// and parent; a new row gets the first free slug.
func (s *Store) resolveCategory(ctx context.Context, tx *sql.Tx, path []string, now time.Time) (*int64, error) {
	var (
		parent     *int64
		parentSlug string
	)
	stamp := formatTime(now)
	for _, name := range store.CleanPath(path) {
		var (
			id   int64
			slug string
		)
		err := tx.QueryRowContext(ctx, findCategorySQL, name, parent).Scan(&id, &slug)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			slug, err = store.UniqueSlug(store.ChildSlug(parentSlug, name), func(candidate string) (bool, error) {
				var taken bool
				err := tx.QueryRowContext(ctx, slugTakenSQL, candidate).Scan(&taken)
				return taken, err
			})
			if err != nil {
				return nil, fmt.Errorf("category slug %q: %w", name, err)
			}
			if err := tx.QueryRowContext(ctx, insertCategorySQL, name, parent, slug, stamp, stamp).Scan(&id); err != nil {
				return nil, fmt.Errorf("insert category %q: %w", slug, err)
			}
		case err != nil:
			return nil, fmt.Errorf("find category %q: %w", name, err)
		}
		parent = &id
		parentSlug = slug
	}
	return parent, nil
}

// ListArticles returns the articles matching q, newest post first.
func (s *Store) ListArticles(ctx context.Context, q store.ArticleQuery) ([]crawler.ArticleRecord, error) {
	where, args, err := q.Where(store.QuestionMark)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + store.ArticleColumns + ", a.crawled_at FROM " + store.ArticleFrom + where +
		" ORDER BY a.post_date DESC, a.id DESC" + q.Paging()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var stored []store.Row
	for rows.Next() {
		row, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		stored = append(stored, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return s.decode(ctx, stored)
}

// CountArticles counts the articles matching q.
func (s *Store) CountArticles(ctx context.Context, q store.ArticleQuery) (int, error) {
	where, args, err := q.Where(store.QuestionMark)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+store.ArticleFrom+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// GetArticle loads one article by id.
func (s *Store) GetArticle(ctx context.Context, id int64) (crawler.ArticleRecord, error) {
	query := "SELECT " + store.ArticleColumns + ", a.crawled_at FROM " + store.ArticleFrom + " WHERE a.id = ?"
	row, err := scanArticle(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return crawler.ArticleRecord{}, store.ErrNotFound
	}
	if err != nil {
		return crawler.ArticleRecord{}, err
	}
	recs, err := s.decode(ctx, []store.Row{row})
	if err != nil {
		return crawler.ArticleRecord{}, err
	}
	return recs[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(sc scanner) (store.Row, error) {
	var (
		row       store.Row
		crawledAt string
	)
	if err := sc.Scan(append(row.ScanTargets(), &crawledAt)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, err
		}
		return row, fmt.Errorf("scan article: %w", err)
	}
	row.CrawledAt = parseTime(crawledAt)
	return row, nil
}

func (s *Store) decode(ctx context.Context, stored []store.Row) ([]crawler.ArticleRecord, error) {
	if len(stored) == 0 {
		return []crawler.ArticleRecord{}, nil
	}
	categories, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	paths := store.CategoryPaths(categories)
	out := make([]crawler.ArticleRecord, 0, len(stored))
	for _, row := range stored {
		var path []string
		if row.CategoryID != nil {
			path = paths[*row.CategoryID]
		}
		out = append(out, store.DecodeRow(row, path, s.logger))
	}
	return out, nil
}

// ListCategories returns every category ordered by id.
func (s *Store) ListCategories(ctx context.Context) ([]crawler.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, parent_id, slug, created_at, updated_at FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []crawler.Category{}
	for rows.Next() {
		var (
			c                    crawler.Category
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Slug, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		c.UpdatedAt = parseTime(updatedAt)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// CategoryArticleCounts maps category ids to the number of articles filed
// directly under them.
func (s *Store) CategoryArticleCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT category_id, COUNT(*) FROM articles WHERE category_id IS NOT NULL GROUP BY category_id")
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()

	out := map[int64]int{}
	for rows.Next() {
		var (
			id int64
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Stats aggregates totals and per-category counts.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var (
		st       store.Stats
		lastSeen sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN book_title <> '' OR book_isbn <> '' OR book_asin <> '' THEN 1 ELSE 0 END), 0),
	MAX(crawled_at)
FROM articles`).Scan(&st.Total, &st.WithBook, &lastSeen)
	if err != nil {
		return st, fmt.Errorf("article totals: %w", err)
	}
	if lastSeen.Valid {
		t := parseTime(lastSeen.String)
		st.LastCrawledAt = &t
	}

	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(c.name, ''), COUNT(*), COALESCE(MAX(a.post_date), '')
FROM articles a LEFT JOIN categories c ON c.id = a.category_id
GROUP BY c.id, c.name
ORDER BY COUNT(*) DESC, c.name`)
	if err != nil {
		return st, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	st.Categories = []store.CategoryCount{}
	for rows.Next() {
		var cc store.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Articles, &cc.LatestPost); err != nil {
			return st, fmt.Errorf("scan category totals: %w", err)
		}
		st.Categories = append(st.Categories, cc)
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("category totals: %w", err)
	}
	rows.Close()

	st.Monthly, err = s.monthlyCounts(ctx)
	return st, err
}

func (s *Store) monthlyCounts(ctx context.Context) ([]store.MonthCount, error) {
	rows, err := s.db.QueryContext(ctx, store.MonthlyCountsSQL)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	out := []store.MonthCount{}
	for rows.Next() {
		var mc store.MonthCount
		if err := rows.Scan(&mc.Month, &mc.Articles); err != nil {
			return nil, fmt.Errorf("scan monthly totals: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
