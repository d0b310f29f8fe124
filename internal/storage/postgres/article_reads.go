package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/store"
)

const selectArticles = "SELECT " + store.ArticleColumns + ", a.crawled_at FROM " + store.ArticleFrom

// ListArticles returns the articles matching q, newest post first.
func (s *ArticleStore) ListArticles(ctx context.Context, q store.ArticleQuery) ([]crawler.ArticleRecord, error) {
	where, args, err := q.Where(store.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, selectArticles+where+" ORDER BY a.post_date DESC, a.id DESC"+q.Paging(), args...)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var stored []store.Row
	for rows.Next() {
		var row store.Row
		if err := rows.Scan(append(row.ScanTargets(), &row.CrawledAt)...); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		stored = append(stored, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	rows.Close()
	return s.decode(ctx, stored)
}

// CountArticles counts the articles matching q.
func (s *ArticleStore) CountArticles(ctx context.Context, q store.ArticleQuery) (int, error) {
	where, args, err := q.Where(store.Dollar)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+store.ArticleFrom+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// GetArticle loads one article by id, or returns store.ErrNotFound.
func (s *ArticleStore) GetArticle(ctx context.Context, id int64) (crawler.ArticleRecord, error) {
	var row store.Row
	err := s.pool.QueryRow(ctx, selectArticles+" WHERE a.id = $1", id).Scan(append(row.ScanTargets(), &row.CrawledAt)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawler.ArticleRecord{}, store.ErrNotFound
	}
	if err != nil {
		return crawler.ArticleRecord{}, fmt.Errorf("get article: %w", err)
	}
	recs, err := s.decode(ctx, []store.Row{row})
	if err != nil {
		return crawler.ArticleRecord{}, err
	}
	return recs[0], nil
}

func (s *ArticleStore) decode(ctx context.Context, stored []store.Row) ([]crawler.ArticleRecord, error) {
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
func (s *ArticleStore) ListCategories(ctx context.Context) ([]crawler.Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, parent_id, slug, created_at, updated_at FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []crawler.Category{}
	for rows.Next() {
		var c crawler.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID, &c.Slug, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

// CategoryArticleCounts maps category ids to the number of articles filed
// directly under them.
func (s *ArticleStore) CategoryArticleCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.pool.Query(ctx,
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
func (s *ArticleStore) Stats(ctx context.Context) (store.Stats, error) {
	var (
		st       store.Stats
		lastSeen *time.Time
	)
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN book_title <> '' OR book_isbn <> '' OR book_asin <> '' THEN 1 ELSE 0 END), 0),
	MAX(crawled_at)
FROM articles`).Scan(&st.Total, &st.WithBook, &lastSeen)
	if err != nil {
		return st, fmt.Errorf("article totals: %w", err)
	}
	st.LastCrawledAt = lastSeen

	rows, err := s.pool.Query(ctx, `SELECT COALESCE(c.name, ''), COUNT(*), COALESCE(MAX(a.post_date), '')
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

func (s *ArticleStore) monthlyCounts(ctx context.Context) ([]store.MonthCount, error) {
	rows, err := s.pool.Query(ctx, store.MonthlyCountsSQL)
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
