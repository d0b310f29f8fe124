package store

import (
	"context"
	"errors"
	"time"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultPageSize is the number of articles per browser page.
const DefaultPageSize = 10

// Search fields accepted by ArticleQuery.Field.
const (
	FieldAny      = ""
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldCategory = "category"
	FieldTag      = "tag"
	FieldDate     = "date"
)

// ArticleQuery filters article listings.
type ArticleQuery struct {
	// Keyword is matched as a substring against Field.
	Keyword string
	// Field selects what Keyword is matched against. FieldAny searches
	// title, intro, tags, and book title and author.
	Field string
	// Category restricts results to this category or its direct children.
	Category string
	// HasBook keeps only articles with book metadata.
	HasBook bool
	// Limit caps the result size; zero means no limit.
	Limit int
	// Offset skips the first results.
	Offset int
}

// CategoryCount is one row of the per-category statistics.
type CategoryCount struct {
	// Category is the leaf category name, empty for uncategorized articles.
	Category string `json:"category" yaml:"category"`
	// Articles counts the articles filed directly under the category.
	Articles int `json:"articles" yaml:"articles"`
	// LatestPost is the most recent post_date in the category.
	LatestPost string `json:"latest_post" yaml:"latest_post"`
}

// Stats summarizes the article table.
type Stats struct {
	Total         int             `json:"total" yaml:"total"`
	WithBook      int             `json:"with_book" yaml:"with_book"`
	LastCrawledAt *time.Time      `json:"last_crawled_at,omitempty" yaml:"last_crawled_at,omitempty"`
	Categories    []CategoryCount `json:"categories" yaml:"categories"`
	Monthly       []MonthCount    `json:"monthly" yaml:"monthly"`
}

// MonthCount is the number of articles posted in one calendar month.
type MonthCount struct {
	// Month is the YYYY-MM prefix of post_date.
	Month    string `json:"month" yaml:"month"`
	Articles int    `json:"articles" yaml:"articles"`
}

// MonthlyCountsSQL groups articles by the month of their post date, newest
// first. Both backends accept it unchanged.
const MonthlyCountsSQL = `SELECT substr(post_date, 1, 7) AS month, COUNT(*)
FROM articles
WHERE post_date <> ''
GROUP BY month
ORDER BY month DESC
LIMIT 12`

// ArticleReader serves the read-only consumers: the record browser, the
// graph endpoint and the search CLI.
type ArticleReader interface {
	// ListArticles returns articles ordered by post_date descending.
	ListArticles(ctx context.Context, q ArticleQuery) ([]crawler.ArticleRecord, error)
	// CountArticles counts the articles matching q, ignoring Limit and Offset.
	CountArticles(ctx context.Context, q ArticleQuery) (int, error)
	// GetArticle loads one article or returns ErrNotFound.
	GetArticle(ctx context.Context, id int64) (crawler.ArticleRecord, error)
	// ListCategories returns every category ordered by id.
	ListCategories(ctx context.Context) ([]crawler.Category, error)
	// CategoryArticleCounts maps category ids to their article counts.
	CategoryArticleCounts(ctx context.Context) (map[int64]int, error)
	// Stats aggregates totals and per-category counts.
	Stats(ctx context.Context) (Stats, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// Repository is a full article database.
type Repository interface {
	crawler.ArticleStore
	ArticleReader
	Close() error
}
