// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/metrics"
	"github.com/JakeFAU/article-crawler/internal/store"
)

const driverName = "postgres"

// Schema creates the normalized article tables. It is applied by Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS categories (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	parent_id  BIGINT REFERENCES categories(id),
	slug       TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS articles (
	id             BIGSERIAL PRIMARY KEY,
	url            TEXT NOT NULL UNIQUE,
	title          TEXT NOT NULL,
	post_date      TEXT NOT NULL DEFAULT '',
	updated_date   TEXT NOT NULL DEFAULT '',
	category_id    BIGINT REFERENCES categories(id),
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
	crawled_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_post_date ON articles(post_date);
CREATE INDEX IF NOT EXISTS idx_articles_category_id ON articles(category_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_parent ON categories(name, COALESCE(parent_id, 0));
`

const (
	savepoint         = "SAVEPOINT article_upsert"
	rollbackSavepoint = "ROLLBACK TO SAVEPOINT article_upsert"
	releaseSavepoint  = "RELEASE SAVEPOINT article_upsert"
)

const (
	findCategorySQL   = "SELECT id, slug FROM categories WHERE name = $1 AND parent_id IS NOT DISTINCT FROM $2"
	slugTakenSQL      = "SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1)"
	insertCategorySQL = "INSERT INTO categories (name, parent_id, slug) VALUES ($1, $2, $3) RETURNING id"
)

// ArticleStoreConfig controls the Postgres connection pool used for articles.
type ArticleStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// ArticleStore writes and reads articles in Postgres.
type ArticleStore struct {
	pool   pool
	logger *zap.Logger
	now    func() time.Time
}

var _ store.Repository = (*ArticleStore)(nil)

// NewArticleStore creates a Postgres-backed ArticleStore using the provided config.
func NewArticleStore(ctx context.Context, cfg ArticleStoreConfig, logger *zap.Logger) (*ArticleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewArticleStoreWithPool(p, logger)
}

// NewArticleStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewArticleStoreWithPool(p pool, logger *zap.Logger) (*ArticleStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleStore{pool: p, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Migrate applies Schema.
func (s *ArticleStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply postgres schema: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *ArticleStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

// Ping checks connectivity.
func (s *ArticleStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertBatch persists records in one transaction with one savepoint per
// record. A failing record is rolled back to its savepoint, logged, and
// counted; begin and commit failures abort the whole batch.
func (s *ArticleStore) UpsertBatch(ctx context.Context, records []crawler.ArticleRecord) (crawler.BatchResult, error) {
	var res crawler.BatchResult
	if len(records) == 0 {
		return res, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin batch: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
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
	if err := tx.Commit(ctx); err != nil {
		return crawler.BatchResult{}, fmt.Errorf("commit batch: %w", err)
	}
	committed = true
	metrics.ObserveStoreRecords(driverName, "saved", res.Saved)
	metrics.ObserveStoreRecords(driverName, "failed", res.Failed)
	return res, nil
}

func (s *ArticleStore) upsertOne(ctx context.Context, tx pgx.Tx, rec crawler.ArticleRecord, now time.Time) error {
	if _, err := tx.Exec(ctx, savepoint); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := s.writeRecord(ctx, tx, rec, now); err != nil {
		if _, rbErr := tx.Exec(ctx, rollbackSavepoint); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback savepoint: %w", rbErr))
		}
		_, _ = tx.Exec(ctx, releaseSavepoint)
		return err
	}
	if _, err := tx.Exec(ctx, releaseSavepoint); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (s *ArticleStore) writeRecord(ctx context.Context, tx pgx.Tx, rec crawler.ArticleRecord, now time.Time) error {
	if strings.TrimSpace(rec.URL) == "" {
		return fmt.Errorf("record has no url")
	}
	row, err := store.EncodeRecord(rec)
	if err != nil {
		return err
	}
	categoryID, err := resolveCategory(ctx, tx, rec.CategoryPath)
	if err != nil {
		return err
	}
	crawledAt := rec.CrawledAt
	if crawledAt.IsZero() {
		crawledAt = now
	}
	var id int64
	if err := tx.QueryRow(ctx, store.UpsertArticleSQL(store.Dollar), row.UpsertArgs(categoryID, crawledAt)...).Scan(&id); err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	return nil
}

// resolveCategory finds or creates every level of path by name and parent
// and returns the leaf id. New rows get the first free slug.
func resolveCategory(ctx context.Context, tx pgx.Tx, path []string) (*int64, error) {
	var (
		parent     *int64
		parentSlug string
	)
	for _, name := range store.CleanPath(path) {
		var (
			id   int64
			slug string
		)
		err := tx.QueryRow(ctx, findCategorySQL, name, parent).Scan(&id, &slug)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			slug, err = store.UniqueSlug(store.ChildSlug(parentSlug, name), func(candidate string) (bool, error) {
				var taken bool
				err := tx.QueryRow(ctx, slugTakenSQL, candidate).Scan(&taken)
				return taken, err
			})
			if err != nil {
				return nil, fmt.Errorf("category slug %q: %w", name, err)
			}
			if err := tx.QueryRow(ctx, insertCategorySQL, name, parent, slug).Scan(&id); err != nil {
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
