package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/store"
)

var crawledAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *ArticleStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s, err := NewArticleStoreWithPool(mock, zap.NewNop())
	require.NoError(t, err)
	return mock, s
}

// articleArgs matches the 18 upsert arguments by url only.
func articleArgs(url string) []any {
	args := []any{url}
	for i := 1; i < 18; i++ {
		args = append(args, pgxmock.AnyArg())
	}
	return args
}

func expectSavepoint(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(regexp.QuoteMeta(savepoint)).WillReturnResult(pgxmock.NewResult("SAVEPOINT", 0))
}

func expectRelease(mock pgxmock.PgxPoolIface) {
	mock.ExpectExec(regexp.QuoteMeta(releaseSavepoint)).WillReturnResult(pgxmock.NewResult("RELEASE", 0))
}

func expectNewCategory(mock pgxmock.PgxPoolIface, name, slug string, id int64, taken ...string) {
	mock.ExpectQuery(regexp.QuoteMeta(findCategorySQL)).
		WithArgs(name, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)
	for _, used := range taken {
		mock.ExpectQuery(regexp.QuoteMeta(slugTakenSQL)).
			WithArgs(used).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	}
	mock.ExpectQuery(regexp.QuoteMeta(slugTakenSQL)).
		WithArgs(slug).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(regexp.QuoteMeta(insertCategorySQL)).
		WithArgs(name, pgxmock.AnyArg(), slug).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
}

func TestUpsertBatchResolvesCategoriesAndCommits(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	rec := crawler.ArticleRecord{
		URL:          "https://blog.example/books/review-1",
		Title:        "Review",
		PostDate:     "2024-04-01",
		CategoryPath: []string{"Books", "Mystery"},
		CrawledAt:    crawledAt,
	}

	mock.ExpectBegin()
	expectSavepoint(mock)
	expectNewCategory(mock, "Books", "books", 1)
	expectNewCategory(mock, "Mystery", "books-mystery", 2)
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(articleArgs(rec.URL)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))
	expectRelease(mock)
	mock.ExpectCommit()

	res, err := s.UpsertBatch(context.Background(), []crawler.ArticleRecord{rec})
	require.NoError(t, err)
	require.Equal(t, crawler.BatchResult{Saved: 1}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchReusesCategoryAndSuffixesSlugCollision(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	nested := crawler.ArticleRecord{
		URL:          "https://blog.example/go/lang-1",
		Title:        "Nested",
		PostDate:     "2024-04-01",
		CategoryPath: []string{"Go", "Lang"},
		CrawledAt:    crawledAt,
	}
	flat := crawler.ArticleRecord{
		URL:          "https://blog.example/go/lang-2",
		Title:        "Flat",
		PostDate:     "2024-04-02",
		CategoryPath: []string{"Go Lang"},
		CrawledAt:    crawledAt,
	}

	mock.ExpectBegin()
	expectSavepoint(mock)
	mock.ExpectQuery(regexp.QuoteMeta(findCategorySQL)).
		WithArgs("Go", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug"}).AddRow(int64(1), "go"))
	mock.ExpectQuery(regexp.QuoteMeta(findCategorySQL)).
		WithArgs("Lang", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "slug"}).AddRow(int64(2), "go-lang"))
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(articleArgs(nested.URL)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))
	expectRelease(mock)
	expectSavepoint(mock)
	expectNewCategory(mock, "Go Lang", "go-lang-1", 3, "go-lang")
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(articleArgs(flat.URL)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	expectRelease(mock)
	mock.ExpectCommit()

	res, err := s.UpsertBatch(context.Background(), []crawler.ArticleRecord{nested, flat})
	require.NoError(t, err)
	require.Equal(t, crawler.BatchResult{Saved: 2}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchRollsBackFailedRecordOnly(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	bad := crawler.ArticleRecord{URL: "https://blog.example/a-1", Title: "A", PostDate: "2024-01-01", CrawledAt: crawledAt}
	good := crawler.ArticleRecord{URL: "https://blog.example/b-2", Title: "B", PostDate: "2024-01-02", CrawledAt: crawledAt}

	mock.ExpectBegin()
	expectSavepoint(mock)
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(articleArgs(bad.URL)...).
		WillReturnError(errors.New("value too long"))
	mock.ExpectExec(regexp.QuoteMeta(rollbackSavepoint)).WillReturnResult(pgxmock.NewResult("ROLLBACK", 0))
	expectRelease(mock)
	expectSavepoint(mock)
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(articleArgs(good.URL)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	expectRelease(mock)
	mock.ExpectCommit()

	res, err := s.UpsertBatch(context.Background(), []crawler.ArticleRecord{bad, good})
	require.NoError(t, err)
	require.Equal(t, crawler.BatchResult{Saved: 1, Failed: 1}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchBeginFailure(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := s.UpsertBatch(context.Background(), []crawler.ArticleRecord{{URL: "https://blog.example/x-1"}})
	require.ErrorContains(t, err, "begin batch")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchCommitFailureRollsBack(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	rec := crawler.ArticleRecord{URL: "https://blog.example/x-1", Title: "X", PostDate: "2024-01-01", CrawledAt: crawledAt}
	mock.ExpectBegin()
	expectSavepoint(mock)
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(articleArgs(rec.URL)...).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	expectRelease(mock)
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
	mock.ExpectRollback()

	_, err := s.UpsertBatch(context.Background(), []crawler.ArticleRecord{rec})
	require.ErrorContains(t, err, "commit batch")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchEmptyIsNoop(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	res, err := s.UpsertBatch(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetArticleNotFound(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	mock.ExpectQuery("FROM articles a").
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetArticle(context.Background(), 7)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListArticlesRebuildsCategoryPath(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	root := int64(1)
	leaf := int64(2)
	articleCols := []string{
		"id", "url", "title", "post_date", "updated_date", "category_id", "tags", "content_intro", "headings",
		"book_title", "book_author", "book_isbn", "book_asin", "word_count",
		"internal_links", "external_links", "frequent_words", "broken_links", "crawled_at",
	}
	mock.ExpectQuery("FROM articles a").
		WithArgs("Books", "Books").
		WillReturnRows(pgxmock.NewRows(articleCols).AddRow(
			int64(10), "https://blog.example/books/review-1", "Review", "2024-04-01", "", &leaf,
			`["go"]`, "intro", `[{"level":"h2","text":"Plot"}]`,
			"", "", "", "", 42,
			"[]", "[]", `{"go":2}`, "[]", crawledAt,
		))
	mock.ExpectQuery("SELECT id, name, parent_id, slug, created_at, updated_at FROM categories").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "parent_id", "slug", "created_at", "updated_at"}).
			AddRow(root, "Books", (*int64)(nil), "books", crawledAt, crawledAt).
			AddRow(leaf, "Mystery", &root, "books-mystery", crawledAt, crawledAt))

	got, err := s.ListArticles(context.Background(), store.ArticleQuery{Category: "Books"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"Books", "Mystery"}, got[0].CategoryPath)
	require.Equal(t, []string{"go"}, got[0].Tags)
	require.Equal(t, []crawler.WordCount{{Word: "go", Count: 2}}, got[0].FrequentWords)
	require.Equal(t, 42, got[0].WordCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsIncludesMonthlyCounts(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	last := crawledAt
	mock.ExpectQuery("FROM articles$").
		WillReturnRows(pgxmock.NewRows([]string{"count", "with_book", "max"}).AddRow(3, 1, &last))
	mock.ExpectQuery("LEFT JOIN categories c").
		WillReturnRows(pgxmock.NewRows([]string{"name", "count", "max"}).
			AddRow("Mystery", 2, "2024-04-15").
			AddRow("Film", 1, "2024-03-10"))
	mock.ExpectQuery(regexp.QuoteMeta(store.MonthlyCountsSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"month", "count"}).
			AddRow("2024-04", 2).
			AddRow("2024-03", 1))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, st.Total)
	require.Equal(t, 1, st.WithBook)
	require.Equal(t, crawledAt, *st.LastCrawledAt)
	require.Len(t, st.Categories, 2)
	require.Equal(t, []store.MonthCount{{Month: "2024-04", Articles: 2}, {Month: "2024-03", Articles: 1}}, st.Monthly)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAndPing(t *testing.T) {
	t.Parallel()
	mock, s := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS categories").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectPing()

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewArticleStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewArticleStore(context.Background(), ArticleStoreConfig{}, nil)
	require.Error(t, err)

	_, err = NewArticleStoreWithPool(nil, nil)
	require.Error(t, err)
}
