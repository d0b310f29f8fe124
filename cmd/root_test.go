package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/JakeFAU/article-crawler/internal/app"
	"github.com/JakeFAU/article-crawler/internal/config"
	"github.com/JakeFAU/article-crawler/internal/crawler"
	"github.com/JakeFAU/article-crawler/internal/storage/sqlite"
	"github.com/JakeFAU/article-crawler/internal/store"
)

type fakeApp struct {
	repo      store.Repository
	cfg       config.Config
	report    app.Report
	backfill  crawler.BatchResult
	crawlErr  error
	crawls    int
	backfills []string
	closed    bool
}

func (f *fakeApp) Crawl(context.Context) (app.Report, error) {
	f.crawls++
	return f.report, f.crawlErr
}

func (f *fakeApp) Backfill(_ context.Context, table string) (crawler.BatchResult, error) {
	f.backfills = append(f.backfills, table)
	return f.backfill, nil
}

func (f *fakeApp) Repository() store.Repository { return f.repo }
func (f *fakeApp) Logger() *zap.Logger { return zap.NewNop() }
func (f *fakeApp) Config() config.Config { return f.cfg }

func (f *fakeApp) Close() error {
	f.closed = true
	return nil
}

func seededApp(t *testing.T) *fakeApp {
	t.Helper()
	ctx := context.Background()
	repo, err := sqlite.Open(ctx, sqlite.Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	crawled := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err = repo.UpsertBatch(ctx, []crawler.ArticleRecord{
		{
			URL:          "https://blog.example/books/review-1",
			Title:        "Go Mystery Review",
			PostDate:     "2024-04-01",
			CategoryPath: []string{"Books", "Mystery"},
			Tags:         []string{"go"},
			ContentIntro: "A review of a mystery novel.",
			Headings:     []crawler.Heading{{Level: "h2", Text: "Plot"}},
			BookTitle:    "The Gopher Case",
			BookAuthor:   "R. Pike",
			BookISBN:     "9784000000000",
			CrawledAt:    crawled,
		},
		{
			URL:          "https://blog.example/notes/note-2",
			Title:        "Loose Note",
			PostDate:     "2024-03-10",
			CategoryPath: []string{"Notes"},
			CrawledAt:    crawled,
		},
	})
	require.NoError(t, err)

	cfg, err := config.Load("")
	require.NoError(t, err)
	return &fakeApp{repo: repo, cfg: cfg}
}

// execute runs the root command against fake; it must not run in parallel
// because it swaps the package-level factory.
func execute(t *testing.T, fake *fakeApp, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ARTICLECRAWLER_LOGGING_LEVEL", "error")
	prev := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		return fake, nil
	}
	t.Cleanup(func() { newApp = prev })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSearchTable(t *testing.T) {
	fake := seededApp(t)

	out, err := execute(t, fake, "search")
	require.NoError(t, err)
	require.Contains(t, out, "Go Mystery Review")
	require.Contains(t, out, "Books > Mystery")
	require.Contains(t, out, "2 articles")
	require.True(t, fake.closed)
}

func TestSearchJSONByField(t *testing.T) {
	fake := seededApp(t)

	out, err := execute(t, fake, "search", "--field", "title", "--keyword", "mystery", "--format", "json")
	require.NoError(t, err)

	var got []crawler.ArticleRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "https://blog.example/books/review-1", got[0].URL)
}

func TestSearchYAML(t *testing.T) {
	fake := seededApp(t)

	out, err := execute(t, fake, "search", "--field", "category", "--keyword", "notes", "--format", "yaml")
	require.NoError(t, err)

	var got []crawler.ArticleRecord
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Loose Note", got[0].Title)
}

func TestSearchRejectsBadInput(t *testing.T) {
	fake := seededApp(t)

	_, err := execute(t, fake, "search", "--format", "xml")
	require.Error(t, err)

	_, err = execute(t, fake, "search", "--field", "author", "--keyword", "x")
	require.ErrorIs(t, err, store.ErrInvalidField)
}

func TestStats(t *testing.T) {
	fake := seededApp(t)

	out, err := execute(t, fake, "stats", "--format", "json")
	require.NoError(t, err)
	var st store.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	require.Equal(t, 2, st.Total)
	require.NotNil(t, st.LastCrawledAt)
	require.Equal(t, []store.MonthCount{{Month: "2024-04", Articles: 1}, {Month: "2024-03", Articles: 1}}, st.Monthly)

	out, err = execute(t, fake, "stats")
	require.NoError(t, err)
	require.Contains(t, out, "articles:      2")
	require.Contains(t, out, "Mystery")
	require.Contains(t, out, "MONTH")
	require.Regexp(t, `2024-04\s+1`, out)
}

func TestShowPrintsArticleDetail(t *testing.T) {
	fake := seededApp(t)
	recs, err := fake.repo.ListArticles(context.Background(), store.ArticleQuery{Keyword: "Mystery Review", Field: "title"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	id := strconv.FormatInt(recs[0].ID, 10)

	out, err := execute(t, fake, "show", "--id", id)
	require.NoError(t, err)
	require.Contains(t, out, "title:     Go Mystery Review")
	require.Contains(t, out, "category:  Books > Mystery")
	require.Contains(t, out, "book:      The Gopher Case")
	require.Contains(t, out, "isbn:      9784000000000")
	require.Contains(t, out, "A review of a mystery novel.")
	require.Contains(t, out, "h2  Plot")

	out, err = execute(t, fake, "show", "--id", id, "--format", "json")
	require.NoError(t, err)
	var rec crawler.ArticleRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.Equal(t, "R. Pike", rec.BookAuthor)
	require.Equal(t, []crawler.Heading{{Level: "h2", Text: "Plot"}}, rec.Headings)

	out, err = execute(t, fake, "show", "--id", id, "--format", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "book_title: The Gopher Case")
}

func TestShowRejectsMissingArticle(t *testing.T) {
	fake := seededApp(t)

	_, err := execute(t, fake, "show", "--id", "9999")
	require.ErrorContains(t, err, "article 9999 not found")

	_, err = execute(t, fake, "show")
	require.ErrorContains(t, err, "--id must be > 0")
}

func TestCrawlExportsCSV(t *testing.T) {
	fake := seededApp(t)
	fake.report = app.Report{
		Result: crawler.Result{
			RunID:        "run-1",
			PagesVisited: 4,
			Records: []crawler.ArticleRecord{
				{URL: "https://blog.example/books/review-1", Title: "Go Mystery Review", CategoryPath: []string{"Books", "Mystery"}},
			},
		},
		BatchResult: crawler.BatchResult{Saved: 1},
	}
	path := filepath.Join(t.TempDir(), "batch.csv")

	out, err := execute(t, fake, "crawl", "--export", path)
	require.NoError(t, err)
	require.Contains(t, out, "run run-1: visited 4 pages, saved 1 articles, 0 failed")
	require.Equal(t, 1, fake.crawls)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "url", rows[0][0])
	require.Equal(t, "Books > Mystery", rows[1][4])
}

func TestCrawlFailure(t *testing.T) {
	fake := seededApp(t)
	fake.crawlErr = errors.New("persist batch: disk full")

	_, err := execute(t, fake, "crawl")
	require.ErrorContains(t, err, "disk full")
}

func TestScheduleRunOnce(t *testing.T) {
	fake := seededApp(t)
	fake.report = app.Report{Result: crawler.Result{RunID: "run-2"}}

	_, err := execute(t, fake, "schedule", "--run-once")
	require.NoError(t, err)
	require.Equal(t, 1, fake.crawls)
}

func TestBackfill(t *testing.T) {
	fake := seededApp(t)
	fake.backfill = crawler.BatchResult{Saved: 7, Failed: 1}

	out, err := execute(t, fake, "backfill")
	require.NoError(t, err)
	require.Equal(t, []string{defaultLegacyTable}, fake.backfills)
	require.Contains(t, out, "backfilled 7 articles from articles_history, 1 failed")
}

func TestAppInitFailure(t *testing.T) {
	t.Setenv("ARTICLECRAWLER_LOGGING_LEVEL", "error")
	prev := newApp
	newApp = func(context.Context, config.Config, *zap.Logger) (App, error) {
		return nil, errors.New("db unreachable")
	}
	t.Cleanup(func() { newApp = prev })

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"stats"})
	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "db unreachable")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "日本語…", truncate("日本語の記事タイトル", 4))
}
