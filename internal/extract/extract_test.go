package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

const articleURL = "https://site.example/books/review-2023/"

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestExtractArticleFixture(t *testing.T) {
	t.Parallel()

	e := New(Config{}, zap.NewNop())
	rec, err := e.Extract(loadFixture(t, "article.html"), articleURL)
	require.NoError(t, err)
	require.NotNil(t, rec)

	require.Equal(t, "https://site.example/books/review-2023", rec.URL)
	require.Equal(t, "A Quiet Review", rec.Title)
	require.Equal(t, "2023-05-01", rec.PostDate)
	require.Equal(t, "2023-06-02", rec.UpdatedDate)
	require.Equal(t, []string{"Fiction", "Mystery"}, rec.CategoryPath)
	require.Equal(t, "First paragraph of the review.", rec.ContentIntro)
	require.Equal(t, []crawler.Heading{
		{Level: "h2", Text: "Overview"},
		{Level: "h3", Text: "Details"},
	}, rec.Headings)
	require.Equal(t, "静かな本", rec.BookTitle)
	require.Equal(t, "山田太郎", rec.BookAuthor)
	require.Equal(t, "9784101010014", rec.BookISBN)
	require.Equal(t, "B00EXAMPLE", rec.BookASIN)
	require.True(t, rec.Acceptable())
}

func TestExtractTagsUnionAndCaseSensitiveDedup(t *testing.T) {
	t.Parallel()

	rec, err := New(Config{}, nil).Extract(loadFixture(t, "article.html"), articleURL)
	require.NoError(t, err)
	require.Equal(t, []string{"Go", "Mystery", "go", "go-lang"}, rec.Tags)
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	rec, err := New(Config{}, nil).Extract(loadFixture(t, "article.html"), articleURL)
	require.NoError(t, err)

	require.Equal(t, []crawler.Link{
		{URL: "https://site.example/books/12345", Text: "Related book"},
		{URL: "https://site.example/books/12345", Text: "Same book again"},
	}, rec.InternalLinks)
	require.Equal(t, []crawler.Link{
		{URL: "https://other.example/page", Text: "Elsewhere"},
		{URL: "mailto:editor@site.example", Text: "Mail"},
	}, rec.ExternalLinks)
	require.Equal(t, []string{"http://[::1"}, rec.BrokenLinks)
}

func TestExtractWordCountSkipsScripts(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="entry-content"><p> ab </p><p>cde</p><script>xyz</script><p>日本語</p></div></body></html>`
	rec, err := New(Config{}, nil).Extract(html, "https://site.example/a/1")
	require.NoError(t, err)
	require.Equal(t, 8, rec.WordCount)
}

func TestExtractIntroProfiles(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="entry-content"><p>abcdefghij</p></div></body></html>`

	unbounded, err := New(Config{}, nil).Extract(html, "https://site.example/a/1")
	require.NoError(t, err)
	require.Equal(t, "abcdefghij", unbounded.ContentIntro)

	cut, err := New(Config{IntroMaxRunes: 4}, nil).Extract(html, "https://site.example/a/1")
	require.NoError(t, err)
	require.Equal(t, "abcd...", cut.ContentIntro)
}

func TestExtractMissingFieldsDegradeToEmpty(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="entry-content"><p>Just text, no heading.</p></div></body></html>`
	rec, err := New(Config{}, nil).Extract(html, "https://site.example/notes/77")
	require.NoError(t, err)

	require.Empty(t, rec.Title)
	require.Empty(t, rec.PostDate)
	require.Empty(t, rec.BookISBN)
	require.Equal(t, []string{"notes"}, rec.CategoryPath, "path segments are the category fallback")
	require.Equal(t, "Just text, no heading.", rec.ContentIntro)
	require.False(t, rec.Acceptable(), "no title and no publish date fails the quality gate")
}

func TestExtractRenderedAndJSONLDDates(t *testing.T) {
	t.Parallel()

	rendered := `<html><body><h1>T</h1><time class="entry-date" datetime="2022-01-09T12:00:00+09:00">2022年1月9日</time></body></html>`
	rec, err := New(Config{}, nil).Extract(rendered, "https://site.example/a/1")
	require.NoError(t, err)
	require.Equal(t, "2022-01-09", rec.PostDate)

	textOnly := `<html><body><h1>T</h1><span class="post-date">2021年12月3日</span></body></html>`
	rec, err = New(Config{}, nil).Extract(textOnly, "https://site.example/a/1")
	require.NoError(t, err)
	require.Equal(t, "2021-12-03", rec.PostDate)

	jsonLD := `<html><head><script type="application/ld+json">{"@graph":[{"@type":"BlogPosting","datePublished":"2020-02-29T09:00:00Z","dateModified":"2020-03-01"}]}</script></head><body><h1>T</h1></body></html>`
	rec, err = New(Config{}, nil).Extract(jsonLD, "https://site.example/a/1")
	require.NoError(t, err)
	require.Equal(t, "2020-02-29", rec.PostDate)
	require.Equal(t, "2020-03-01", rec.UpdatedDate)
}

func TestParseCollectsLinksForEveryPage(t *testing.T) {
	t.Parallel()

	html := `<html><body>
		<a href="/a/1">one</a>
		<a href="/a/1#frag">one again</a>
		<a href="https://other.example/x">other</a>
		<a href="mailto:x@y">mail</a>
		<a href="#top">top</a>
	</body></html>`
	e := New(Config{}, nil)

	page, err := e.Parse("https://site.example/", []byte(html), false)
	require.NoError(t, err)
	require.Nil(t, page.Article)
	require.Equal(t, []string{"https://site.example/a/1", "https://other.example/x"}, page.Links)

	page, err = e.Parse("https://site.example/a/1", []byte(html), true)
	require.NoError(t, err)
	require.NotNil(t, page.Article)
}

func TestCategoryPathFallbackDecodesSegments(t *testing.T) {
	t.Parallel()

	html := `<html><body><h1>x</h1></body></html>`
	rec, err := New(Config{}, nil).Extract(html, "https://site.example/%E6%9C%AC/light-novels/123")
	require.NoError(t, err)
	require.Equal(t, []string{"本", "light novels"}, rec.CategoryPath)
}

func TestCategoryPlaceholdersExcluded(t *testing.T) {
	t.Parallel()

	html := `<html><body><div class="breadcrumb"><a href="/">トップ</a><a href="/">HOME</a><a href="/x/">Essays</a></div></body></html>`
	rec, err := New(Config{}, nil).Extract(html, "https://site.example/x/9")
	require.NoError(t, err)
	require.Equal(t, []string{"Essays"}, rec.CategoryPath)
}
