package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

func record(id int64, url, title string, category []string, links ...string) crawler.ArticleRecord {
	rec := crawler.ArticleRecord{ID: id, URL: url, Title: title, CategoryPath: category}
	for _, l := range links {
		rec.InternalLinks = append(rec.InternalLinks, crawler.Link{URL: l})
	}
	return rec
}

func TestBuildAccumulatesEdgeWeight(t *testing.T) {
	t.Parallel()

	a := record(1, "https://site.example/a/1", "A", []string{"Books"},
		"https://site.example/b/2", "https://site.example/b/2/?ref=x")
	b := record(2, "https://site.example/b/2", "B", []string{"Books"})

	g := Build([]crawler.ArticleRecord{a, b}, Options{})
	require.Equal(t, []Edge{{From: "1", To: "2", Value: 2}}, g.Edges)
	require.Equal(t, []Node{
		{ID: "1", Label: "A", Group: "Books", Value: 1},
		{ID: "2", Label: "B", Group: "Books", Value: 2},
	}, g.Nodes)
}

func TestBuildNodeValueSumsIncoming(t *testing.T) {
	t.Parallel()

	a := record(1, "https://site.example/a/1", "A", nil, "https://site.example/c/3")
	b := record(2, "https://site.example/b/2", "B", nil, "https://site.example/c/3", "https://site.example/c/3", "https://site.example/missing/9")
	c := record(3, "https://site.example/c/3", "C", nil)

	g := Build([]crawler.ArticleRecord{a, b, c}, Options{})
	require.Len(t, g.Edges, 2)
	require.Equal(t, 3, g.Nodes[2].Value)
	require.Equal(t, 1, g.Nodes[0].Value)
	require.Equal(t, Uncategorized, g.Nodes[0].Group)
}

func TestBuildCategoryFilterDropsDanglingEdges(t *testing.T) {
	t.Parallel()

	a := record(1, "https://site.example/a/1", "A", []string{"Books", "Novels"}, "https://site.example/b/2", "https://site.example/c/3")
	b := record(2, "https://site.example/b/2", "B", []string{"Novels"})
	c := record(3, "https://site.example/c/3", "C", []string{"Essays"}, "https://site.example/a/1")

	g := Build([]crawler.ArticleRecord{a, b, c}, Options{Category: "Novels"})
	require.Len(t, g.Nodes, 2)
	require.Equal(t, []Edge{{From: "1", To: "2", Value: 1}}, g.Edges)
	for _, n := range g.Nodes {
		require.Equal(t, "Novels", n.Group)
	}
}

func TestBuildWithoutIDsUsesURLs(t *testing.T) {
	t.Parallel()

	a := record(0, "https://site.example/a/1", "A", nil, "https://site.example/b/2")
	b := record(0, "https://site.example/b/2", "B", nil)
	g := Build([]crawler.ArticleRecord{a, b}, Options{})
	require.Equal(t, []Edge{{From: "https://site.example/a/1", To: "https://site.example/b/2", Value: 1}}, g.Edges)
}

func TestLabelTruncation(t *testing.T) {
	t.Parallel()

	require.Equal(t, "(untitled)", Label("  ", 30))
	require.Equal(t, "short", Label("short", 30))
	require.Equal(t, "あいう...", Label("あいうえお", 3))
}

func TestGraphJSONShape(t *testing.T) {
	t.Parallel()

	g := Build([]crawler.ArticleRecord{record(7, "https://site.example/a/7", "Seven", []string{"X"})}, Options{})
	data, err := json.Marshal(g)
	require.NoError(t, err)
	require.JSONEq(t, `{"nodes":[{"id":"7","label":"Seven","group":"X","value":1}],"edges":[]}`, string(data))
}

func TestCategoryNetwork(t *testing.T) {
	t.Parallel()

	root := int64(1)
	cats := []crawler.Category{
		{ID: 1, Name: "Books"},
		{ID: 2, Name: "Novels", ParentID: &root},
		{ID: 3, Name: "Essays", ParentID: &root},
	}
	g := CategoryNetwork(cats, map[int64]int{2: 5})
	require.Equal(t, []Node{
		{ID: "1", Label: "Books", Group: "root", Value: 1},
		{ID: "2", Label: "Novels", Group: "child", Value: 5},
		{ID: "3", Label: "Essays", Group: "child", Value: 1},
	}, g.Nodes)
	require.Equal(t, []Edge{{From: "1", To: "2", Value: 1}, {From: "1", To: "3", Value: 1}}, g.Edges)
}
