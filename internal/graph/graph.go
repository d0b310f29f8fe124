// Package graph builds the weighted link graph between articles and the
// category network served by the visualization endpoints.
package graph

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// DefaultLabelLength is the number of runes kept in a node label.
const DefaultLabelLength = 30

// Uncategorized is the group of records without a category.
const Uncategorized = "uncategorized"

// Node is one article in the graph.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
	Value int    `json:"value"`
}

// Edge is a directed, weighted link between two nodes.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value int    `json:"value"`
}

// Graph is the payload of the graph endpoint.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Options controls Build.
type Options struct {
	// Category keeps only nodes of this group when non-empty.
	Category string
	// LabelLength overrides DefaultLabelLength when positive.
	LabelLength int
}

type edgeKey struct {
	from, to string
}

// Build creates one node per record and one edge per (source, target) pair
// of resolved internal links. Repeated links between the same pair add to
// the edge weight. A node's value is the sum of its incoming edge weights,
// or 1 when nothing links to it.
func Build(records []crawler.ArticleRecord, opts Options) Graph {
	labelLen := opts.LabelLength
	if labelLen <= 0 {
		labelLen = DefaultLabelLength
	}

	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	byURL := make(map[string]string, len(records))
	kept := make([]crawler.ArticleRecord, 0, len(records))
	for _, rec := range records {
		group := Group(rec)
		if opts.Category != "" && group != opts.Category {
			continue
		}
		id := nodeID(rec)
		key := rec.URL
		if k, err := crawler.NormalizeURL(rec.URL); err == nil {
			key = k
		}
		if _, dup := byURL[key]; dup {
			continue
		}
		byURL[key] = id
		kept = append(kept, rec)
		g.Nodes = append(g.Nodes, Node{
			ID:    id,
			Label: Label(rec.Title, labelLen),
			Group: group,
		})
	}

	weights := make(map[edgeKey]int)
	var order []edgeKey
	for _, rec := range kept {
		from := nodeID(rec)
		for _, link := range rec.InternalLinks {
			target, err := crawler.NormalizeURL(link.URL)
			if err != nil {
				continue
			}
			to, ok := byURL[target]
			if !ok {
				continue
			}
			k := edgeKey{from: from, to: to}
			if _, seen := weights[k]; !seen {
				order = append(order, k)
			}
			weights[k]++
		}
	}

	incoming := make(map[string]int)
	for _, k := range order {
		w := weights[k]
		g.Edges = append(g.Edges, Edge{From: k.from, To: k.to, Value: w})
		incoming[k.to] += w
	}
	for i := range g.Nodes {
		g.Nodes[i].Value = incoming[g.Nodes[i].ID]
		if g.Nodes[i].Value == 0 {
			g.Nodes[i].Value = 1
		}
	}
	return g
}

// Group is the graph group of a record: its leaf category.
func Group(rec crawler.ArticleRecord) string {
	if c := strings.TrimSpace(rec.Category()); c != "" {
		return c
	}
	return Uncategorized
}

// Label truncates title to n runes, appending "..." when cut.
func Label(title string, n int) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "(untitled)"
	}
	runes := []rune(title)
	if len(runes) <= n {
		return title
	}
	return string(runes[:n]) + "..."
}

func nodeID(rec crawler.ArticleRecord) string {
	if rec.ID > 0 {
		return strconv.FormatInt(rec.ID, 10)
	}
	return rec.URL
}
