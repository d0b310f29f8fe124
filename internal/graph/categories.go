package graph

import (
	"strconv"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

// CategoryNetwork builds one node per category, valued by its article count
// (at least 1), and one edge from each parent to its children.
func CategoryNetwork(categories []crawler.Category, counts map[int64]int) Graph {
	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	known := make(map[int64]struct{}, len(categories))
	for _, c := range categories {
		known[c.ID] = struct{}{}
	}
	for _, c := range categories {
		group := "child"
		if c.ParentID == nil {
			group = "root"
		}
		value := counts[c.ID]
		if value < 1 {
			value = 1
		}
		id := strconv.FormatInt(c.ID, 10)
		g.Nodes = append(g.Nodes, Node{ID: id, Label: c.Name, Group: group, Value: value})
		if c.ParentID != nil {
			if _, ok := known[*c.ParentID]; ok {
				g.Edges = append(g.Edges, Edge{From: strconv.FormatInt(*c.ParentID, 10), To: id, Value: 1})
			}
		}
	}
	return g
}
