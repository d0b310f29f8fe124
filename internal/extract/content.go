package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/article-crawler/internal/crawler"
)

var containerSelectors = []string{
	".entry-content",
	".post-content",
	".article-body",
	"article",
	"main",
}

var titleSelectors = []string{
	"h1.entry-title",
	"h1.post-title",
	"article h1",
	"h1",
}

// contentContainer returns the main content element. When no known
// container matches, the readability extraction of the page is used.
func (e *Extractor) contentContainer(p *page) *goquery.Selection {
	for _, sel := range containerSelectors {
		if s := p.doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	article := p.readableArticle()
	if article == nil || strings.TrimSpace(article.Content) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil
	}
	return doc.Find("body").First()
}

// intro returns the first non-empty paragraph directly under the container.
func intro(content *goquery.Selection, maxRunes int) string {
	var text string
	content.ChildrenFiltered("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text = collapse(s.Text())
		return text == ""
	})
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = string(runes[:maxRunes]) + "..."
	}
	return text
}

func headings(content *goquery.Selection) []crawler.Heading {
	var out []crawler.Heading
	content.Find("h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := collapse(s.Text())
		if text == "" {
			return
		}
		out = append(out, crawler.Heading{Level: goquery.NodeName(s), Text: text})
	})
	return out
}

// wordCount is the number of runes across all trimmed text nodes.
func wordCount(content *goquery.Selection) int {
	n := 0
	for _, t := range textNodes(content) {
		n += utf8.RuneCountInString(t)
	}
	return n
}

// textNodes returns the trimmed, non-empty text nodes under sel, skipping
// script, style and noscript elements.
func textNodes(sel *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				out = append(out, t)
			}
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}
